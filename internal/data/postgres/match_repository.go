package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/persistence"
)

const matchRecordColumns = "id, gl_entry_id, forecast_line_id, period, method, score, run_id, created_by, created_at"

// MatchRepository implements match.Repository. The unique indexes on gl_entry_id and
// forecast_line_id enforce that each side has at most one active record.
type MatchRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewMatchRepository(logger *slog.Logger, db *persistence.PostgresDB) *MatchRepository {
	return &MatchRepository{querier: db.Pool(), logger: logger}
}

func (r *MatchRepository) WithTx(tx pgx.Tx) *MatchRepository {
	return &MatchRepository{querier: tx, logger: r.logger}
}

func (r *MatchRepository) Create(ctx context.Context, record *match.Record) error {
	query := `INSERT INTO match_records (` + matchRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.GLEntryID,
		record.ForecastLineID,
		record.Period.String(),
		string(record.Method),
		record.Score,
		record.RunID,
		record.CreatedBy,
		record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return match.ErrAlreadyMatched{GLEntryID: record.GLEntryID, ForecastLineID: record.ForecastLineID}
		}
		r.logger.Error("Failed to create match record",
			"gl_entry_id", record.GLEntryID.String(),
			"forecast_line_id", record.ForecastLineID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create match record: %w", err)
	}
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, glEntryID, forecastLineID uuid.UUID) error {
	query := `DELETE FROM match_records WHERE gl_entry_id = $1 AND forecast_line_id = $2`

	result, err := r.querier.Exec(ctx, query, glEntryID, forecastLineID)
	if err != nil {
		r.logger.Error("Failed to delete match record",
			"gl_entry_id", glEntryID.String(),
			"forecast_line_id", forecastLineID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to delete match record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return match.ErrNotMatched{GLEntryID: glEntryID, ForecastLineID: forecastLineID}
	}
	return nil
}

func scanMatchRecord(row rowScanner) (*match.Record, error) {
	var (
		rec    match.Record
		period string
		method string
	)
	err := row.Scan(
		&rec.ID,
		&rec.GLEntryID,
		&rec.ForecastLineID,
		&period,
		&method,
		&rec.Score,
		&rec.RunID,
		&rec.CreatedBy,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Period, err = parsePeriodColumn(period); err != nil {
		return nil, err
	}
	rec.Method = shared.MatchMethod(method)
	return &rec, nil
}

// GetByGLEntryID returns nil without error when the entry has no active record
func (r *MatchRepository) GetByGLEntryID(ctx context.Context, glEntryID uuid.UUID) (*match.Record, error) {
	return r.getOne(ctx, "gl_entry_id", glEntryID)
}

// GetByForecastLineID returns nil without error when the line has no active record
func (r *MatchRepository) GetByForecastLineID(ctx context.Context, forecastLineID uuid.UUID) (*match.Record, error) {
	return r.getOne(ctx, "forecast_line_id", forecastLineID)
}

// getOne looks a record up by one of its unique columns; column is never user input
func (r *MatchRepository) getOne(ctx context.Context, column string, id uuid.UUID) (*match.Record, error) {
	query := `SELECT ` + matchRecordColumns + ` FROM match_records WHERE ` + column + ` = $1`

	rec, err := scanMatchRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get match record", column, id.String(), "error", err)
		return nil, fmt.Errorf("failed to get match record by %s: %w", column, err)
	}
	return rec, nil
}

func (r *MatchRepository) ListByPeriod(ctx context.Context, period shared.Period) ([]*match.Record, error) {
	query := `SELECT ` + matchRecordColumns + ` FROM match_records WHERE period = $1 ORDER BY created_at, id`

	rows, err := r.querier.Query(ctx, query, period.String())
	if err != nil {
		r.logger.Error("Failed to list match records", "period", period.String(), "error", err)
		return nil, fmt.Errorf("failed to list match records: %w", err)
	}
	defer rows.Close()

	var records []*match.Record
	for rows.Next() {
		rec, err := scanMatchRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan match record", "error", err)
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over match records", "error", err)
		return nil, fmt.Errorf("error iterating over match records: %w", err)
	}
	return records, nil
}
