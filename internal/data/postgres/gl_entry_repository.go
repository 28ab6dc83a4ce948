package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/persistence"
)

const glEntryColumns = "id, period, account_code, amount, reference, posting_date, description, match_status, matched_forecast_line_id, created_at, updated_at"

// GLEntryRepository implements glentry.Repository for PostgreSQL
type GLEntryRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewGLEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) *GLEntryRepository {
	return &GLEntryRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to a transaction
func (r *GLEntryRepository) WithTx(tx pgx.Tx) *GLEntryRepository {
	return &GLEntryRepository{querier: tx, logger: r.logger}
}

func (r *GLEntryRepository) Create(ctx context.Context, entry *glentry.Entry) error {
	query := `INSERT INTO gl_entries (` + glEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.Period.String(),
		entry.AccountCode,
		entry.Amount,
		entry.Reference,
		entry.PostingDate,
		entry.Description,
		string(entry.MatchStatus),
		entry.MatchedForecastLineID,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create gl entry", "gl_entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create gl entry: %w", err)
	}
	return nil
}

func scanGLEntry(row rowScanner) (*glentry.Entry, error) {
	var (
		e      glentry.Entry
		period string
		status string
	)
	err := row.Scan(
		&e.ID,
		&period,
		&e.AccountCode,
		&e.Amount,
		&e.Reference,
		&e.PostingDate,
		&e.Description,
		&status,
		&e.MatchedForecastLineID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.Period, err = parsePeriodColumn(period); err != nil {
		return nil, err
	}
	e.MatchStatus = shared.MatchStatus(status)
	return &e, nil
}

func (r *GLEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*glentry.Entry, error) {
	query := `SELECT ` + glEntryColumns + ` FROM gl_entries WHERE id = $1`

	entry, err := scanGLEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, glentry.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get gl entry", "gl_entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get gl entry: %w", err)
	}
	return entry, nil
}

// ListByPeriod returns the entries of a period ordered by creation time then id
func (r *GLEntryRepository) ListByPeriod(ctx context.Context, period shared.Period) ([]*glentry.Entry, error) {
	query := `SELECT ` + glEntryColumns + ` FROM gl_entries WHERE period = $1 ORDER BY created_at, id`

	rows, err := r.querier.Query(ctx, query, period.String())
	if err != nil {
		r.logger.Error("Failed to list gl entries", "period", period.String(), "error", err)
		return nil, fmt.Errorf("failed to list gl entries: %w", err)
	}
	defer rows.Close()

	var entries []*glentry.Entry
	for rows.Next() {
		entry, err := scanGLEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan gl entry", "error", err)
			return nil, fmt.Errorf("failed to scan gl entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over gl entries", "error", err)
		return nil, fmt.Errorf("error iterating over gl entries: %w", err)
	}
	return entries, nil
}

// UpdateMatchStatus only writes when the stored status still equals expected
func (r *GLEntryRepository) UpdateMatchStatus(ctx context.Context, id uuid.UUID, expected, status shared.MatchStatus, forecastLineID *uuid.UUID) error {
	query := `UPDATE gl_entries
		SET match_status = $1, matched_forecast_line_id = $2, updated_at = $3
		WHERE id = $4 AND match_status = $5`

	result, err := r.querier.Exec(ctx, query, string(status), forecastLineID, time.Now().UTC(), id, string(expected))
	if err != nil {
		r.logger.Error("Failed to update gl entry match status", "gl_entry_id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update gl entry match status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.querier.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gl_entries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check gl entry existence: %w", err)
	}
	if !exists {
		return glentry.ErrEntryNotFound{EntryID: id}
	}
	return shared.ErrStatusConflict{EntityID: id, Expected: expected}
}
