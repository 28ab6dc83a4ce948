package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/persistence"
)

const forecastLineColumns = "id, period, reference, expected_amount, account_code, match_status, matched_gl_entry_id, created_at, updated_at"

// ForecastLineRepository implements forecast.Repository for PostgreSQL
type ForecastLineRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewForecastLineRepository(logger *slog.Logger, db *persistence.PostgresDB) *ForecastLineRepository {
	return &ForecastLineRepository{querier: db.Pool(), logger: logger}
}

func (r *ForecastLineRepository) WithTx(tx pgx.Tx) *ForecastLineRepository {
	return &ForecastLineRepository{querier: tx, logger: r.logger}
}

func (r *ForecastLineRepository) Create(ctx context.Context, line *forecast.Line) error {
	query := `INSERT INTO forecast_lines (` + forecastLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.querier.Exec(ctx, query,
		line.ID,
		line.Period.String(),
		line.Reference,
		line.ExpectedAmount,
		line.AccountCode,
		string(line.MatchStatus),
		line.MatchedGLEntryID,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create forecast line", "forecast_line_id", line.ID.String(), "error", err)
		return fmt.Errorf("failed to create forecast line: %w", err)
	}
	return nil
}

func scanForecastLine(row rowScanner) (*forecast.Line, error) {
	var (
		l      forecast.Line
		period string
		status string
	)
	err := row.Scan(
		&l.ID,
		&period,
		&l.Reference,
		&l.ExpectedAmount,
		&l.AccountCode,
		&status,
		&l.MatchedGLEntryID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.Period, err = parsePeriodColumn(period); err != nil {
		return nil, err
	}
	l.MatchStatus = shared.MatchStatus(status)
	return &l, nil
}

func (r *ForecastLineRepository) GetByID(ctx context.Context, id uuid.UUID) (*forecast.Line, error) {
	query := `SELECT ` + forecastLineColumns + ` FROM forecast_lines WHERE id = $1`

	line, err := scanForecastLine(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, forecast.ErrLineNotFound{LineID: id}
		}
		r.logger.Error("Failed to get forecast line", "forecast_line_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get forecast line: %w", err)
	}
	return line, nil
}

func (r *ForecastLineRepository) ListByPeriod(ctx context.Context, period shared.Period) ([]*forecast.Line, error) {
	query := `SELECT ` + forecastLineColumns + ` FROM forecast_lines WHERE period = $1 ORDER BY created_at, id`

	rows, err := r.querier.Query(ctx, query, period.String())
	if err != nil {
		r.logger.Error("Failed to list forecast lines", "period", period.String(), "error", err)
		return nil, fmt.Errorf("failed to list forecast lines: %w", err)
	}
	defer rows.Close()

	var lines []*forecast.Line
	for rows.Next() {
		line, err := scanForecastLine(rows)
		if err != nil {
			r.logger.Error("Failed to scan forecast line", "error", err)
			return nil, fmt.Errorf("failed to scan forecast line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over forecast lines", "error", err)
		return nil, fmt.Errorf("error iterating over forecast lines: %w", err)
	}
	return lines, nil
}

func (r *ForecastLineRepository) UpdateMatchStatus(ctx context.Context, id uuid.UUID, expected, status shared.MatchStatus, glEntryID *uuid.UUID) error {
	query := `UPDATE forecast_lines
		SET match_status = $1, matched_gl_entry_id = $2, updated_at = $3
		WHERE id = $4 AND match_status = $5`

	result, err := r.querier.Exec(ctx, query, string(status), glEntryID, time.Now().UTC(), id, string(expected))
	if err != nil {
		r.logger.Error("Failed to update forecast line match status", "forecast_line_id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update forecast line match status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.querier.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM forecast_lines WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check forecast line existence: %w", err)
	}
	if !exists {
		return forecast.ErrLineNotFound{LineID: id}
	}
	return shared.ErrStatusConflict{EntityID: id, Expected: expected}
}
