package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/outbox"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/persistence"
)

// OutboxRepository implements outbox.Repository over the reconciliation_outbox table
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) *OutboxRepository {
	return &OutboxRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to a transaction so events commit together with the match change
func (r *OutboxRepository) WithTx(tx pgx.Tx) *OutboxRepository {
	return &OutboxRepository{querier: tx, logger: r.logger}
}

// Create stores a pending message and fills in its generated id
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `INSERT INTO reconciliation_outbox (match_record_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.querier.QueryRow(ctx, query,
		message.MatchRecordID,
		string(message.EventType),
		message.Payload,
		string(message.Status),
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"match_record_id", message.MatchRecordID.String(),
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetPending returns pending messages oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `SELECT id, match_record_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM reconciliation_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, string(shared.OutboxStatusPending), limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var (
			message   outbox.Message
			eventType string
			status    string
		)
		err := rows.Scan(
			&message.ID,
			&message.MatchRecordID,
			&eventType,
			&message.Payload,
			&status,
			&message.Attempts,
			&message.CreatedAt,
			&message.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		message.EventType = match.EventType(eventType)
		message.Status = shared.OutboxStatus(status)
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `UPDATE reconciliation_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3`

	result, err := r.querier.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `UPDATE reconciliation_outbox SET attempts = attempts + 1, last_attempt_at = $1 WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox message attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment outbox message attempts: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}
