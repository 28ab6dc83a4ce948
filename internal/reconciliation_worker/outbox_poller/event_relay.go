package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/revenue-reconciliation/internal/domain/outbox"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/messaging/producers"
)

// EventRelay publishes one outbox message and marks it processed
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaEventRelay implements EventRelay on the match event topic
type KafkaEventRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.EventPublisher
	logger     *slog.Logger
}

func NewKafkaEventRelay(
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	logger *slog.Logger,
) *KafkaEventRelay {
	return &KafkaEventRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay gives up on a message whose payload cannot be decoded; publishing failures are returned for retry
func (r *KafkaEventRelay) Relay(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		r.logger.Error("Failed to unmarshal match event from outbox payload",
			"outbox_id", message.ID, "match_record_id", message.MatchRecordID.String(), "error", err,
		)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			r.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	if err := r.publisher.PublishEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish match event for outbox %d: %w", message.ID, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "error", err,
		)
		return fmt.Errorf("event for outbox %d published, but marking it PROCESSED failed: %w", message.ID, err)
	}

	logger.Debug("Relayed match event",
		"outbox_id", message.ID,
		"event_type", string(event.Type),
		"gl_entry_id", event.Record.GLEntryID.String(),
	)
	return nil
}
