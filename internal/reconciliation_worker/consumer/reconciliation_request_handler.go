package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/messaging/producers"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_worker/service"
)

// ReconciliationRequestHandler handles reconciliation requests consumed from Kafka
type ReconciliationRequestHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewReconciliationRequestHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *ReconciliationRequestHandler {
	return &ReconciliationRequestHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage returns nil when the offset may be committed.
// Conflicting and cancelled runs are acknowledged; malformed requests and store failures
// are parked on the DLQ so a retry is an explicit action.
func (h *ReconciliationRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.ReconciliationRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal reconciliation request from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, h.logger, key, value, "unmarshal reconciliation request", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	err := h.processingService.ProcessRequest(ctx, &request)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrConcurrentRunConflict{}):
		logger.Warn("Period is already being reconciled, dropping request",
			"request_id", request.RequestID.String(),
			"period", request.Period,
		)
		return nil
	case errors.Is(err, reconciliation.ErrRunCancelled):
		logger.Warn("Reconciliation run was cancelled; committed batches are kept",
			"request_id", request.RequestID.String(),
			"period", request.Period,
		)
		return nil
	default:
		logger.Error("Failed to process reconciliation request",
			"request_id", request.RequestID.String(),
			"period", request.Period,
			"error", err,
		)
		return h.deadLetter(ctx, logger, key, value, dlqReason(err), err)
	}
}

func dlqReason(err error) string {
	var invalidMode shared.ErrInvalidMode
	switch {
	case errors.Is(err, shared.ErrInvalidPeriod{}):
		return "invalid period"
	case errors.As(err, &invalidMode):
		return "invalid mode"
	case errors.Is(err, reconciliation.ErrStoreFailure{}):
		return "store failure"
	default:
		return "processing failed"
	}
}

// deadLetter acknowledges the message once it is parked; without a DLQ the error is returned
// and the offset stays uncommitted
func (h *ReconciliationRequestHandler) deadLetter(ctx context.Context, logger *slog.Logger, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}

	fullReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, fullReason); err != nil {
		logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", fullReason)
	return nil
}
