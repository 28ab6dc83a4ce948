package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
)

type ProcessingServiceImpl struct {
	runner Runner
	logger *slog.Logger
}

func NewProcessingService(runner Runner, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		runner: runner,
		logger: logger,
	}
}

// ProcessRequest runs one period. Errors are returned unchanged so the consumer can decide
// between acknowledging, dead-lettering and retrying.
func (s *ProcessingServiceImpl) ProcessRequest(ctx context.Context, request *shared.ReconciliationRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	initiator := request.Initiator
	if initiator == "" {
		initiator = "scheduler"
	}

	logger.Info("Processing reconciliation request",
		"request_id", request.RequestID.String(),
		"period", request.Period,
		"mode", string(request.Mode),
	)

	result, err := s.runner.Run(ctx, reconciliation.RunRequest{
		Period:        request.Period,
		Mode:          request.Mode,
		Initiator:     initiator,
		CorrelationID: request.CorrelationID,
	})
	if err != nil {
		return fmt.Errorf("reconciliation of %s failed: %w", request.Period, err)
	}

	logger.Info("Reconciliation request processed",
		"request_id", request.RequestID.String(),
		"run_id", result.RunID.String(),
		"matched_exact", result.MatchedExact,
		"matched_fuzzy", result.MatchedFuzzy,
		"unmatched_gl", result.UnmatchedGL,
		"unmatched_forecast", result.UnmatchedForecast,
	)
	return nil
}
