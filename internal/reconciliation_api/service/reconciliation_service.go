package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
)

// ErrSchedulingDisabled is returned by Schedule when no request publisher is configured
var ErrSchedulingDisabled = errors.New("reconciliation scheduling is not configured")

// ReconciliationServiceImpl implements ReconciliationService
type ReconciliationServiceImpl struct {
	runner     Runner
	overrider  Overrider
	summarizer Summarizer
	logs       reconlog.Repository
	publisher  RequestPublisher
	logger     *slog.Logger
}

// NewReconciliationService wires the engine components; publisher may be nil
func NewReconciliationService(
	logger *slog.Logger,
	runner Runner,
	overrider Overrider,
	summarizer Summarizer,
	logs reconlog.Repository,
	publisher RequestPublisher,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		runner:     runner,
		overrider:  overrider,
		summarizer: summarizer,
		logs:       logs,
		publisher:  publisher,
		logger:     logger,
	}
}

var _ ReconciliationService = (*ReconciliationServiceImpl)(nil)

func (s *ReconciliationServiceImpl) Execute(ctx context.Context, req reconciliation.RunRequest) (*reconciliation.RunResult, error) {
	return s.runner.Run(ctx, req)
}

// Schedule rejects malformed periods and modes before anything is queued
func (s *ReconciliationServiceImpl) Schedule(ctx context.Context, req reconciliation.RunRequest) (*shared.ReconciliationRequest, error) {
	if s.publisher == nil {
		return nil, ErrSchedulingDisabled
	}

	period, err := shared.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = shared.ModeBoth
	}
	if mode, err = shared.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	request := &shared.ReconciliationRequest{
		RequestID:     uuid.New(),
		Period:        period.String(),
		Mode:          mode,
		Initiator:     req.Initiator,
		CorrelationID: req.CorrelationID,
		Timestamp:     time.Now().UTC(),
	}

	if err := s.publisher.PublishRequest(ctx, request); err != nil {
		s.logger.Error("Failed to schedule reconciliation",
			"period", request.Period,
			"correlation_id", req.CorrelationID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.logger.Info("Reconciliation scheduled",
		"request_id", request.RequestID.String(),
		"period", request.Period,
		"mode", string(request.Mode),
		"correlation_id", req.CorrelationID,
	)
	return request, nil
}

func (s *ReconciliationServiceImpl) AccountSummary(ctx context.Context, period string) (*reconciliation.AccountSummary, error) {
	return s.summarizer.AccountSummary(ctx, period)
}

func (s *ReconciliationServiceImpl) ManualMatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error) {
	return s.overrider.ManualMatch(ctx, req)
}

func (s *ReconciliationServiceImpl) Unmatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error) {
	return s.overrider.Unmatch(ctx, req)
}

// Logs fetches a page and the total for the period; store errors surface as ErrStoreFailure
func (s *ReconciliationServiceImpl) Logs(ctx context.Context, periodValue string, page, perPage int) ([]*reconlog.Log, int64, error) {
	period, err := shared.ParsePeriod(periodValue)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	logs, err := s.logs.ListByPeriod(ctx, period, perPage, offset)
	if err != nil {
		return nil, 0, reconciliation.ErrStoreFailure{Op: "list reconciliation logs", Err: err}
	}

	total, err := s.logs.CountByPeriod(ctx, period)
	if err != nil {
		return nil, 0, reconciliation.ErrStoreFailure{Op: "count reconciliation logs", Err: err}
	}

	return logs, total, nil
}
