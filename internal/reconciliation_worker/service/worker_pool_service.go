package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// WorkerPoolProcessingService bounds how many reconciliation runs execute at once
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessRequest submits the request to the pool and waits for its result
func (s *WorkerPoolProcessingService) ProcessRequest(ctx context.Context, request *shared.ReconciliationRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting reconciliation request to worker pool",
		"request_id", request.RequestID.String(),
		"period", request.Period,
	)

	resultChan := make(chan error, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessRequest(ctx, &requestCopy)
	})
	if err != nil {
		logger.Error("Failed to submit reconciliation request to worker pool",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown releases the pool; runs already executing are not interrupted
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
