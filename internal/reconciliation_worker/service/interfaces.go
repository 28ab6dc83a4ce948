package service

import (
	"context"

	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
)

// ProcessingService runs the reconciliation a queued request asks for
type ProcessingService interface {
	ProcessRequest(ctx context.Context, request *shared.ReconciliationRequest) error
}

// Runner is the part of the reconciliation orchestrator the worker drives
type Runner interface {
	Run(ctx context.Context, req reconciliation.RunRequest) (*reconciliation.RunResult, error)
}
