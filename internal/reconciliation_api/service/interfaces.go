package service

import (
	"context"

	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
)

// ReconciliationService is everything the HTTP layer can ask of the reconciliation engine
type ReconciliationService interface {
	// Execute runs reconciliation synchronously.
	// Returns ErrInvalidPeriod, ErrInvalidMode, ErrConcurrentRunConflict or ErrStoreFailure.
	Execute(ctx context.Context, req reconciliation.RunRequest) (*reconciliation.RunResult, error)

	// Schedule validates the request and queues it for the worker
	Schedule(ctx context.Context, req reconciliation.RunRequest) (*shared.ReconciliationRequest, error)

	AccountSummary(ctx context.Context, period string) (*reconciliation.AccountSummary, error)

	// ManualMatch returns ErrAlreadyMatched when either side is already paired
	ManualMatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error)

	// Unmatch returns ErrNotMatched unless the two ids are currently paired with each other
	Unmatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error)

	// Logs returns one page of run logs for a period, newest first, and the total count
	Logs(ctx context.Context, period string, page, perPage int) ([]*reconlog.Log, int64, error)
}

// Runner runs one reconciliation
type Runner interface {
	Run(ctx context.Context, req reconciliation.RunRequest) (*reconciliation.RunResult, error)
}

// Overrider applies human-directed match changes
type Overrider interface {
	ManualMatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error)
	Unmatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error)
}

// Summarizer aggregates per-account totals
type Summarizer interface {
	AccountSummary(ctx context.Context, period string) (*reconciliation.AccountSummary, error)
}

// RequestPublisher queues reconciliation requests
type RequestPublisher interface {
	PublishRequest(ctx context.Context, req *shared.ReconciliationRequest) error
}
