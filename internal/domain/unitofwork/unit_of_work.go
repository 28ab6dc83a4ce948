// Package unitofwork defines the atomic scope in which match records and the
// cached entity statuses they imply are written together.
package unitofwork

import (
	"context"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/outbox"
)

// Repositories are bound to a single transaction for the duration of Do
type Repositories struct {
	GLEntries     glentry.Repository
	ForecastLines forecast.Repository
	Matches       match.Repository
	Outbox        outbox.Repository
}

// UnitOfWork commits everything fn writes, or nothing when fn returns an error
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
