package shared

import "context"

// PeriodLocker grants exclusive ownership of a fiscal period to one reconciliation run.
// Acquire returns ErrConcurrentRunConflict when the period is already held.
type PeriodLocker interface {
	Acquire(ctx context.Context, period Period) (PeriodLock, error)
}

// PeriodLock is a held period lock
type PeriodLock interface {
	// Refresh extends the lock. It fails when ownership was lost.
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}
