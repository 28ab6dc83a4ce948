package reconlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Repository is the append-only reconciliation log store
type Repository interface {
	Append(ctx context.Context, log *Log) error
	GetByRunID(ctx context.Context, runID uuid.UUID) (*Log, error)

	// ListByPeriod returns logs newest first
	ListByPeriod(ctx context.Context, period shared.Period, limit, offset int) ([]*Log, error)
	CountByPeriod(ctx context.Context, period shared.Period) (int64, error)
}

// ErrLogNotFound indicates missing reconciliation log
type ErrLogNotFound struct {
	RunID uuid.UUID
}

func (e ErrLogNotFound) Error() string {
	return "reconciliation log not found: " + e.RunID.String()
}

// Is implements the errors.Is interface for ErrLogNotFound
func (e ErrLogNotFound) Is(target error) bool {
	t, ok := target.(ErrLogNotFound)
	if !ok {
		return false
	}
	if t.RunID == uuid.Nil {
		return true
	}
	return e.RunID == t.RunID
}

// ErrDuplicateLog indicates an attempt to overwrite an existing run's log
type ErrDuplicateLog struct {
	RunID uuid.UUID
}

func (e ErrDuplicateLog) Error() string {
	return "reconciliation log already exists: " + e.RunID.String()
}

// Is implements the errors.Is interface for ErrDuplicateLog
func (e ErrDuplicateLog) Is(target error) bool {
	t, ok := target.(ErrDuplicateLog)
	if !ok {
		return false
	}
	if t.RunID == uuid.Nil {
		return true
	}
	return e.RunID == t.RunID
}
