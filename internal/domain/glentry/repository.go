package glentry

import (
	"context"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Repository defines GL entry persistence operations
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByPeriod(ctx context.Context, period shared.Period) ([]*Entry, error)

	// UpdateMatchStatus is a compare-and-set on the cached match status.
	// It returns shared.ErrStatusConflict when the current status differs from expected.
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, expected, status shared.MatchStatus, forecastLineID *uuid.UUID) error
}

// ErrEntryNotFound indicates missing GL entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "gl entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
