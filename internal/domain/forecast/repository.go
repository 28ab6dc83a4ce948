package forecast

import (
	"context"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Repository defines forecast line persistence operations
type Repository interface {
	Create(ctx context.Context, line *Line) error
	GetByID(ctx context.Context, id uuid.UUID) (*Line, error)
	ListByPeriod(ctx context.Context, period shared.Period) ([]*Line, error)

	// UpdateMatchStatus is a compare-and-set, see glentry.Repository
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, expected, status shared.MatchStatus, glEntryID *uuid.UUID) error
}

// ErrLineNotFound indicates missing forecast line
type ErrLineNotFound struct {
	LineID uuid.UUID
}

func (e ErrLineNotFound) Error() string {
	return "forecast line not found: " + e.LineID.String()
}

// Is implements the errors.Is interface for ErrLineNotFound
func (e ErrLineNotFound) Is(target error) bool {
	t, ok := target.(ErrLineNotFound)
	if !ok {
		return false
	}
	if t.LineID == uuid.Nil {
		return true
	}
	return e.LineID == t.LineID
}
