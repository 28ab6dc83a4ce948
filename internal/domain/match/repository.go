package match

import (
	"context"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Repository manages match record persistence.
// At most one record may exist per GL entry id and per forecast line id.
type Repository interface {
	// Create returns ErrAlreadyMatched when either side already has a record
	Create(ctx context.Context, record *Record) error

	// Delete removes the record linking exactly these ids, or returns ErrNotMatched
	Delete(ctx context.Context, glEntryID, forecastLineID uuid.UUID) error

	// GetByGLEntryID returns nil, nil when the entry has no active record
	GetByGLEntryID(ctx context.Context, glEntryID uuid.UUID) (*Record, error)
	GetByForecastLineID(ctx context.Context, forecastLineID uuid.UUID) (*Record, error)
	ListByPeriod(ctx context.Context, period shared.Period) ([]*Record, error)
}

// ErrAlreadyMatched indicates a pairing was requested for an id that already has an active match
type ErrAlreadyMatched struct {
	GLEntryID      uuid.UUID
	ForecastLineID uuid.UUID
}

func (e ErrAlreadyMatched) Error() string {
	return "gl entry " + e.GLEntryID.String() + " or forecast line " + e.ForecastLineID.String() + " is already matched"
}

// Is matches any ErrAlreadyMatched regardless of ids
func (e ErrAlreadyMatched) Is(target error) bool {
	_, ok := target.(ErrAlreadyMatched)
	return ok
}

// ErrNotMatched indicates no active pairing exists between the two ids
type ErrNotMatched struct {
	GLEntryID      uuid.UUID
	ForecastLineID uuid.UUID
}

func (e ErrNotMatched) Error() string {
	return "gl entry " + e.GLEntryID.String() + " is not matched with forecast line " + e.ForecastLineID.String()
}

// Is matches any ErrNotMatched regardless of ids
func (e ErrNotMatched) Is(target error) bool {
	_, ok := target.(ErrNotMatched)
	return ok
}
