package shared

import (
	"github.com/google/uuid"
)

// ErrInvalidPeriod indicates a malformed period or a period without data
type ErrInvalidPeriod struct {
	Value  string
	Reason string
}

func (e ErrInvalidPeriod) Error() string {
	return "invalid period " + e.Value + ": " + e.Reason
}

// Is matches any ErrInvalidPeriod regardless of its fields
func (e ErrInvalidPeriod) Is(target error) bool {
	_, ok := target.(ErrInvalidPeriod)
	return ok
}

// ErrInvalidMode indicates an unsupported reconciliation mode
type ErrInvalidMode struct {
	Mode string
}

func (e ErrInvalidMode) Error() string {
	return "invalid reconciliation mode: " + e.Mode + " (expected exact, fuzzy or both)"
}

// ErrStatusConflict indicates a compare-and-set on an entity's match status lost a race
type ErrStatusConflict struct {
	EntityID uuid.UUID
	Expected MatchStatus
}

func (e ErrStatusConflict) Error() string {
	return "match status of " + e.EntityID.String() + " is no longer " + string(e.Expected)
}

// Is matches any ErrStatusConflict when the target carries no entity id
func (e ErrStatusConflict) Is(target error) bool {
	t, ok := target.(ErrStatusConflict)
	if !ok {
		return false
	}
	if t.EntityID == uuid.Nil {
		return true
	}
	return e.EntityID == t.EntityID
}

// ErrConcurrentRunConflict indicates another run already holds the period
type ErrConcurrentRunConflict struct {
	Period Period
}

func (e ErrConcurrentRunConflict) Error() string {
	return "a reconciliation run is already active for period " + e.Period.String()
}

// Is matches any ErrConcurrentRunConflict regardless of the period
func (e ErrConcurrentRunConflict) Is(target error) bool {
	_, ok := target.(ErrConcurrentRunConflict)
	return ok
}
