package reconciliation

import (
	"errors"
	"fmt"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// ErrRunCancelled is returned alongside the partial result of a cancelled run
var ErrRunCancelled = errors.New("reconciliation run cancelled")

// ErrStoreFailure wraps an underlying persistence error. It is never retried by the engine.
type ErrStoreFailure struct {
	Op  string
	Err error
}

func (e ErrStoreFailure) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e ErrStoreFailure) Unwrap() error {
	return e.Err
}

// Is matches any ErrStoreFailure regardless of operation
func (e ErrStoreFailure) Is(target error) bool {
	_, ok := target.(ErrStoreFailure)
	return ok
}

// isDomainError reports errors that callers must see unchanged
func isDomainError(err error) bool {
	return errors.Is(err, glentry.ErrEntryNotFound{}) ||
		errors.Is(err, forecast.ErrLineNotFound{}) ||
		errors.Is(err, match.ErrAlreadyMatched{}) ||
		errors.Is(err, match.ErrNotMatched{}) ||
		errors.Is(err, shared.ErrInvalidPeriod{}) ||
		errors.Is(err, shared.ErrConcurrentRunConflict{})
}

// classify keeps domain errors and turns everything else into ErrStoreFailure
func classify(op string, err error) error {
	if err == nil || isDomainError(err) || errors.Is(err, ErrStoreFailure{}) {
		return err
	}
	return ErrStoreFailure{Op: op, Err: err}
}
