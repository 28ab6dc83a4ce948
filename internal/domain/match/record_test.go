package match

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	glID, fcID, runID := uuid.New(), uuid.New(), uuid.New()
	period := shared.Period{Year: 2024, Month: 4}

	t.Run("Automatic", func(t *testing.T) {
		rec := NewRecord(glID, fcID, period, shared.MatchMethodFuzzy, 0.91, runID, "scheduler")

		assert.NotEqual(t, uuid.Nil, rec.ID)
		require.NotNil(t, rec.RunID)
		assert.Equal(t, runID, *rec.RunID)
		assert.Equal(t, 0.91, rec.Score)
		assert.True(t, rec.Links(glID, fcID))
		assert.False(t, rec.Links(fcID, glID))
	})

	t.Run("Manual", func(t *testing.T) {
		rec := NewManualRecord(glID, fcID, period, "controller@example.com")

		assert.Equal(t, shared.MatchMethodManual, rec.Method)
		assert.Equal(t, 1.0, rec.Score)
		assert.Nil(t, rec.RunID)
	})
}

func TestMatchErrors_Is(t *testing.T) {
	already := error(ErrAlreadyMatched{GLEntryID: uuid.New()})
	notMatched := error(ErrNotMatched{GLEntryID: uuid.New()})

	assert.True(t, errors.Is(already, ErrAlreadyMatched{}))
	assert.False(t, errors.Is(already, ErrNotMatched{}))
	assert.True(t, errors.Is(notMatched, ErrNotMatched{}))
}

func TestNewEvents(t *testing.T) {
	rec := NewManualRecord(uuid.New(), uuid.New(), shared.Period{Year: 2024, Month: 4}, "alice")

	created := NewCreatedEvent(rec, "alice", "corr-1")
	assert.Equal(t, EventTypeCreated, created.Type)
	assert.Equal(t, rec.ID, created.Record.ID)
	assert.Equal(t, "corr-1", created.CorrelationID)

	removed := NewRemovedEvent(rec, "bob", "unmatch", "")
	assert.Equal(t, EventTypeRemoved, removed.Type)
	assert.Equal(t, "unmatch", removed.Reason)
}
