package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		record := match.NewRecord(uuid.New(), uuid.New(), shared.Period{Year: 2024, Month: 4}, shared.MatchMethodExact, 1.0, uuid.New(), "scheduler")
		event := match.NewCreatedEvent(record, "scheduler", "corr-7")

		beforeCreation := time.Now()
		msg, err := NewMessage(event)
		afterCreation := time.Now()

		require.NoError(t, err)
		assert.Equal(t, record.ID, msg.MatchRecordID)
		assert.Equal(t, match.EventTypeCreated, msg.EventType)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		decoded, err := msg.GetEvent()
		require.NoError(t, err)
		assert.Equal(t, record.GLEntryID, decoded.Record.GLEntryID)
		assert.Equal(t, record.ForecastLineID, decoded.Record.ForecastLineID)
		assert.Equal(t, "corr-7", decoded.CorrelationID)
	})
}

func TestMessage_StatusTransitions(t *testing.T) {
	t.Run("IncrementAttempts", func(t *testing.T) {
		msg := &Message{Attempts: 1}
		msg.IncrementAttempts()
		assert.Equal(t, 2, msg.Attempts)
		require.NotNil(t, msg.LastAttemptAt)
	})

	t.Run("MarkAsProcessed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending}
		msg.MarkAsProcessed()
		assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
		require.NotNil(t, msg.LastAttemptAt)
	})

	t.Run("MarkAsFailed", func(t *testing.T) {
		msg := &Message{Status: shared.OutboxStatusPending}
		msg.MarkAsFailed()
		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
	})

	t.Run("GetEventWithCorruptPayload", func(t *testing.T) {
		msg := &Message{Payload: []byte("{not json")}
		_, err := msg.GetEvent()
		assert.Error(t, err)
	})
}
