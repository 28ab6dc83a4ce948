package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestReconciliationRequestProducer_PublishRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("KeyedByPeriod", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconciliationRequestProducer{logger: newTestLogger(), writer: mockWriter, topic: "reconciliation_requests"}

		req := &shared.ReconciliationRequest{
			RequestID:     uuid.New(),
			Period:        "2024-04",
			Mode:          shared.ModeBoth,
			Initiator:     "alice",
			CorrelationID: "corr-1",
			Timestamp:     time.Now().UTC(),
		}
		expected, err := json.Marshal(req)
		require.NoError(t, err)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && string(msgs[0].Key) == "2024-04" && string(msgs[0].Value) == string(expected)
		})).Return(nil).Once()

		require.NoError(t, producer.PublishRequest(ctx, req))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconciliationRequestProducer{logger: newTestLogger(), writer: mockWriter, topic: "reconciliation_requests"}
		writerErr := errors.New("kafka write error")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writerErr).Once()

		err := producer.Publish(ctx, "2024-04", map[string]string{"period": "2024-04"})
		assert.ErrorIs(t, err, writerErr)
	})

	t.Run("UnmarshalableValue", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconciliationRequestProducer{logger: newTestLogger(), writer: mockWriter, topic: "reconciliation_requests"}

		err := producer.Publish(ctx, "k", make(chan int))
		assert.Error(t, err)
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("AppliesTimeoutWithoutDeadline", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconciliationRequestProducer{logger: newTestLogger(), writer: mockWriter, topic: "t", timeout: time.Minute}
		mockWriter.On("WriteMessages", mock.MatchedBy(func(c context.Context) bool {
			_, ok := c.Deadline()
			return ok
		}), mock.Anything).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "k", "v"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("Close", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ReconciliationRequestProducer{logger: newTestLogger(), writer: mockWriter, topic: "t"}
		closeErr := errors.New("kafka close error")
		mockWriter.On("Close").Return(closeErr).Once()

		assert.ErrorIs(t, producer.Close(), closeErr)
	})
}

func TestMatchEventProducer_PublishEvent(t *testing.T) {
	ctx := context.Background()
	record := match.NewRecord(uuid.New(), uuid.New(), shared.Period{Year: 2024, Month: 4}, shared.MatchMethodExact, 1.0, uuid.New(), "scheduler")

	t.Run("CarriesTypeAndCorrelation", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &MatchEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "reconciliation_match_events"}
		event := match.NewRemovedEvent(record, "alice", "unmatch", "corr-9")

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			var decoded match.Event
			if err := json.Unmarshal(msg.Value, &decoded); err != nil {
				return false
			}
			return string(msg.Key) == record.GLEntryID.String() &&
				header(msg, headerEventType) == "MATCH_REMOVED" &&
				header(msg, headerCorrelationID) == "corr-9" &&
				decoded.Reason == "unmatch"
		})).Return(nil).Once()

		require.NoError(t, producer.PublishEvent(ctx, event))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &MatchEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "reconciliation_match_events"}
		writerErr := errors.New("leader not available")
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(writerErr).Once()

		err := producer.PublishEvent(ctx, match.NewCreatedEvent(record, "scheduler", ""))
		assert.ErrorIs(t, err, writerErr)
	})
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("WrapsOriginalMessage", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: mockWriter, dlqTopic: "reconciliation_requests_dlq"}
		original := []byte(`{"period":"2024-13"}`)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var payload map[string]string
			if err := json.Unmarshal(msgs[0].Value, &payload); err != nil {
				return false
			}
			return string(msgs[0].Key) == "2024-13" &&
				payload["original_key"] == "2024-13" &&
				payload["original_value"] == string(original) &&
				payload["dlq_reason"] == "invalid period" &&
				payload["timestamp"] != "" &&
				header(msgs[0], "dlq-reason") == "invalid period"
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "2024-13", original, "invalid period"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: mockWriter, dlqTopic: "dlq"}
		writerErr := errors.New("kafka DLQ write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		assert.ErrorIs(t, producer.PublishToDLQ(ctx, "k", []byte("v"), "r"), writerErr)
	})

	t.Run("Disabled", func(t *testing.T) {
		var producer *DLQProducer
		assert.ErrorIs(t, producer.PublishToDLQ(ctx, "k", []byte("v"), "r"), ErrDLQDisabled)
		assert.NoError(t, producer.Close())
	})
}
