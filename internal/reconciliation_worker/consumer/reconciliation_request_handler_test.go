package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessRequest(ctx context.Context, request *shared.ReconciliationRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	request := &shared.ReconciliationRequest{
		RequestID:     uuid.New(),
		Period:        "2024-04",
		Mode:          shared.ModeExact,
		Initiator:     "alice",
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
	}
	validJSON, err := json.Marshal(request)
	assert.NoError(t, err)

	reasonHas := func(prefix string) interface{} {
		return mock.MatchedBy(func(reason string) bool {
			return len(reason) >= len(prefix) && reason[:len(prefix)] == prefix
		})
	}

	tests := []struct {
		name       string
		value      []byte
		processErr error
		setupDLQ   func(m *MockDeadLetterPublisher)
		wantErr    bool
	}{
		{
			name:  "successful run",
			value: validJSON,
		},
		{
			name:       "concurrent run is acknowledged",
			value:      validJSON,
			processErr: shared.ErrConcurrentRunConflict{Period: shared.Period{Year: 2024, Month: 4}},
		},
		{
			name:       "cancelled run is acknowledged",
			value:      validJSON,
			processErr: reconciliation.ErrRunCancelled,
		},
		{
			name:       "invalid period goes to DLQ",
			value:      validJSON,
			processErr: shared.ErrInvalidPeriod{Value: "2024-04", Reason: "no data"},
			setupDLQ: func(m *MockDeadLetterPublisher) {
				m.On("PublishToDLQ", mock.Anything, "2024-04", validJSON, reasonHas("invalid period")).Return(nil).Once()
			},
		},
		{
			name:       "invalid mode goes to DLQ",
			value:      validJSON,
			processErr: shared.ErrInvalidMode{Mode: "sideways"},
			setupDLQ: func(m *MockDeadLetterPublisher) {
				m.On("PublishToDLQ", mock.Anything, "2024-04", validJSON, reasonHas("invalid mode")).Return(nil).Once()
			},
		},
		{
			name:       "store failure goes to DLQ",
			value:      validJSON,
			processErr: reconciliation.ErrStoreFailure{Op: "commit match batch", Err: errors.New("conn reset")},
			setupDLQ: func(m *MockDeadLetterPublisher) {
				m.On("PublishToDLQ", mock.Anything, "2024-04", validJSON, reasonHas("store failure")).Return(nil).Once()
			},
		},
		{
			name:       "store failure with DLQ down is retried",
			value:      validJSON,
			processErr: reconciliation.ErrStoreFailure{Op: "commit match batch", Err: errors.New("conn reset")},
			setupDLQ: func(m *MockDeadLetterPublisher) {
				m.On("PublishToDLQ", mock.Anything, "2024-04", validJSON, mock.Anything).Return(errors.New("dlq error")).Once()
			},
			wantErr: true,
		},
		{
			name:  "malformed payload goes to DLQ",
			value: []byte("invalid json"),
			setupDLQ: func(m *MockDeadLetterPublisher) {
				m.On("PublishToDLQ", mock.Anything, "2024-04", []byte("invalid json"), reasonHas("unmarshal")).Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processing := &MockProcessingService{}
			dlq := &MockDeadLetterPublisher{}
			if tt.setupDLQ != nil {
				tt.setupDLQ(dlq)
			}
			if json.Valid(tt.value) {
				processing.On("ProcessRequest", mock.Anything, mock.MatchedBy(func(r *shared.ReconciliationRequest) bool {
					return r.RequestID == request.RequestID
				})).Return(tt.processErr).Once()
			}

			handler := NewReconciliationRequestHandler(slog.Default(), processing, dlq)
			err := handler.HandleMessage(context.Background(), []byte("2024-04"), tt.value)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			processing.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_WithoutDLQ(t *testing.T) {
	handler := NewReconciliationRequestHandler(slog.Default(), &MockProcessingService{}, nil)

	err := handler.HandleMessage(context.Background(), []byte("k"), []byte("{"))
	assert.Error(t, err)
}
