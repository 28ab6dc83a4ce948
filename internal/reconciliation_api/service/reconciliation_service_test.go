package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/data/memory"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req reconciliation.RunRequest) (*reconciliation.RunResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.RunResult), args.Error(1)
}

type MockOverrider struct {
	mock.Mock
}

func (m *MockOverrider) ManualMatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Record), args.Error(1)
}

func (m *MockOverrider) Unmatch(ctx context.Context, req reconciliation.OverrideRequest) (*match.Record, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Record), args.Error(1)
}

type MockRequestPublisher struct {
	mock.Mock
}

func (m *MockRequestPublisher) PublishRequest(ctx context.Context, req *shared.ReconciliationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type failingLogRepository struct {
	reconlog.Repository
	err error
}

func (f failingLogRepository) ListByPeriod(context.Context, shared.Period, int, int) ([]*reconlog.Log, error) {
	return nil, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconciliationService_Execute(t *testing.T) {
	runner := new(MockRunner)
	svc := NewReconciliationService(testLogger(), runner, nil, nil, nil, nil)

	req := reconciliation.RunRequest{Period: "2024-04", Mode: shared.ModeExact, Initiator: "alice"}
	want := &reconciliation.RunResult{RunID: uuid.New()}
	runner.On("Run", mock.Anything, req).Return(want, nil)

	got, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, want, got)
	runner.AssertExpectations(t)
}

func TestReconciliationService_Schedule(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesNormalisedRequest", func(t *testing.T) {
		publisher := new(MockRequestPublisher)
		svc := NewReconciliationService(testLogger(), nil, nil, nil, nil, publisher)

		publisher.On("PublishRequest", mock.Anything, mock.MatchedBy(func(r *shared.ReconciliationRequest) bool {
			return r.Period == "2024-04" && r.Mode == shared.ModeBoth && r.CorrelationID == "corr-1" &&
				r.RequestID != uuid.Nil && !r.Timestamp.IsZero()
		})).Return(nil)

		request, err := svc.Schedule(ctx, reconciliation.RunRequest{Period: "2024-04", CorrelationID: "corr-1"})
		require.NoError(t, err)
		assert.Equal(t, shared.ModeBoth, request.Mode)
		publisher.AssertExpectations(t)
	})

	t.Run("RejectsInvalidPeriod", func(t *testing.T) {
		publisher := new(MockRequestPublisher)
		svc := NewReconciliationService(testLogger(), nil, nil, nil, nil, publisher)

		_, err := svc.Schedule(ctx, reconciliation.RunRequest{Period: "2024-13"})
		assert.ErrorIs(t, err, shared.ErrInvalidPeriod{})
		publisher.AssertNotCalled(t, "PublishRequest", mock.Anything, mock.Anything)
	})

	t.Run("RejectsInvalidMode", func(t *testing.T) {
		publisher := new(MockRequestPublisher)
		svc := NewReconciliationService(testLogger(), nil, nil, nil, nil, publisher)

		_, err := svc.Schedule(ctx, reconciliation.RunRequest{Period: "2024-04", Mode: "greedy"})
		var modeErr shared.ErrInvalidMode
		assert.ErrorAs(t, err, &modeErr)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		publisher := new(MockRequestPublisher)
		svc := NewReconciliationService(testLogger(), nil, nil, nil, nil, publisher)
		publisher.On("PublishRequest", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

		_, err := svc.Schedule(ctx, reconciliation.RunRequest{Period: "2024-04"})
		assert.ErrorContains(t, err, "broker unavailable")
	})

	t.Run("Disabled", func(t *testing.T) {
		svc := NewReconciliationService(testLogger(), nil, nil, nil, nil, nil)

		_, err := svc.Schedule(ctx, reconciliation.RunRequest{Period: "2024-04"})
		assert.ErrorIs(t, err, ErrSchedulingDisabled)
	})
}

func TestReconciliationService_Overrides(t *testing.T) {
	overrider := new(MockOverrider)
	svc := NewReconciliationService(testLogger(), nil, overrider, nil, nil, nil)

	req := reconciliation.OverrideRequest{GLEntryID: uuid.New(), ForecastLineID: uuid.New(), Initiator: "bob"}
	rec := match.NewManualRecord(req.GLEntryID, req.ForecastLineID, shared.Period{Year: 2024, Month: 4}, "bob")
	overrider.On("ManualMatch", mock.Anything, req).Return(rec, nil)
	overrider.On("Unmatch", mock.Anything, req).Return(nil, match.ErrNotMatched{})

	got, err := svc.ManualMatch(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, rec, got)

	_, err = svc.Unmatch(context.Background(), req)
	assert.ErrorIs(t, err, match.ErrNotMatched{})
}

func TestReconciliationService_Logs(t *testing.T) {
	ctx := context.Background()
	april := shared.Period{Year: 2024, Month: 4}

	t.Run("PagesNewestFirst", func(t *testing.T) {
		logs := memory.NewReconciliationLogRepository()
		base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, logs.Append(ctx, &reconlog.Log{
				RunID:     uuid.New(),
				Period:    april,
				Mode:      shared.ModeBoth,
				Outcome:   shared.RunOutcomeCompleted,
				StartedAt: base.Add(time.Duration(i) * time.Hour),
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}
		svc := NewReconciliationService(testLogger(), nil, nil, nil, logs, nil)

		page, total, err := svc.Logs(ctx, "2024-04", 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

		page, _, err = svc.Logs(ctx, "2024-04", 2, 2)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("InvalidPeriod", func(t *testing.T) {
		svc := NewReconciliationService(testLogger(), nil, nil, nil, memory.NewReconciliationLogRepository(), nil)

		_, _, err := svc.Logs(ctx, "April", 1, 10)
		assert.ErrorIs(t, err, shared.ErrInvalidPeriod{})
	})

	t.Run("StoreFailure", func(t *testing.T) {
		repo := failingLogRepository{err: errors.New("server selection timeout")}
		svc := NewReconciliationService(testLogger(), nil, nil, nil, repo, nil)

		_, _, err := svc.Logs(ctx, "2024-04", 1, 10)
		assert.ErrorIs(t, err, reconciliation.ErrStoreFailure{})
	})
}
