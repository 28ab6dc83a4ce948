package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_ExactScenario(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	gl := newGL(t, "511", 100000, "PRJ-ACME", 0)
	fc := newFC(t, "511", 100000, "PRJ-ACME", 0)
	env.seed(t, []*glentry.Entry{gl}, []*forecast.Line{fc})

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact, Initiator: "alice"})
	require.NoError(t, err)

	assert.Equal(t, shared.RunOutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, res.MatchedExact)
	assert.Equal(t, 0, res.MatchedFuzzy)
	assert.Equal(t, 0, res.UnmatchedGL)
	assert.Equal(t, 0, res.UnmatchedForecast)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, PairView{GLEntryID: gl.ID, ForecastLineID: fc.ID, Method: shared.MatchMethodExact, Score: 1}, res.Pairs[0])

	assert.Equal(t, shared.MatchStatusMatchedExact, env.glStatus(t, gl))
	assert.Equal(t, shared.MatchStatusMatchedExact, env.fcStatus(t, fc))
	recs := env.records(t)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].RunID)
	assert.Equal(t, res.RunID, *recs[0].RunID)
	assert.Equal(t, 1, env.outboxEvents(t)[match.EventTypeCreated])

	logs, err := env.logs.ListByPeriod(context.Background(), april, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, res.RunID, logs[0].RunID)
	assert.Equal(t, shared.RunOutcomeCompleted, logs[0].Outcome)
	assert.Equal(t, "alice", logs[0].Initiator)
	assert.Equal(t, DefaultConfig().Settings(), logs[0].Settings)
}

func TestOrchestrator_FuzzyScenario(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	gl := newGL(t, "511", 98000, "PRJ-ACME", 0)
	fc := newFC(t, "511", 100000, "PRJ-ACME", 0)
	env.seed(t, []*glentry.Entry{gl}, []*forecast.Line{fc})

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeFuzzy})
	require.NoError(t, err)

	assert.Equal(t, 0, res.MatchedExact)
	assert.Equal(t, 1, res.MatchedFuzzy)
	require.Len(t, res.Pairs, 1)
	assert.InDelta(t, 0.99, res.Pairs[0].Score, 1e-9)
	assert.Equal(t, shared.MatchStatusMatchedFuzzy, env.glStatus(t, gl))
}

func TestOrchestrator_TwoEntriesOneLine(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	earlier := newGL(t, "511", 100000, "PRJ-ACME", 0)
	later := newGL(t, "511", 100000, "PRJ-ACME", 5)
	fc := newFC(t, "511", 100000, "PRJ-ACME", 0)
	env.seed(t, []*glentry.Entry{later, earlier}, []*forecast.Line{fc})

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	require.NoError(t, err)

	assert.Equal(t, 1, res.MatchedExact)
	assert.Equal(t, 1, res.UnmatchedGL)
	assert.Equal(t, 0, res.UnmatchedForecast)
	assert.Equal(t, shared.MatchStatusMatchedExact, env.glStatus(t, earlier))
	assert.Equal(t, shared.MatchStatusUnmatched, env.glStatus(t, later))
}

func TestOrchestrator_RerunIsIdempotent(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.seed(t,
		[]*glentry.Entry{
			newGL(t, "511", 100000, "PRJ-ACME", 0),
			newGL(t, "511", 98000, "PRJ-GLOBEX", 1),
			newGL(t, "706", 1200, "", 2),
		},
		[]*forecast.Line{
			newFC(t, "511", 100000, "PRJ-ACME", 0),
			newFC(t, "511", 100000, "PRJ-GLOBEX", 1),
			newFC(t, "999", 5, "", 2),
		},
	)
	ctx := context.Background()

	first, err := env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeBoth})
	require.NoError(t, err)
	assert.Equal(t, 1, first.MatchedExact)
	assert.Equal(t, 1, first.MatchedFuzzy)

	second, err := env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeBoth})
	require.NoError(t, err)
	assert.Equal(t, first.MatchedExact+first.MatchedFuzzy, second.AlreadyMatched)
	assert.Zero(t, second.MatchedExact)
	assert.Zero(t, second.MatchedFuzzy)
	assert.Empty(t, second.Pairs)
	assert.Equal(t, first.UnmatchedGL, second.UnmatchedGL)
	assert.Len(t, env.records(t), 2)

	count, err := env.logs.CountByPeriod(ctx, april)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestOrchestrator_ManualMatchesAreNotTouched(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	gl := newGL(t, "511", 100000, "PRJ-ACME", 0)
	fc := newFC(t, "511", 100000, "PRJ-ACME", 0)
	other := newFC(t, "511", 100000, "PRJ-ACME", 1)
	env.seed(t, []*glentry.Entry{gl}, []*forecast.Line{fc, other})
	ctx := context.Background()

	_, err := env.override.ManualMatch(ctx, OverrideRequest{GLEntryID: gl.ID, ForecastLineID: other.ID, Initiator: "bob"})
	require.NoError(t, err)

	res, err := env.orch.Run(ctx, RunRequest{Period: "2024-04"})
	require.NoError(t, err)

	assert.Equal(t, shared.ModeBoth, res.Mode)
	assert.Equal(t, 1, res.AlreadyMatched)
	assert.Empty(t, res.Pairs)
	assert.Equal(t, 1, res.UnmatchedForecast)
	assert.Equal(t, shared.MatchStatusUnmatched, env.fcStatus(t, fc))
	assert.Equal(t, shared.MatchStatusMatchedManual, env.fcStatus(t, other))
}

func TestOrchestrator_CountsMatchesAcrossPeriods(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	may := shared.Period{Year: 2024, Month: 5}
	gl := newGL(t, "511", 100000, "PRJ-ACME", 0)
	linked := newFC(t, "511", 100000, "PRJ-ACME", 0)
	linked.Period = may
	open := newFC(t, "706", 25000, "INV-3", 1)
	open.Period = may
	env.seed(t, []*glentry.Entry{gl}, []*forecast.Line{linked, open})
	ctx := context.Background()

	_, err := env.override.ManualMatch(ctx, OverrideRequest{GLEntryID: gl.ID, ForecastLineID: linked.ID, Initiator: "controller"})
	require.NoError(t, err)

	mayRun, err := env.orch.Run(ctx, RunRequest{Period: "2024-05"})
	require.NoError(t, err)
	assert.Equal(t, 1, mayRun.AlreadyMatched)
	assert.Zero(t, mayRun.UnmatchedGL)
	assert.Equal(t, 1, mayRun.UnmatchedForecast)
	assert.Empty(t, mayRun.Pairs)

	aprilRun, err := env.orch.Run(ctx, RunRequest{Period: "2024-04"})
	require.NoError(t, err)
	assert.Equal(t, 1, aprilRun.AlreadyMatched)
	assert.Zero(t, aprilRun.UnmatchedGL)
	assert.Zero(t, aprilRun.UnmatchedForecast)
}

func TestOrchestrator_InvalidRequests(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	t.Run("MalformedPeriod", func(t *testing.T) {
		_, err := env.orch.Run(ctx, RunRequest{Period: "2024-13", Mode: shared.ModeExact})
		assert.True(t, errors.Is(err, shared.ErrInvalidPeriod{}))
	})

	t.Run("PeriodWithoutData", func(t *testing.T) {
		_, err := env.orch.Run(ctx, RunRequest{Period: "2031-01", Mode: shared.ModeExact})
		var invalid shared.ErrInvalidPeriod
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "no data", invalid.Reason)
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: "greedy"})
		var invalid shared.ErrInvalidMode
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestOrchestrator_ConcurrentRunConflict(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.seed(t, []*glentry.Entry{newGL(t, "511", 1, "", 0)}, nil)
	ctx := context.Background()

	held, err := env.locker.Acquire(ctx, april)
	require.NoError(t, err)

	_, err = env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	assert.True(t, errors.Is(err, shared.ErrConcurrentRunConflict{}))

	require.NoError(t, held.Release(ctx))
	_, err = env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	assert.NoError(t, err)
}

func seedExactPairs(t *testing.T, env *testEnv, n int) ([]*glentry.Entry, []*forecast.Line) {
	t.Helper()
	var gls []*glentry.Entry
	var fcs []*forecast.Line
	for i := 0; i < n; i++ {
		gls = append(gls, newGL(t, "511", int64(1000*(i+1)), "", i))
		fcs = append(fcs, newFC(t, "511", int64(1000*(i+1)), "", i))
	}
	env.seed(t, gls, fcs)
	return gls, fcs
}

func TestOrchestrator_CommitsInBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 2

	var commits int
	env := newTestEnv(t, cfg, withUnitOfWork(func(inner unitofwork.UnitOfWork) unitofwork.UnitOfWork {
		return &hookedUnitOfWork{inner: inner, after: func(n int) { commits = n }}
	}))
	seedExactPairs(t, env, 5)

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	require.NoError(t, err)

	assert.Equal(t, 5, res.MatchedExact)
	assert.Equal(t, 3, commits)
}

func TestOrchestrator_ConflictingPairIsDropped(t *testing.T) {
	var env *testEnv
	var contested *glentry.Entry
	var spare *forecast.Line

	env = newTestEnv(t, DefaultConfig(), withUnitOfWork(func(inner unitofwork.UnitOfWork) unitofwork.UnitOfWork {
		return &hookedUnitOfWork{inner: inner, before: func() {
			// a manual match wins the race between snapshot and commit
			_, err := env.override.ManualMatch(context.Background(), OverrideRequest{GLEntryID: contested.ID, ForecastLineID: spare.ID, Initiator: "bob"})
			require.NoError(t, err)
		}}
	}))

	gls, fcs := seedExactPairs(t, env, 2)
	contested = gls[0]
	spare = newFC(t, "511", 777, "", 9)
	env.seed(t, nil, []*forecast.Line{spare})

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	require.NoError(t, err)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, gls[1].ID, res.Pairs[0].GLEntryID)
	assert.Equal(t, shared.MatchStatusMatchedManual, env.glStatus(t, gls[0]))
	assert.Equal(t, shared.MatchStatusUnmatched, env.fcStatus(t, fcs[0]))
	assert.Len(t, env.records(t), 2)
}

func TestOrchestrator_CancellationKeepsCommittedBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := newTestEnv(t, cfg, withUnitOfWork(func(inner unitofwork.UnitOfWork) unitofwork.UnitOfWork {
		return &hookedUnitOfWork{inner: inner, after: func(n int) {
			if n == 1 {
				cancel()
			}
		}}
	}))
	seedExactPairs(t, env, 3)

	res, err := env.orch.Run(ctx, RunRequest{Period: "2024-04", Mode: shared.ModeExact})
	require.ErrorIs(t, err, ErrRunCancelled)
	require.NotNil(t, res)

	assert.Equal(t, shared.RunOutcomeCancelled, res.Outcome)
	assert.Equal(t, 1, res.MatchedExact)
	assert.Equal(t, 2, res.UnmatchedGL)
	assert.Len(t, env.records(t), 1)

	logs, err := env.logs.ListByPeriod(context.Background(), april, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, shared.RunOutcomeCancelled, logs[0].Outcome)

	// lock was released despite the cancelled context
	lock, err := env.locker.Acquire(context.Background(), april)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
}

func TestOrchestrator_StoreFailureIsCompensated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSize = 1

	env := newTestEnv(t, cfg, withUnitOfWork(func(inner unitofwork.UnitOfWork) unitofwork.UnitOfWork {
		return &faultyUnitOfWork{inner: inner, failAfter: 2}
	}))
	gls, fcs := seedExactPairs(t, env, 3)

	res, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact, Initiator: "scheduler"})
	assert.Nil(t, res)

	var storeErr ErrStoreFailure
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, errStoreDown)

	assert.Empty(t, env.records(t))
	for i := range gls {
		assert.Equal(t, shared.MatchStatusUnmatched, env.glStatus(t, gls[i]))
		assert.Equal(t, shared.MatchStatusUnmatched, env.fcStatus(t, fcs[i]))
	}

	events := env.outboxEvents(t)
	assert.Equal(t, 2, events[match.EventTypeCreated])
	assert.Equal(t, 2, events[match.EventTypeRemoved])

	logs, err := env.logs.ListByPeriod(context.Background(), april, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, shared.RunOutcomeFailed, logs[0].Outcome)
	assert.Zero(t, logs[0].Counts.MatchedExact)
	assert.NotEmpty(t, logs[0].FailureReason)
}

func TestOrchestrator_LogFailureUndoesRun(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), withLogs(failingLogs{}))
	gls, _ := seedExactPairs(t, env, 2)

	_, err := env.orch.Run(context.Background(), RunRequest{Period: "2024-04", Mode: shared.ModeExact})

	var storeErr ErrStoreFailure
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "append reconciliation log", storeErr.Op)
	assert.Empty(t, env.records(t))
	assert.Equal(t, shared.MatchStatusUnmatched, env.glStatus(t, gls[0]))
}
