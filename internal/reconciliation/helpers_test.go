package reconciliation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/revenue-reconciliation/internal/data/memory"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
	"github.com/revenue-reconciliation/internal/platform/locking"
	"github.com/stretchr/testify/require"
)

var (
	april     = shared.Period{Year: 2024, Month: 4}
	aprilDay  = time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	createdT0 = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	errStoreDown = errors.New("connection reset by peer")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newGL builds an April entry created seq seconds after createdT0
func newGL(t *testing.T, account string, amount int64, reference string, seq int) *glentry.Entry {
	t.Helper()
	e, err := glentry.NewEntry(april, account, amount, reference, aprilDay, "")
	require.NoError(t, err)
	e.CreatedAt = createdT0.Add(time.Duration(seq) * time.Second)
	return e
}

func newFC(t *testing.T, account string, amount int64, reference string, seq int) *forecast.Line {
	t.Helper()
	l, err := forecast.NewLine(april, reference, amount, account)
	require.NoError(t, err)
	l.CreatedAt = createdT0.Add(time.Duration(seq) * time.Second)
	return l
}

type testEnv struct {
	store    *memory.Store
	logs     *memory.ReconciliationLogRepository
	locker   *locking.LocalLocker
	orch     *Orchestrator
	override *OverrideHandler
	summary  *SummaryAggregator
}

type envOption func(*Stores)

func withUnitOfWork(wrap func(unitofwork.UnitOfWork) unitofwork.UnitOfWork) envOption {
	return func(s *Stores) { s.UnitOfWork = wrap(s.UnitOfWork) }
}

func withLogs(logs reconlog.Repository) envOption {
	return func(s *Stores) { s.Logs = logs }
}

func newTestEnv(t *testing.T, cfg Config, opts ...envOption) *testEnv {
	t.Helper()
	store := memory.NewStore()
	logs := memory.NewReconciliationLogRepository()
	locker := locking.NewLocalLocker()

	stores := Stores{
		GLEntries:     store.GLEntries(),
		ForecastLines: store.ForecastLines(),
		Matches:       store.Matches(),
		Logs:          logs,
		UnitOfWork:    store,
	}
	for _, opt := range opts {
		opt(&stores)
	}

	return &testEnv{
		store:    store,
		logs:     logs,
		locker:   locker,
		orch:     NewOrchestrator(stores, locker, cfg, testLogger()),
		override: NewOverrideHandler(store, testLogger()),
		summary:  NewSummaryAggregator(store.GLEntries(), store.Matches(), testLogger()),
	}
}

func (e *testEnv) seed(t *testing.T, gls []*glentry.Entry, fcs []*forecast.Line) {
	t.Helper()
	ctx := context.Background()
	for _, gl := range gls {
		require.NoError(t, e.store.GLEntries().Create(ctx, gl))
	}
	for _, fc := range fcs {
		require.NoError(t, e.store.ForecastLines().Create(ctx, fc))
	}
}

func (e *testEnv) records(t *testing.T) []*match.Record {
	t.Helper()
	recs, err := e.store.Matches().ListByPeriod(context.Background(), april)
	require.NoError(t, err)
	return recs
}

func (e *testEnv) glStatus(t *testing.T, gl *glentry.Entry) shared.MatchStatus {
	t.Helper()
	got, err := e.store.GLEntries().GetByID(context.Background(), gl.ID)
	require.NoError(t, err)
	return got.MatchStatus
}

func (e *testEnv) fcStatus(t *testing.T, fc *forecast.Line) shared.MatchStatus {
	t.Helper()
	got, err := e.store.ForecastLines().GetByID(context.Background(), fc.ID)
	require.NoError(t, err)
	return got.MatchStatus
}

func (e *testEnv) outboxEvents(t *testing.T) map[match.EventType]int {
	t.Helper()
	msgs, err := e.store.Outbox().GetPending(context.Background(), 1000)
	require.NoError(t, err)
	counts := make(map[match.EventType]int)
	for _, m := range msgs {
		counts[m.EventType]++
	}
	return counts
}

// hookedUnitOfWork runs before ahead of the first transaction and after behind every committed one
type hookedUnitOfWork struct {
	inner  unitofwork.UnitOfWork
	before func()
	after  func(n int)
	n      int
}

func (h *hookedUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	if h.before != nil {
		before := h.before
		h.before = nil
		before()
	}
	err := h.inner.Do(ctx, fn)
	if err == nil {
		h.n++
		if h.after != nil {
			h.after(h.n)
		}
	}
	return err
}

// faultyUnitOfWork fails record creation once failAfter records were written
type faultyUnitOfWork struct {
	inner     unitofwork.UnitOfWork
	failAfter int
	created   int
}

func (f *faultyUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	return f.inner.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		repos.Matches = &faultyMatches{Repository: repos.Matches, uow: f}
		return fn(ctx, repos)
	})
}

type faultyMatches struct {
	match.Repository
	uow *faultyUnitOfWork
}

func (m *faultyMatches) Create(ctx context.Context, rec *match.Record) error {
	if m.uow.created >= m.uow.failAfter {
		return errStoreDown
	}
	if err := m.Repository.Create(ctx, rec); err != nil {
		return err
	}
	m.uow.created++
	return nil
}

type failingLogs struct {
	reconlog.Repository
}

func (failingLogs) Append(context.Context, *reconlog.Log) error {
	return errStoreDown
}
