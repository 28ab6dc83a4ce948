package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
)

// Stores groups the persistence ports the engine reads and writes
type Stores struct {
	GLEntries     glentry.Repository
	ForecastLines forecast.Repository
	Matches       match.Repository
	Logs          reconlog.Repository
	UnitOfWork    unitofwork.UnitOfWork
}

// RunRequest asks for one reconciliation run over a fiscal period
type RunRequest struct {
	Period        string
	Mode          shared.Mode // empty means both
	Initiator     string
	CorrelationID string
}

// RunResult reports what a run committed. Pairs lists only matches created by this run.
type RunResult struct {
	RunID   uuid.UUID         `json:"run_id"`
	Period  shared.Period     `json:"period"`
	Mode    shared.Mode       `json:"mode"`
	Outcome shared.RunOutcome `json:"outcome"`
	reconlog.Counts
	Pairs []PairView `json:"pairs"`
}

// Orchestrator runs reconciliation for one period at a time under an exclusive period lock
type Orchestrator struct {
	stores Stores
	locker shared.PeriodLocker
	scorer *Scorer
	cfg    Config
	logger *slog.Logger
}

func NewOrchestrator(stores Stores, locker shared.PeriodLocker, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Orchestrator{
		stores: stores,
		locker: locker,
		scorer: NewScorer(cfg),
		cfg:    cfg,
		logger: logger.With("component", "reconciliation_orchestrator"),
	}
}

// snapshot is the unmatched working set of a period
type snapshot struct {
	glEntries      []*glentry.Entry
	forecastLines  []*forecast.Line
	alreadyMatched int
}

// Run executes exact and/or fuzzy matching for the requested period and persists the new pairs
// in committed batches. A cancelled run keeps its committed batches and returns the partial
// result with ErrRunCancelled. A store failure undoes everything the run committed.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	period, err := shared.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = shared.ModeBoth
	}
	if mode, err = shared.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	runID := uuid.New()
	logger := o.logger.With("run_id", runID.String(), "period", period.String(), "mode", string(mode))
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	lock, err := o.locker.Acquire(ctx, period)
	if err != nil {
		if errors.Is(err, shared.ErrConcurrentRunConflict{}) {
			logger.Warn("Period is locked by another run")
			return nil, err
		}
		logger.Error("Failed to acquire period lock", "error", err)
		return nil, ErrStoreFailure{Op: "acquire period lock", Err: err}
	}
	defer func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			logger.Warn("Failed to release period lock", "error", relErr)
		}
	}()

	startedAt := time.Now().UTC()
	logger.Info("Reconciliation run started", "initiator", req.Initiator)

	snap, err := o.snapshot(ctx, period)
	if err != nil {
		logger.Error("Failed to load period", "error", err)
		return nil, err
	}

	proposed := o.propose(mode, snap)
	committed, runErr := o.persist(ctx, lock, runID, proposed, req, logger)

	result := &RunResult{
		RunID:   runID,
		Period:  period,
		Mode:    mode,
		Outcome: shared.RunOutcomeCompleted,
		Counts:  tally(snap, committed),
		Pairs:   make([]PairView, 0, len(committed)),
	}
	for _, p := range committed {
		result.Pairs = append(result.Pairs, p.View())
	}

	bg := context.WithoutCancel(ctx)
	switch {
	case runErr == nil:
	case errors.Is(runErr, ErrRunCancelled):
		result.Outcome = shared.RunOutcomeCancelled
		logger.Warn("Reconciliation run cancelled", "committed_pairs", len(committed))
	default:
		logger.Error("Reconciliation run failed, compensating", "committed_pairs", len(committed), "error", runErr)
		o.compensate(bg, runID, committed, req, logger)

		result.Outcome = shared.RunOutcomeFailed
		result.Counts = tally(snap, nil)
		if logErr := o.appendLog(bg, result, req, startedAt, runErr.Error()); logErr != nil {
			logger.Error("Failed to record failed run", "error", logErr)
		}
		return nil, runErr
	}

	if err := o.appendLog(bg, result, req, startedAt, ""); err != nil {
		logger.Error("Failed to append reconciliation log, compensating", "error", err)
		o.compensate(bg, runID, committed, req, logger)
		return nil, ErrStoreFailure{Op: "append reconciliation log", Err: err}
	}

	logger.Info("Reconciliation run finished",
		"outcome", string(result.Outcome),
		"matched_exact", result.MatchedExact,
		"matched_fuzzy", result.MatchedFuzzy,
		"already_matched", result.AlreadyMatched,
		"unmatched_gl", result.UnmatchedGL,
		"unmatched_forecast", result.UnmatchedForecast,
	)
	if result.Outcome == shared.RunOutcomeCancelled {
		return result, ErrRunCancelled
	}
	return result, nil
}

func (o *Orchestrator) snapshot(ctx context.Context, period shared.Period) (*snapshot, error) {
	gls, err := o.stores.GLEntries.ListByPeriod(ctx, period)
	if err != nil {
		return nil, classify("list gl entries", err)
	}
	fcs, err := o.stores.ForecastLines.ListByPeriod(ctx, period)
	if err != nil {
		return nil, classify("list forecast lines", err)
	}
	if len(gls) == 0 && len(fcs) == 0 {
		return nil, shared.ErrInvalidPeriod{Value: period.String(), Reason: "no data"}
	}

	records, err := o.stores.Matches.ListByPeriod(ctx, period)
	if err != nil {
		return nil, classify("list match records", err)
	}
	linkedGL := make(map[uuid.UUID]struct{}, len(records))
	linkedFC := make(map[uuid.UUID]struct{}, len(records))
	for _, rec := range records {
		linkedGL[rec.GLEntryID] = struct{}{}
		linkedFC[rec.ForecastLineID] = struct{}{}
	}

	// Records are filed under the GL entry's period. A period entity matched to a counterpart
	// in another period has no record in this list and is counted on its own.
	snap := &snapshot{alreadyMatched: len(records)}
	for _, gl := range gls {
		if _, linked := linkedGL[gl.ID]; linked {
			continue
		}
		if gl.IsMatched() {
			snap.alreadyMatched++
			continue
		}
		snap.glEntries = append(snap.glEntries, gl)
	}
	for _, fc := range fcs {
		if _, linked := linkedFC[fc.ID]; linked {
			continue
		}
		if fc.IsMatched() {
			snap.alreadyMatched++
			continue
		}
		snap.forecastLines = append(snap.forecastLines, fc)
	}
	return snap, nil
}

func (o *Orchestrator) propose(mode shared.Mode, snap *snapshot) []Pair {
	gls, fcs := snap.glEntries, snap.forecastLines

	var pairs []Pair
	if mode.IncludesExact() {
		var exact []Pair
		exact, gls, fcs = MatchExact(gls, fcs)
		pairs = append(pairs, exact...)
	}
	if mode.IncludesFuzzy() {
		fuzzy, _, _ := MatchFuzzy(gls, fcs, o.scorer, o.cfg.MinFuzzyScore)
		pairs = append(pairs, fuzzy...)
	}
	return pairs
}

// persist commits pairs batch by batch, checking for cancellation and refreshing the
// period lock between batches. It returns every pair that reached the store.
func (o *Orchestrator) persist(ctx context.Context, lock shared.PeriodLock, runID uuid.UUID, pairs []Pair, req RunRequest, logger *slog.Logger) ([]Pair, error) {
	var committed []Pair
	for start := 0; start < len(pairs); start += o.cfg.BatchSize {
		if ctx.Err() != nil {
			return committed, ErrRunCancelled
		}
		if start > 0 {
			if err := lock.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return committed, ErrRunCancelled
				}
				return committed, ErrStoreFailure{Op: "refresh period lock", Err: err}
			}
		}

		end := min(start+o.cfg.BatchSize, len(pairs))
		written, err := o.commitBatch(ctx, runID, pairs[start:end], req, logger)
		if err != nil {
			if ctx.Err() != nil {
				return committed, ErrRunCancelled
			}
			return committed, ErrStoreFailure{Op: "commit match batch", Err: err}
		}
		committed = append(committed, written...)
		logger.Debug("Match batch committed", "batch_start", start, "pairs", len(written))
	}
	return committed, nil
}

// pairConflictError marks the pair of a batch that lost a race against another writer
type pairConflictError struct {
	index int
	err   error
}

func (e pairConflictError) Error() string {
	return fmt.Sprintf("pair %d conflicts: %v", e.index, e.err)
}

func (e pairConflictError) Unwrap() error {
	return e.err
}

func isPairConflict(err error) bool {
	return errors.Is(err, shared.ErrStatusConflict{}) ||
		errors.Is(err, match.ErrAlreadyMatched{}) ||
		errors.Is(err, glentry.ErrEntryNotFound{}) ||
		errors.Is(err, forecast.ErrLineNotFound{})
}

// commitBatch writes one batch atomically. A conflicting pair is dropped and the rest of the
// batch is retried, so a concurrent manual match never fails the run.
func (o *Orchestrator) commitBatch(ctx context.Context, runID uuid.UUID, batch []Pair, req RunRequest, logger *slog.Logger) ([]Pair, error) {
	batch = append([]Pair(nil), batch...)
	for len(batch) > 0 {
		err := o.stores.UnitOfWork.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
			for i, p := range batch {
				rec := match.NewRecord(p.GLEntry.ID, p.ForecastLine.ID, p.GLEntry.Period, p.Method, p.Score, runID, req.Initiator)
				if err := linkEntities(ctx, repos, rec, req.Initiator, req.CorrelationID); err != nil {
					if isPairConflict(err) {
						return pairConflictError{index: i, err: err}
					}
					return err
				}
			}
			return nil
		})

		var conflict pairConflictError
		if errors.As(err, &conflict) {
			dropped := batch[conflict.index]
			logger.Warn("Dropping pair that was matched concurrently",
				"gl_entry_id", dropped.GLEntry.ID.String(),
				"forecast_line_id", dropped.ForecastLine.ID.String(),
				"error", conflict.err,
			)
			batch = append(batch[:conflict.index], batch[conflict.index+1:]...)
			continue
		}
		if err != nil {
			return nil, err
		}
		return batch, nil
	}
	return nil, nil
}

// compensate removes the records this run committed, skipping any that were already changed by someone else
func (o *Orchestrator) compensate(ctx context.Context, runID uuid.UUID, committed []Pair, req RunRequest, logger *slog.Logger) {
	if len(committed) == 0 {
		return
	}

	err := o.stores.UnitOfWork.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		for _, p := range committed {
			rec, err := repos.Matches.GetByGLEntryID(ctx, p.GLEntry.ID)
			if err != nil {
				return err
			}
			if rec == nil || !rec.Links(p.GLEntry.ID, p.ForecastLine.ID) || rec.RunID == nil || *rec.RunID != runID {
				continue
			}
			if err := unlinkEntities(ctx, repos, rec, req.Initiator, removalReasonCompensation, req.CorrelationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to compensate reconciliation run", "committed_pairs", len(committed), "error", err)
		return
	}
	logger.Info("Compensated reconciliation run", "removed_pairs", len(committed))
}

func (o *Orchestrator) appendLog(ctx context.Context, result *RunResult, req RunRequest, startedAt time.Time, failureReason string) error {
	return o.stores.Logs.Append(ctx, &reconlog.Log{
		RunID:         result.RunID,
		Period:        result.Period,
		Mode:          result.Mode,
		Counts:        result.Counts,
		Initiator:     req.Initiator,
		Outcome:       result.Outcome,
		FailureReason: failureReason,
		Settings:      o.cfg.Settings(),
		CorrelationID: req.CorrelationID,
		StartedAt:     startedAt,
		CreatedAt:     time.Now().UTC(),
	})
}

func tally(snap *snapshot, committed []Pair) reconlog.Counts {
	counts := reconlog.Counts{
		AlreadyMatched:    snap.alreadyMatched,
		UnmatchedGL:       len(snap.glEntries) - len(committed),
		UnmatchedForecast: len(snap.forecastLines) - len(committed),
	}
	for _, p := range committed {
		switch p.Method {
		case shared.MatchMethodExact:
			counts.MatchedExact++
		case shared.MatchMethodFuzzy:
			counts.MatchedFuzzy++
		}
	}
	return counts
}
