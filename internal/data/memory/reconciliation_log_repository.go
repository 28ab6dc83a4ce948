package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// ReconciliationLogRepository is an append-only in-process log store
type ReconciliationLogRepository struct {
	mu   sync.RWMutex
	logs []*reconlog.Log
}

var _ reconlog.Repository = (*ReconciliationLogRepository)(nil)

func NewReconciliationLogRepository() *ReconciliationLogRepository {
	return &ReconciliationLogRepository{}
}

func (r *ReconciliationLogRepository) Append(_ context.Context, log *reconlog.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.logs {
		if existing.RunID == log.RunID {
			return reconlog.ErrDuplicateLog{RunID: log.RunID}
		}
	}
	c := *log
	r.logs = append(r.logs, &c)
	return nil
}

func (r *ReconciliationLogRepository) GetByRunID(_ context.Context, runID uuid.UUID) (*reconlog.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.logs {
		if l.RunID == runID {
			c := *l
			return &c, nil
		}
	}
	return nil, reconlog.ErrLogNotFound{RunID: runID}
}

func (r *ReconciliationLogRepository) ListByPeriod(_ context.Context, period shared.Period, limit, offset int) ([]*reconlog.Log, error) {
	matching := r.byPeriod(period)
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].CreatedAt.After(matching[j].CreatedAt) })
	if offset >= len(matching) {
		return []*reconlog.Log{}, nil
	}
	matching = matching[offset:]
	if limit > 0 && len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (r *ReconciliationLogRepository) CountByPeriod(_ context.Context, period shared.Period) (int64, error) {
	return int64(len(r.byPeriod(period))), nil
}

func (r *ReconciliationLogRepository) byPeriod(period shared.Period) []*reconlog.Log {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*reconlog.Log
	for _, l := range r.logs {
		if l.Period == period {
			c := *l
			out = append(out, &c)
		}
	}
	return out
}
