// Package locking provides the per-period exclusivity used by reconciliation runs:
// an in-process locker for single binaries and tests, and a Redis-backed locker for
// deployments with several API or worker replicas.
package locking

import (
	"context"
	"errors"
	"sync"

	"github.com/revenue-reconciliation/internal/domain/shared"
)

var ErrLockLost = errors.New("period lock is no longer held")

type LocalLocker struct {
	mu   sync.Mutex
	held map[shared.Period]uint64
	seq  uint64
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[shared.Period]uint64)}
}

func (l *LocalLocker) Acquire(ctx context.Context, period shared.Period) (shared.PeriodLock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[period]; busy {
		return nil, shared.ErrConcurrentRunConflict{Period: period}
	}
	l.seq++
	l.held[period] = l.seq
	return &localLock{locker: l, period: period, token: l.seq}, nil
}

type localLock struct {
	locker *LocalLocker
	period shared.Period
	token  uint64
}

func (lk *localLock) owned() bool {
	token, ok := lk.locker.held[lk.period]
	return ok && token == lk.token
}

func (lk *localLock) Refresh(_ context.Context) error {
	lk.locker.mu.Lock()
	defer lk.locker.mu.Unlock()

	if !lk.owned() {
		return ErrLockLost
	}
	return nil
}

// Release is idempotent
func (lk *localLock) Release(_ context.Context) error {
	lk.locker.mu.Lock()
	defer lk.locker.mu.Unlock()

	if lk.owned() {
		delete(lk.locker.held, lk.period)
	}
	return nil
}
