package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

const keyPrefix = "reconciliation:period:"

// heldLock is the subset of *redislock.Lock the locker needs
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

type obtainer interface {
	obtain(ctx context.Context, key string, ttl time.Duration) (heldLock, error)
}

type redislockClient struct {
	client *redislock.Client
}

func (c redislockClient) obtain(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
	lock, err := c.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// RedisLocker holds period locks in Redis with a TTL that every Refresh extends
type RedisLocker struct {
	client obtainer
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislockClient{client: redislock.New(rdb)},
		ttl:    ttl,
		logger: logger.With("component", "redis_locker"),
	}
}

func periodKey(period shared.Period) string {
	return keyPrefix + period.String()
}

func (l *RedisLocker) Acquire(ctx context.Context, period shared.Period) (shared.PeriodLock, error) {
	key := periodKey(period)
	lock, err := l.client.obtain(ctx, key, l.ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("Period lock held elsewhere", "key", key)
		return nil, shared.ErrConcurrentRunConflict{Period: period}
	}
	if err != nil {
		l.logger.Error("Failed to obtain period lock", "key", key, "error", err)
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	l.logger.Debug("Period lock obtained", "key", key, "ttl", l.ttl)
	return &redisPeriodLock{lock: lock, key: key, ttl: l.ttl}, nil
}

type redisPeriodLock struct {
	lock heldLock
	key  string
	ttl  time.Duration
}

func (lk *redisPeriodLock) Refresh(ctx context.Context) error {
	err := lk.lock.Refresh(ctx, lk.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLockLost
	}
	if err != nil {
		return fmt.Errorf("failed to refresh lock %s: %w", lk.key, err)
	}
	return nil
}

// Release treats an already expired lock as released
func (lk *redisPeriodLock) Release(ctx context.Context) error {
	err := lk.lock.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("failed to release lock %s: %w", lk.key, err)
	}
	return nil
}
