package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"pharmaledger/pkg/logger"
)

// ErrLocked is returned by RunExclusive when another runner holds the lock.
var ErrLocked = errors.New("job is running elsewhere")

// JobLock runs a job on at most one worker at a time.
type JobLock struct {
	locker *redislock.Client
}

// NewJobLock creates a lock over client.
func NewJobLock(client redislock.RedisClient) *JobLock {
	return &JobLock{locker: redislock.New(client)}
}

// RunExclusive obtains key for ttl, runs fn and releases the lock. fn should
// finish within ttl; the lock is not refreshed.
func (l *JobLock) RunExclusive(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := l.locker.Obtain(ctx, "lock:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release job lock", "key", key, "error", err)
		}
	}()

	return fn(ctx)
}
