package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"github.com/bsm/redislock"
)

// ErrBatchInProgress means another reconcile batch currently holds the lock.
var ErrBatchInProgress = errors.New("another reconcile batch is in progress")

const batchLockKey = "reconcile:batch"

// AcquireBatchLock serializes reconcile batches per deployment. The engine
// snapshots the open pool once and layers updates in memory, so two
// overlapping batches would race on the duplicate-slot check; the lock removes
// that race. Returns a nil lock when serialization is disabled and redis is
// absent (local dev).
func AcquireBatchLock(ctx context.Context, ttl time.Duration) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		if config.StrictBatchSerialization() {
			return nil, errors.New("redis lock client unavailable")
		}
		return nil, nil
	}

	lock, err := locker.Obtain(ctx, batchLockKey, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBatchInProgress
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// ReleaseBatchLock is tolerant of a nil lock and of an already-expired lease.
func ReleaseBatchLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		config.GetLogger().Warn("failed to release reconcile batch lock: " + err.Error())
	}
}
