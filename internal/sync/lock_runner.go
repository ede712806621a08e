package sync

import (
	"context"
	"errors"
	"sync"
)

type tryLockRunner struct {
	mu    sync.Mutex
	inner Runner
}

// NewTryLockRunner wraps inner so that overlapping calls fail fast with
// ErrSyncAlreadyRunning instead of queueing.
func NewTryLockRunner(inner Runner) Runner {
	return &tryLockRunner{inner: inner}
}

func (r *tryLockRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.inner == nil {
		return errors.New("sync runner is not configured")
	}
	if !r.mu.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer r.mu.Unlock()
	return r.inner.RunOnce(ctx)
}
