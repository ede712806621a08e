// Package sync runs connector registration passes on demand and on a
// schedule.
package sync

import (
	"context"
	"errors"
)

// Runner executes a single registration pass.
type Runner interface {
	RunOnce(context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(context.Context) error

func (f RunnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }

// ErrSyncAlreadyRunning is returned by a try-lock runner when another pass
// is already in progress.
var ErrSyncAlreadyRunning = errors.New("registration sync is already running")
