package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs Runner at startup, on every Interval tick and whenever
// Trigger fires. A zero Interval disables the ticker. SkipInitialRun is for
// callers that already ran a pass before starting the scheduler.
type Scheduler struct {
	Runner         Runner
	Interval       time.Duration
	Trigger        <-chan struct{}
	SkipInitialRun bool
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || (s.Interval <= 0 && s.Trigger == nil) {
		return
	}

	if !s.SkipInitialRun {
		s.runOnce(ctx, "initial registration sync failed")
	}

	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	trigger := s.Trigger
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.runOnce(ctx, "scheduled registration sync failed")
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				if tick == nil {
					return
				}
				continue
			}
			s.runOnce(ctx, "triggered registration sync failed")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, msg string) {
	err := s.Runner.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncAlreadyRunning):
		slog.DebugContext(ctx, "registration sync skipped", "reason", err)
	case ctx.Err() != nil:
	default:
		slog.ErrorContext(ctx, msg, "err", err)
	}
}
