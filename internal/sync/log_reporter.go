package sync

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tidewire/tidewire/internal/apperr"
)

const (
	defaultProgressInterval    = 5 * time.Second
	defaultProgressPercentStep = int64(10)
)

// LogReporter logs events to slog. Errors and the final event are always
// logged; progress is throttled per stage to one line per ProgressInterval
// unless it advanced by ProgressPercentStep.
type LogReporter struct {
	Logger              *slog.Logger
	ProgressInterval    time.Duration
	ProgressPercentStep int64

	mu   sync.Mutex
	last map[string]progressMark
}

type progressMark struct {
	at      time.Time
	percent int64
}

func (r *LogReporter) Report(e Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	attrs := []any{"stage", e.Stage}
	if e.Source != "" {
		attrs = append(attrs, "source", e.Source)
	}
	if e.Total > 0 {
		attrs = append(attrs, "current", e.Current, "total", e.Total)
	}

	if e.Err != nil {
		message := e.Message
		if message == "" {
			message = e.Stage + " failed"
		}
		attrs = append(attrs, "err", e.Err)
		if errors.Is(e.Err, apperr.KindConnectorConflict) {
			logger.Warn(message, attrs...)
			return
		}
		logger.Error(message, attrs...)
		return
	}
	if e.Message == "" {
		return
	}
	if e.Done || r.shouldLogProgress(e) {
		logger.Info(e.Message, attrs...)
	}
}

func (r *LogReporter) shouldLogProgress(e Event) bool {
	if e.Total <= 1 || e.Current <= 0 || e.Current >= e.Total {
		return true
	}
	interval := r.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	step := r.ProgressPercentStep
	if step <= 0 {
		step = defaultProgressPercentStep
	}
	percent := (e.Current * 100) / e.Total

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = make(map[string]progressMark)
	}
	mark, seen := r.last[e.Stage]
	if seen && e.At.Sub(mark.at) < interval && percent < mark.percent+step {
		return false
	}
	r.last[e.Stage] = progressMark{at: e.At, percent: (percent / step) * step}
	return true
}
