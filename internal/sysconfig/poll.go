package sysconfig

import (
	"context"
	"log/slog"
	"maps"
	"time"
)

// FetchFunc reads the full configuration mapping from a remote source.
type FetchFunc func(ctx context.Context) (map[string]string, error)

// Poller re-reads a remote source on an interval and notifies listeners when
// the mapping differs from the last one seen.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartPoller starts polling fetch every interval. last is the mapping the
// caller has already observed.
func StartPoller(name string, interval time.Duration, last map[string]string, fetch FetchFunc, listeners *Listeners) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := fetch(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("configuration poll failed", "provider", name, "err", err)
					}
					continue
				}
				if maps.Equal(current, last) {
					continue
				}
				last = current
				listeners.Notify()
			}
		}
	}()
	return p
}

// Stop cancels polling and waits for the goroutine to exit. A nil Poller is
// a no-op.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}
