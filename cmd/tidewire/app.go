package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidewire/tidewire/internal/app"
	"github.com/tidewire/tidewire/internal/config"
	"github.com/tidewire/tidewire/internal/sync"
)

func newApp(cfg config.Config) *app.App {
	opts := app.Options{
		ConnectorPath: cfg.ConnectorPath,
		Reporter:      &sync.LogReporter{},
	}
	if logRuntime != nil {
		opts.LogApplier = logRuntime
	}
	return app.New(opts)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// shutdownApp releases everything a command acquired, bounded by timeout.
func shutdownApp(a *app.App, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
