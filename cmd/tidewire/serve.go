package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tidewire/tidewire/internal/config"
	httpapp "github.com/tidewire/tidewire/internal/http"
	"github.com/tidewire/tidewire/internal/http/handlers"
	"github.com/tidewire/tidewire/internal/metrics"
	"github.com/tidewire/tidewire/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bootstrap the system, then serve the HTTP API and the registration scheduler.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer shutdownApp(a, cfg.ShutdownTimeout)

	if _, err := a.Initialize(ctx); err != nil {
		return err
	}

	runner := sync.NewTryLockRunner(a.Registration())
	var syncer handlers.SyncRunner = runner
	if !cfg.ResyncEnabled {
		syncer = nil
	}
	srv := httpapp.NewEchoServer(a.Handlers(syncer))

	g, gctx := errgroup.WithContext(ctx)

	scheduler := sync.Scheduler{Runner: runner, Interval: cfg.SyncInterval, SkipInitialRun: true}
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		return srv.Start(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if _, metricsErrCh := metrics.StartServer(gctx, cfg.MetricsAddr, a.Ready); metricsErrCh != nil {
		g.Go(func() error {
			select {
			case err := <-metricsErrCh:
				slog.Error("metrics server failed", "err", err)
				return err
			case <-gctx.Done():
				return nil
			}
		})
	}

	started := time.Now()
	err = g.Wait()
	slog.Info("server stopped", "uptime", time.Since(started).Round(time.Second))
	return err
}
