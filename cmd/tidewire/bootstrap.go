package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tidewire/tidewire/internal/config"
)

var bootstrapStrict bool

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Initialize configuration and the repository, discover connectors, register them, then exit.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBootstrap(bootstrapStrict)
	},
}

func init() {
	bootstrapCmd.Flags().BoolVar(&bootstrapStrict, "strict", false, "fail when any connector conflicts with an existing registration")
}

func runBootstrap(strict bool) error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer shutdownApp(a, cfg.ShutdownTimeout)

	report, err := a.Initialize(ctx)
	if err != nil {
		return err
	}
	slog.Info("bootstrap complete",
		"connectors", report.Total,
		"registered", report.Succeeded,
		"conflicts", len(report.Conflicts),
	)
	if strict && len(report.Conflicts) > 0 {
		return &exitError{code: exitCodeFailure, err: errors.Join(report.Conflicts...)}
	}
	return nil
}
