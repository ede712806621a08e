package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tidewire/tidewire/internal/config"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the metadata repository.",
}

var repoInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Connect to the configured repository and create its schema when enabled and missing.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepoInit()
	},
}

var repoShutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Connect to the configured repository and shut its backend down cleanly.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepoShutdown()
	},
}

func init() {
	repoCmd.AddCommand(repoInitCmd, repoShutdownCmd)
}

func runRepoInit() error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer shutdownApp(a, cfg.ShutdownTimeout)

	if err := a.InitRepository(ctx); err != nil {
		return err
	}
	rc := a.Repository.Context()
	slog.Info("repository ready", "provider", rc.Provider(), "create_schema", rc.CreateSchema())
	return nil
}

// runRepoShutdown opens the repository only to stop it, which for the
// embedded backend also stops the database engine.
func runRepoShutdown() error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer func() { _ = a.Config.Close() }()

	if err := a.InitRepository(ctx); err != nil {
		return err
	}
	return a.Repository.Shutdown(ctx)
}
