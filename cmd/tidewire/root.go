package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tidewire/tidewire/internal/logging"
)

const appName = "tidewire"

var logRuntime *logging.Runtime

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "tidewire discovers connectors and keeps their registrations in a metadata repository.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		structured := commandUsesStructuredLogging(cmd)
		setCommandExecutionContext(commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: structured,
		})

		opts := logging.BootstrapOptions{Command: cmd.CommandPath()}
		if !structured {
			// stdout carries the command's output
			opts.Writer = os.Stderr
		}
		rt, err := logging.BootstrapFromEnv(opts)
		if err != nil {
			return err
		}
		logRuntime = rt
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, bootstrapCmd, connectorsCmd, repoCmd, configCmd)
}
