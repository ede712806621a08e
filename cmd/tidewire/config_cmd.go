package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tidewire/tidewire/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the system configuration.",
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Load the configuration through its provider and print it with secrets masked.",
	Args:        cobra.NoArgs,
	Annotations: plainOutput(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd.OutOrStdout())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(out io.Writer) error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer func() { _ = a.Config.Close() }()

	if err := a.InitConfig(ctx); err != nil {
		return err
	}
	return writeProperties(out, a.Config.Snapshot().Masked())
}

func writeProperties(out io.Writer, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "%s=%s\n", k, values[k]); err != nil {
			return err
		}
	}
	return nil
}
