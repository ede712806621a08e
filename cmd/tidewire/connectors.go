package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tidewire/tidewire/internal/config"
	"github.com/tidewire/tidewire/internal/connectors"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "Inspect the connectors found by discovery.",
}

var connectorsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "Run connector discovery and print the loaded connectors.",
	Args:        cobra.NoArgs,
	Annotations: plainOutput(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnectorsList(cmd.OutOrStdout())
	},
}

func init() {
	connectorsCmd.AddCommand(connectorsListCmd)
}

func runConnectorsList(out io.Writer) error {
	cfg, err := config.LoadOptionalConfigDir()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	defer shutdownApp(a, cfg.ShutdownTimeout)

	if err := a.InitConnectors(ctx); err != nil {
		return err
	}
	return writeConnectors(out, a.Connectors.Descriptors())
}

func writeConnectors(out io.Writer, descriptors []connectors.Descriptor) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHORT NAME\tCANONICAL NAME\tDIRECTIONS\tSOURCE")
	for _, d := range descriptors {
		directions := "-"
		if d.Instance != nil {
			if dirs := d.Instance.Capabilities().Directions; len(dirs) > 0 {
				names := make([]string, 0, len(dirs))
				for _, dir := range dirs {
					names = append(names, string(dir))
				}
				directions = strings.Join(names, ",")
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ShortName, d.CanonicalName, directions, d.SourceLocator)
	}
	return tw.Flush()
}
