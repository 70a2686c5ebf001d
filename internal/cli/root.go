// Package cli implements the eventlog command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCommand builds the eventlog command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventlog",
		Short: "Index runtime events into daily document store indices",
		Long: `eventlog subscribes to runtime events on NATS, turns each event into a
JSON document and writes it to a daily index such as logs-2024.01.15.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default: ./config.yaml or /etc/eventlog/config.yaml)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newRenderCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		failure(root.ErrOrStderr(), "%v", err)
	}
	return err
}
