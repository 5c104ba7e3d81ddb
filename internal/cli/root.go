// Package cli defines pubsubd's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string
var debug bool

// Execute runs the root command, dispatching to the requested subcommand.
func Execute() error {
	root := &cobra.Command{
		Use:   "pubsubd",
		Short: "In-memory publish/subscribe broker daemon",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults to configs/config.yaml if present)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root.Execute()
}
