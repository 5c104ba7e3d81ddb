package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags "-X .../internal/cli.Version=..." at build
// time; it defaults to "dev" for local builds.
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pubsubd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(Version)
			return nil
		},
	}
}
