package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/config"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/logging"
	"github.com/adityasinghania3802/pub-sub-plivo/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pubsubd broker daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := logging.New(debug)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, log)
			return srv.Run(ctx)
		},
	}
}
