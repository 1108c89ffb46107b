package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/storefront/internal/app"
	"github.com/example/storefront/internal/config"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the outbox dispatcher and sweeper",
		Long: `Deliver queued notifications without serving HTTP.

With QUEUE_DRIVER=memory the worker sees no pushes from other processes
and delivers only what the sweeper finds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			return a.Dispatcher.Run(ctx)
		},
	}
}
