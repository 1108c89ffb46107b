package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/app"
	"github.com/example/storefront/internal/config"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the store and start the HTTP API",
		Long: `Start the HTTP API on APP_PORT.

The outbox dispatcher runs in the same process unless OUTBOX_INLINE=false,
in which case run "storefront worker" separately.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.Store.Migrate(ctx); err != nil {
		return err
	}

	outboxCtx, cancelOutbox := context.WithCancel(context.Background())
	defer cancelOutbox()
	var wg sync.WaitGroup
	if cfg.OutboxInline {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Dispatcher.Run(outboxCtx); err != nil {
				zap.L().Error("outbox dispatcher stopped", zap.Error(err))
			}
		}()
	}

	server := a.HTTP()
	listenErr := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		listenErr <- server.Listen(":" + cfg.AppPort)
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutdown signal received")
	case err := <-listenErr:
		if err != nil {
			cancelOutbox()
			wg.Wait()
			return err
		}
	}

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		zap.L().Warn("http shutdown", zap.Error(err))
	}
	cancelOutbox()
	wg.Wait()
	return nil
}
