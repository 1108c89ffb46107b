package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/app"
	"github.com/example/storefront/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()

			store, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			zap.L().Info("migration complete", zap.String("driver", cfg.DatabaseDriver))
			return nil
		},
	}
}
