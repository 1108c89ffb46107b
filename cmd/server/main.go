package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/logger"
)

var Version = "dev"

func main() {
	var flush func()

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront backend: OTP auth, orders and payments",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			var err error
			flush, err = logger.Init(os.Getenv("APP_ENV"))
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if flush != nil {
				flush()
			}
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(hashAdminKeyCmd())

	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
