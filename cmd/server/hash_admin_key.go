package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/storefront/internal/utils"
)

func hashAdminKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-key [key]",
		Short: "Print the bcrypt hash to store in ADMIN_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
