package main

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/backup"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRestoreCommand() *cobra.Command {
	var (
		input         string
		transactional bool
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace all links and the customer profile with a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return errors.New("--input is required")
			}
			if cmd.Flags().Changed("transactional") {
				viper.Set("backup.transactional_restore", transactional)
			}
			request, err := backup.ReadFile(input)
			if err != nil {
				return err
			}

			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.backups.Restore(cmd.Context(), request)
			if err != nil {
				return err
			}
			app.logger.Info("restore applied",
				zap.String("path", input),
				zap.Int("links", result.Restored),
				zap.Bool("transactional", app.config.TransactionalRestore))
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Snapshot file to restore (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&transactional, "transactional", false, "Run the whole restore in one transaction (same as --transactional-restore)")
	return cmd
}
