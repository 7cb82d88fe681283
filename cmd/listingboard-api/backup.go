package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/backup"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newBackupCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export links and the customer profile to a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			format, err := backup.ParseFormat(viper.GetString("backup.format"))
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = filepath.Join(app.config.BackupDirectory, backup.DefaultFileName(time.Now(), format))
			} else if !cmd.Flags().Changed("format") {
				format = backup.FormatForPath(path)
			}

			snapshot, err := app.backups.Export(cmd.Context())
			if err != nil {
				return err
			}
			if err := backup.WriteFile(path, snapshot, format); err != nil {
				return err
			}
			app.logger.Info("backup written",
				zap.String("path", path),
				zap.String("format", string(format)),
				zap.Int("links", len(snapshot.Links)))
			fmt.Fprintf(cmd.OutOrStdout(), "Backup complete: %s (%d links)\n", path, len(snapshot.Links))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Snapshot file path (defaults to a timestamped name in backup.directory)")
	cmd.Flags().String("format", "", "Snapshot format (json, yaml)")
	if err := viper.BindPFlag("backup.format", cmd.Flags().Lookup("format")); err != nil {
		panic(err)
	}
	return cmd
}
