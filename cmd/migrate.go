package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bookchat/internal/app/db"
	"bookchat/internal/configs"
	"bookchat/internal/pkg/logx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [args...]",
	Short: "Run database migrations (up, down, status, version, redo, ...)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)

		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}

		sqlDB, err := db.OpenSQL(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				logx.Error(err, "Failed to close database")
			}
		}()

		return db.Migrate(cmd.Context(), sqlDB, args[0], args[1:]...)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
