package main

import (
	"log/slog"

	"investment-calculator/internal/server"
	"investment-calculator/internal/storage"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run(cmd.Context(), cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates the database schema.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(cfg.DB.Driver, cfg.DB.URL)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		slog.Info("schema migrated", "driver", cfg.DB.Driver)
		return nil
	},
}
