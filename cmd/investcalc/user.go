package main

import (
	"fmt"
	"log/slog"
	"strings"

	"investment-calculator/internal/models"
	"investment-calculator/internal/storage"

	"github.com/spf13/cobra"
)

func init() {
	userCmd.AddCommand(setTierCmd)
	rootCmd.AddCommand(userCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manages user accounts.",
}

var setTierCmd = &cobra.Command{
	Use:   "set-tier <email> <free|pro|elite>",
	Short: "Changes a user's subscription tier.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(args[0]))
		tier := models.Tier(args[1])
		if !tier.Valid() {
			return fmt.Errorf("unknown tier %q", tier)
		}

		db, err := storage.Open(cfg.DB.Driver, cfg.DB.URL)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		users := storage.NewUserStore(db)
		user, err := users.ByEmail(cmd.Context(), email)
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		if err := users.SetTier(cmd.Context(), user.ID, tier); err != nil {
			return err
		}
		slog.Info("tier updated", "email", email, "from", user.Tier, "to", tier)
		return nil
	},
}
