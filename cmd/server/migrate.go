package main

import (
	"github.com/spf13/cobra"

	"fixwala-backend/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations (PostgreSQL tables or MongoDB indexes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close(cmd.Context())

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		lg := logger.WithComponent("migrate")
		lg.Info().Str("driver", cfg.Database.Driver).Msg("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
