package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fixwala-backend/internal/config"
	"fixwala-backend/internal/logger"
)

var version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fixwala",
	Short: "Fixwala invoicing backend",
	Long: `Fixwala serves the invoice and payment API.

Storage is chosen from the environment: MONGODB_URI selects MongoDB,
DATABASE_URL or DB_HOST selects PostgreSQL, otherwise invoices are kept
in memory.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		lg := logger.WithComponent("cmd")
		lg.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the YAML config file")
}

// loadConfig reads configuration and sets up the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
