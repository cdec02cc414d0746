package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fixwala-backend/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the write API",
	Long: `Prints a signed token accepted by the write routes when jwt.secret
(or JWT_SECRET) is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret is not set")
		}

		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if !cmd.Flags().Changed("ttl") {
			ttl = time.Duration(cfg.JWT.ExpirationHours) * time.Hour
		}

		token, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, ttl).GenerateToken(subject, auth.ScopeInvoicesWrite)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("subject", "fixwala-admin", "token subject")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime, 0 for no expiry (defaults to jwt.expiration_hours)")
}
