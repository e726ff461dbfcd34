package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certifai/internal/platform/config"
	"certifai/internal/platform/database"
	"certifai/internal/platform/health"
	"certifai/internal/platform/logger"
	"certifai/internal/platform/token"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "certifai",
		Short:         "Certificate verification service",
		Long:          "certifai verifies academic certificates by orchestrating AI document analysis\nover uploaded certificate documents and their verification pages.",
		Version:       health.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newTokenCmd(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newTokenCmd() *cobra.Command {
	var subject, clientID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for development and smoke tests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if cfg.JWTSigningKey == "" {
				return fmt.Errorf("JWT_SIGNING_KEY is required to issue tokens")
			}

			signed, err := token.NewService(cfg.JWTSigningKey, "certifai").
				Generate(subject, clientID, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "dev", "token subject")
	cmd.Flags().StringVar(&clientID, "client-id", "", "client_id claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			log := logger.New()

			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			dbCfg := database.DefaultConfig()
			dbCfg.URL = cfg.DatabaseURL
			pool, err := database.New(dbCfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := database.RunMigrations(ctx, pool.DB()); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
