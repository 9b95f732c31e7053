package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourorg/portfolio-tracker/internal/config"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	pgRepo "github.com/yourorg/portfolio-tracker/internal/repository/postgres"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "portfolio-tracker",
		Short:         "Personal stock portfolio tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setupPostgres()
			if err != nil {
				return err
			}
			if err := pgRepo.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			cfg, logger, err := setupPostgres()
			if err != nil {
				return err
			}
			if err := pgRepo.RollbackMigrations(cfg.DatabaseURL, cfg.MigrationsPath, steps); err != nil {
				return err
			}
			logger.Info("migrations rolled back", "steps", steps)
			return nil
		},
	}
	migrateDownCmd.Flags().IntP("steps", "n", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote [symbol]",
		Short: "Fetch one quote from the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			sym, err := domain.NormalizeSymbol(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.QuoteTimeout)
			defer cancel()
			q, err := newUpstreamProvider(cfg, logger).Quote(ctx, sym)
			if err != nil {
				return fmt.Errorf("quote %s: %w", sym, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, quoteCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return cfg, logger, nil
}

func setupPostgres() (*config.Config, *slog.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, logger, nil
}
