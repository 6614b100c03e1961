package main

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_sessions/internal/app"
	"github.com/Freeeeeet/consult_sessions/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for migrate")
		}

		logger := app.NewLogger(cfg.Environment)
		defer logger.Sync()

		pool, err := connectDB(cmd.Context(), cfg.DBDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if migrateStatus {
			migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			v, err := migrator.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
			return nil
		}

		return migrate(cmd.Context(), pool, cfg.MigrationsDir, logger)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the current schema version and exit")
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dir string, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, dir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
