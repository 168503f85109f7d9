// Package main implements the entry point for the DIBS API server, which
// lends digital library items to patrons for a limited time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/dibs-api/internal/config"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
	"github.com/phrazzld/dibs-api/internal/platform/telemetry"
	"github.com/phrazzld/dibs-api/internal/redact"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command and exit (up, down, status)")
	flag.Parse()

	if err := run(context.Background(), *migrateCmd); err != nil {
		log.Fatalf("dibs-api: %s", redact.Error(err))
	}
}

// run loads configuration, opens the database and either executes a
// migration command or serves until shutdown.
func run(ctx context.Context, migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("debug", cfg.Server.Debug))

	db, dialect, err := setupAppDatabase(ctx, cfg, l)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return runMigrations(ctx, db, dialect, migrateCmd, l)
	}

	if err := sqlstore.Migrate(ctx, db, dialect, l); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, l)
	if err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(cfg, l, db, dialect, tp)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
