package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/dibs-api/internal/config"
	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
)

// setupAppDatabase opens the configured database and applies its pool limits.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, sqlstore.Dialect, error) {
	db, dialect, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		BusyTimeout:     time.Duration(cfg.Database.BusyTimeoutMS) * time.Millisecond,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return nil, "", err
	}

	logger.Info("Database connection established", slog.String("dialect", string(dialect)))
	return db, dialect, nil
}

// runMigrations executes one of the -migrate commands.
func runMigrations(ctx context.Context, db *sql.DB, dialect sqlstore.Dialect, command string, logger *slog.Logger) error {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "up":
		return sqlstore.Migrate(ctx, db, dialect, logger)

	case "down":
		if err := sqlstore.MigrateDown(ctx, db, dialect); err != nil {
			return err
		}
		logger.Info("Rolled back one migration")
		return nil

	case "status":
		statuses, err := sqlstore.MigrationStatus(ctx, db, dialect)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			attrs := []any{
				slog.Int64("version", s.Source.Version),
				slog.String("path", s.Source.Path),
				slog.String("state", string(s.State)),
			}
			if !s.AppliedAt.IsZero() {
				attrs = append(attrs, slog.Time("applied_at", s.AppliedAt))
			}
			logger.Info("migration", attrs...)
		}
		return nil

	default:
		return fmt.Errorf("unknown migration command %q: use up, down or status", command)
	}
}
