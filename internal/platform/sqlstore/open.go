package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // goqu dialect
	_ "github.com/jackc/pgx/v5/stdlib"                   // database/sql driver "pgx"
	_ "modernc.org/sqlite"                               // database/sql driver "sqlite"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Dialect names a goqu SQL dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// DialectFor returns the SQL dialect spoken by a driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres:
		return DialectPostgres, nil
	case DriverSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// builder returns the goqu builder for the dialect. Callers mark every
// dataset Prepared so values travel as arguments, never as literals.
func (d Dialect) builder() goqu.DialectWrapper {
	return goqu.Dialect(string(d))
}

// Options configures Open.
type Options struct {
	Driver          string
	URL             string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens and pings a database, returning the handle and its dialect.
// For SQLite, a bare file path is expanded into a DSN that begins every
// transaction with BEGIN IMMEDIATE, which is how the ledger lock is taken.
func Open(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, "", err
	}

	dsn := opts.URL
	if opts.Driver == DriverSQLite {
		dsn = SQLiteDSN(opts.URL, opts.BusyTimeout)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}

// SQLiteDSN builds a modernc sqlite DSN for a database file. A location that
// already carries query parameters is returned unchanged.
func SQLiteDSN(location string, busyTimeout time.Duration) string {
	if strings.Contains(location, "?") {
		return location
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	if !strings.HasPrefix(location, "file:") {
		location = "file:" + location
	}

	params := []string{
		"_txlock=immediate",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()),
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_time_format=sqlite",
	}
	return location + "?" + strings.Join(params, "&")
}

// dbTime normalises a timestamp before it is written or compared. Both
// databases then hold whole-second UTC values, and SQLite's textual
// timestamps sort chronologically.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
