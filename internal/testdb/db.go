package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds the setup work done for each test database.
const TestTimeout = 10 * time.Second

// PostgresURLEnv names the variable holding a PostgreSQL URL for tests.
const PostgresURLEnv = "DIBS_TEST_DATABASE_URL"

// DB is a migrated test database and the dialect its stores must use.
type DB struct {
	*sql.DB
	Dialect sqlstore.Dialect
}

// Open creates a migrated SQLite database that is removed when the test ends.
func Open(t testing.TB) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dibs.db")
	return open(t, sqlstore.Options{
		Driver:       sqlstore.DriverSQLite,
		URL:          path,
		BusyTimeout:  TestTimeout,
		MaxOpenConns: 8,
	})
}

// OpenPostgres connects to the database named by DIBS_TEST_DATABASE_URL,
// migrates it and empties its tables before and after the test. The test is
// skipped when the variable is unset.
func OpenPostgres(t testing.TB) *DB {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set - skipping PostgreSQL test", PostgresURLEnv)
	}

	db := open(t, sqlstore.Options{Driver: sqlstore.DriverPostgres, URL: url, MaxOpenConns: 10})
	Truncate(t, db.DB)
	t.Cleanup(func() { Truncate(t, db.DB) })
	return db
}

func open(t testing.TB, opts sqlstore.Options) *DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, dialect, err := sqlstore.Open(ctx, opts)
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, sqlstore.Migrate(ctx, db, dialect, quiet), "Failed to migrate test database")

	return &DB{DB: db, Dialect: dialect}
}

// Truncate deletes every row from the application tables.
func Truncate(t testing.TB, db *sql.DB) {
	t.Helper()

	for _, table := range []string{"loans", "history", "items", "people"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err, "Failed to empty table %s", table)
	}
}
