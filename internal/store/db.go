package store

import (
	"context"
	"database/sql"
)

// DBTX is the part of *sql.DB and *sql.Tx the stores query through, so the
// same store serves plain reads and the engine's exclusive transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
