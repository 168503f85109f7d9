package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/dibs-api/internal/store"
)

// Table names.
const (
	tableItems   = "items"
	tableLoans   = "loans"
	tableHistory = "history"
	tablePeople  = "people"
)

// sqlBuilder is satisfied by every goqu dataset.
type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// selectInto runs a query and scans every row into dest, a pointer to a
// slice of db-tagged structs.
func selectInto(ctx context.Context, db store.DBTX, q sqlBuilder, dest interface{}) error {
	query, args, err := q.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	if err := sqlx.StructScan(rows, dest); err != nil {
		return MapError(err)
	}
	return MapError(rows.Err())
}

// execute runs a statement that returns no rows.
func execute(ctx context.Context, db store.DBTX, q sqlBuilder) (sql.Result, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build statement: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	return result, nil
}
