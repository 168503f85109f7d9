package sqlstore

import (
	"context"
	"database/sql"

	"github.com/phrazzld/dibs-api/internal/store"
)

// lockLoansSQL conflicts with itself and with every row write, but not with
// plain SELECTs, so concurrent ledger writers queue while readers continue.
const lockLoansSQL = "LOCK TABLE loans IN SHARE ROW EXCLUSIVE MODE"

type postgresLocker struct{}

func (postgresLocker) LockLedger(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, lockLoansSQL)
	return MapError(err)
}

// sqliteLocker relies on the DSN: with _txlock=immediate every transaction
// already holds the database write lock when it begins.
type sqliteLocker struct{}

func (sqliteLocker) LockLedger(context.Context, *sql.Tx) error {
	return nil
}

// NewLedgerLocker returns the ledger lock strategy for a dialect.
func NewLedgerLocker(dialect Dialect) store.LedgerLocker {
	if dialect == DialectSQLite {
		return sqliteLocker{}
	}
	return postgresLocker{}
}
