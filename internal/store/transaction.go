package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/dibs-api/internal/platform/logger"
)

// TxFn is work done inside a transaction. Returning an error rolls the
// transaction back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// LedgerLocker takes the exclusive write lock on the loan ledger for the
// duration of a transaction. How that lock is obtained depends on the
// database: a table lock on PostgreSQL, an immediate transaction on SQLite.
type LedgerLocker interface {
	LockLedger(ctx context.Context, tx *sql.Tx) error
}

// RunInTransaction runs fn in a transaction and commits when fn returns
// nil. On error the transaction is rolled back and fn's error returned,
// wrapped with the rollback failure if there was one. A panic in fn rolls
// back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		p := recover()

		// After a failed Commit the driver has already ended the
		// transaction and Rollback reports sql.ErrTxDone.
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.Any("panic", p))
			if p == nil && err != nil {
				err = fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
			}
		}

		if p != nil {
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		log.Debug("rolling back transaction", slog.String("error", err.Error()))
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	done = true
	return nil
}

// RunInExclusiveTransaction is RunInTransaction with the ledger lock taken
// before fn runs. Every read fn makes therefore sees the ledger as it will be
// when fn's writes commit.
func RunInExclusiveTransaction(ctx context.Context, db *sql.DB, locker LedgerLocker, fn TxFn) error {
	return RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := locker.LockLedger(ctx, tx); err != nil {
			return fmt.Errorf("failed to lock loan ledger: %w", err)
		}
		return fn(ctx, tx)
	})
}
