package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/dibs-api/internal/domain"
)

// LoanStore is the loan ledger. The loan engine is its only writer, and every
// write happens inside a transaction holding the ledger lock.
type LoanStore interface {
	// Create inserts a new loan row.
	// Returns ErrLoanExists if a row already exists for the item and user.
	Create(ctx context.Context, loan *domain.Loan) error

	// GetForUser returns the loan row of a user on an item, in either state.
	// Returns ErrLoanNotFound if there is none.
	GetForUser(ctx context.Context, barcode, user string) (*domain.Loan, error)

	// GetActiveByUser returns the user's active loan on any item.
	// Returns ErrLoanNotFound if the user holds nothing.
	GetActiveByUser(ctx context.Context, user string) (*domain.Loan, error)

	// ListByItem returns every loan row on an item, active rows first,
	// each group ordered by end time.
	ListByItem(ctx context.Context, barcode string) ([]*domain.Loan, error)

	// ListActiveDue returns the active loans whose end time is at or before now.
	ListActiveDue(ctx context.Context, now time.Time) ([]*domain.Loan, error)

	// CountActiveByItem returns the number of active loans per barcode.
	// Items without active loans are absent from the map.
	CountActiveByItem(ctx context.Context) (map[string]int, error)

	// MarkRecent moves an active loan to the recent state with the given end
	// and reloan times. Returns ErrLoanNotFound if the loan is missing or no
	// longer active, which lets concurrent closers detect they lost the race.
	MarkRecent(ctx context.Context, id uuid.UUID, end, reloan time.Time) error

	// Delete removes one loan row.
	// Returns ErrLoanNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpiredRecent removes the recent loans whose reloan time is at or
	// before now and returns how many were removed.
	DeleteExpiredRecent(ctx context.Context, now time.Time) (int, error)

	// WithTx returns a new LoanStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LoanStore
}
