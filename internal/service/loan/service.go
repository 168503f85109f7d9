package loan

import (
	"context"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

// SweepResult reports what one expiry sweep changed.
type SweepResult struct {
	// Purged is the number of recent loans deleted because their reloan
	// time had passed.
	Purged int `json:"purged"`

	// Expired is the number of overdue active loans moved to recent.
	Expired int `json:"expired"`
}

// Service is the set of operations callers use to drive the loan lifecycle.
// Every operation first runs Sweep, so no caller observes an active loan past
// its end time.
type Service interface {
	// Evaluate reports whether user may borrow the item with the given
	// barcode, and if not, why and from when. It never mutates the ledger
	// apart from the sweep. An unknown barcode is a status, not an error.
	Evaluate(ctx context.Context, user, barcode string) (*domain.Availability, error)

	// Grant starts a loan of the item for user.
	//
	// Returns:
	//   - (*domain.Loan, nil): the new active loan
	//   - (nil, *DeniedError): availability re-evaluated under the ledger lock
	//     was not AVAILABLE; the error wraps the matching domain sentinel
	//   - (nil, error): storage faults, wrapped in a ServiceError
	//
	// The borrower is notified after the loan commits. Notification failures
	// never undo the loan.
	Grant(ctx context.Context, user, barcode string) (*domain.Loan, error)

	// End returns user's active loan of the item. When there is no active
	// loan it does nothing and returns (nil, nil).
	End(ctx context.Context, barcode, user string) (*domain.Loan, error)

	// ForceClose deletes every loan row of the item, recording History for
	// the active ones, and returns the number of rows deleted.
	ForceClose(ctx context.Context, barcode string) (int, error)

	// Sweep deletes recent loans whose cooldown has elapsed, then moves
	// overdue active loans to recent.
	Sweep(ctx context.Context) (SweepResult, error)
}

// ItemCloser force-closes the loans of an item as part of a larger registry
// change. then, when non-nil, runs in the same locked transaction after the
// loans are closed, and its failure rolls the whole change back.
type ItemCloser interface {
	CloseItemLoans(ctx context.Context, barcode string, then store.TxFn) (int, error)
}

// Ledger is the full engine surface: the Service operations plus closing
// item loans inside a registry change.
type Ledger interface {
	Service
	ItemCloser
}
