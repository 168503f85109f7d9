package loan

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

// LedgerView is everything an evaluation of one (user, item) pair reads.
type LedgerView struct {
	// Item is nil when the barcode is not in the registry.
	Item *domain.Item

	// Own is the user's loan row on the item in either state, or nil.
	Own *domain.Loan

	// Other is the user's active loan on a different item, or nil.
	Other *domain.Loan

	// Active holds the active loans on the item.
	Active []*domain.Loan
}

// Evaluate computes the availability of an item for a user from a view of
// the ledger. Conditions are checked in a fixed priority order and the first
// match wins. It has no side effects.
func Evaluate(view LedgerView, now time.Time) *domain.Availability {
	result := func(status domain.Status, at *time.Time) *domain.Availability {
		return &domain.Availability{
			Item:        view.Item,
			Status:      status,
			Explanation: domain.Explain(status),
			AvailableAt: at,
		}
	}

	if view.Item == nil {
		return result(domain.StatusUnknownItem, nil)
	}
	if !view.Item.Ready {
		return result(domain.StatusNotReady, nil)
	}

	if own := view.Own; own != nil {
		if own.IsActive() {
			return result(domain.StatusLoanedByUser, nil)
		}
		if own.ReloanTime.After(now) {
			at := own.ReloanTime
			return result(domain.StatusTooSoon, &at)
		}
	}

	if view.Other != nil {
		at := view.Other.EndTime
		return result(domain.StatusUserHasOther, &at)
	}

	if len(view.Active) >= view.Item.NumCopies {
		var earliest time.Time
		for i, l := range view.Active {
			if i == 0 || l.EndTime.Before(earliest) {
				earliest = l.EndTime
			}
		}
		return result(domain.StatusNoCopiesLeft, &earliest)
	}

	return result(domain.StatusAvailable, nil)
}

// readView loads the LedgerView for a pair. Loans are not read for unknown
// or not-ready items.
func readView(
	ctx context.Context,
	items store.ItemStore,
	loans store.LoanStore,
	user, barcode string,
) (LedgerView, error) {
	var view LedgerView

	item, err := items.GetByBarcode(ctx, barcode)
	if errors.Is(err, store.ErrItemNotFound) {
		return view, nil
	}
	if err != nil {
		return view, err
	}
	view.Item = item
	if !item.Ready {
		return view, nil
	}

	own, err := loans.GetForUser(ctx, barcode, user)
	switch {
	case errors.Is(err, store.ErrLoanNotFound):
	case err != nil:
		return view, err
	default:
		view.Own = own
	}

	other, err := loans.GetActiveByUser(ctx, user)
	switch {
	case errors.Is(err, store.ErrLoanNotFound):
	case err != nil:
		return view, err
	default:
		if other.Barcode != barcode {
			view.Other = other
		}
	}

	onItem, err := loans.ListByItem(ctx, barcode)
	if err != nil {
		return view, err
	}
	for _, l := range onItem {
		if l.IsActive() {
			view.Active = append(view.Active, l)
		}
	}

	return view, nil
}
