package domain

import "time"

// Status is the outcome of evaluating whether a user may borrow an item.
type Status string

// Statuses in the order they are checked.
const (
	StatusUnknownItem  Status = "UNKNOWN_ITEM"
	StatusNotReady     Status = "NOT_READY"
	StatusLoanedByUser Status = "LOANED_BY_USER"
	StatusTooSoon      Status = "TOO_SOON"
	StatusUserHasOther Status = "USER_HAS_OTHER"
	StatusNoCopiesLeft Status = "NO_COPIES_LEFT"
	StatusAvailable    Status = "AVAILABLE"
)

// Availability is the result of an evaluation. Item is nil for
// StatusUnknownItem. AvailableAt is set for TOO_SOON, USER_HAS_OTHER and
// NO_COPIES_LEFT.
type Availability struct {
	Item        *Item      `json:"item,omitempty"`
	Status      Status     `json:"status"`
	Explanation string     `json:"explanation"`
	AvailableAt *time.Time `json:"available_at,omitempty"`
}

// IsAvailable reports whether a loan may be granted.
func (a *Availability) IsAvailable() bool {
	return a.Status == StatusAvailable
}

// Explain returns the patron-facing explanation for a status.
func Explain(status Status) string {
	switch status {
	case StatusUnknownItem:
		return "This item is not known to the loan system."
	case StatusNotReady:
		return "This item is not available for borrowing at this time."
	case StatusLoanedByUser:
		return "This item is currently on loan to you."
	case StatusTooSoon:
		return "Your loan of this item has recently ended and the reloan wait has not passed."
	case StatusUserHasOther:
		return "You have another item currently on loan."
	case StatusNoCopiesLeft:
		return "All available copies are currently on loan."
	case StatusAvailable:
		return "This item is available for borrowing."
	default:
		return ""
	}
}

// LoanNotice carries what the borrower is told after a successful grant.
type LoanNotice struct {
	User    string    `json:"user"`
	Barcode string    `json:"barcode"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}
