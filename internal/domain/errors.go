// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// Loan outcome errors. These are expected business results, one per
// non-available Status, and callers render each into its own message.
var (
	// ErrUnknownItem is returned when the barcode is not in the registry.
	ErrUnknownItem = errors.New("unknown item")

	// ErrItemNotReady is returned when the item is not open for loans.
	ErrItemNotReady = errors.New("item is not ready for loans")

	// ErrAlreadyLoaned is returned when the user already holds this item.
	ErrAlreadyLoaned = errors.New("item is already loaned to user")

	// ErrCooldownActive is returned when the user returned this item too recently.
	ErrCooldownActive = errors.New("reloan cooldown is still active")

	// ErrOtherActiveLoan is returned when the user holds a different item.
	ErrOtherActiveLoan = errors.New("user has another active loan")

	// ErrNoCopiesAvailable is returned when every copy is out on loan.
	ErrNoCopiesAvailable = errors.New("no copies available")
)

// ErrorForStatus returns the outcome error for a non-available status.
// AVAILABLE and unrecognised statuses return nil.
func ErrorForStatus(status Status) error {
	switch status {
	case StatusUnknownItem:
		return ErrUnknownItem
	case StatusNotReady:
		return ErrItemNotReady
	case StatusLoanedByUser:
		return ErrAlreadyLoaned
	case StatusTooSoon:
		return ErrCooldownActive
	case StatusUserHasOther:
		return ErrOtherActiveLoan
	case StatusNoCopiesLeft:
		return ErrNoCopiesAvailable
	default:
		return nil
	}
}

// IsLoanOutcome reports whether err is one of the expected loan outcome errors
// rather than a fault.
func IsLoanOutcome(err error) bool {
	return errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrItemNotReady) ||
		errors.Is(err, ErrAlreadyLoaned) ||
		errors.Is(err, ErrCooldownActive) ||
		errors.Is(err, ErrOtherActiveLoan) ||
		errors.Is(err, ErrNoCopiesAvailable)
}
