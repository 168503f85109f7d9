package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Entity-specific
// variants wrap the generic ones, so callers may test for either.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write would break a uniqueness rule,
	// such as a second loan row for the same item and user.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before it
	// is written, or the database rejects it on a check or reference rule.
	ErrInvalidEntity = errors.New("invalid entity")

	ErrItemNotFound   = fmt.Errorf("%w: item", ErrNotFound)
	ErrLoanNotFound   = fmt.Errorf("%w: loan", ErrNotFound)
	ErrPersonNotFound = fmt.Errorf("%w: person", ErrNotFound)

	ErrItemExists   = fmt.Errorf("%w: item barcode", ErrDuplicate)
	ErrLoanExists   = fmt.Errorf("%w: loan for item and user", ErrDuplicate)
	ErrPersonExists = fmt.Errorf("%w: person", ErrDuplicate)
)
