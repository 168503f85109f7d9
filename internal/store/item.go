package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// ItemStore is the item registry. It is read by the loan engine and written
// only by the administrative service.
type ItemStore interface {
	// Create inserts a new item.
	// Returns ErrItemExists if the barcode is already registered,
	// or ErrInvalidEntity if the item fails validation.
	Create(ctx context.Context, item *domain.Item) error

	// GetByBarcode retrieves an item by its barcode.
	// Returns ErrItemNotFound if the barcode is unknown.
	GetByBarcode(ctx context.Context, barcode string) (*domain.Item, error)

	// List returns every item ordered by title, then barcode.
	List(ctx context.Context) ([]*domain.Item, error)

	// Update saves the copy count, duration and cached metadata of an item.
	// Returns ErrItemNotFound if the barcode is unknown.
	Update(ctx context.Context, item *domain.Item) error

	// SetReady changes the ready flag of an item.
	// Returns ErrItemNotFound if the barcode is unknown.
	SetReady(ctx context.Context, barcode string, ready bool) error

	// Delete removes an item. Loans referencing it must be removed first.
	// Returns ErrItemNotFound if the barcode is unknown.
	Delete(ctx context.Context, barcode string) error

	// WithTx returns a new ItemStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ItemStore
}
