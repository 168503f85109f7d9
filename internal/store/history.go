package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// HistoryStore is the append-only record of completed loans.
type HistoryStore interface {
	// Append stores a new history record.
	Append(ctx context.Context, record *domain.History) error

	// ListByBarcode returns the records of one item, oldest first.
	ListByBarcode(ctx context.Context, barcode string) ([]*domain.History, error)

	// ListByType returns every record of the given type grouped by barcode.
	ListByType(ctx context.Context, recordType string) (map[string][]*domain.History, error)

	// WithTx returns a new HistoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) HistoryStore
}
