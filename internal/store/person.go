package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// PersonStore holds the known accounts and their roles.
type PersonStore interface {
	// Create inserts a person.
	// Returns ErrPersonExists if the user name is taken.
	Create(ctx context.Context, person *domain.Person) error

	// GetByUname retrieves a person by user name.
	// Returns ErrPersonNotFound if there is none.
	GetByUname(ctx context.Context, uname string) (*domain.Person, error)

	// TouchAuthTime records a successful login.
	TouchAuthTime(ctx context.Context, uname string, at time.Time) error

	// WithTx returns a new PersonStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PersonStore
}
