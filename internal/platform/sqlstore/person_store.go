package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

type personRow struct {
	Uname        string       `db:"uname"`
	Role         string       `db:"role"`
	DisplayName  string       `db:"display_name"`
	PasswordHash string       `db:"password_hash"`
	AuthTime     sql.NullTime `db:"auth_time"`
}

func (r personRow) toDomain() *domain.Person {
	p := &domain.Person{
		Uname:        r.Uname,
		Role:         r.Role,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
	}
	if r.AuthTime.Valid {
		at := r.AuthTime.Time.UTC()
		p.AuthTime = &at
	}
	return p
}

// PersonStore implements store.PersonStore.
type PersonStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewPersonStore creates a PersonStore over a database connection or transaction.
func NewPersonStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *PersonStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PersonStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "person_store")),
	}
}

// Ensure PersonStore implements store.PersonStore interface
var _ store.PersonStore = (*PersonStore)(nil)

// Create implements store.PersonStore.Create
func (s *PersonStore) Create(ctx context.Context, person *domain.Person) error {
	if err := person.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	record := goqu.Record{
		"uname":         person.Uname,
		"role":          person.Role,
		"display_name":  person.DisplayName,
		"password_hash": person.PasswordHash,
	}
	if person.AuthTime != nil {
		record["auth_time"] = dbTime(*person.AuthTime)
	}

	q := s.dialect.builder().Insert(tablePeople).Rows(record).Prepared(true)
	if _, err := execute(ctx, s.db, q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: %s", store.ErrPersonExists, person.Uname)
		}
		return err
	}
	return nil
}

// GetByUname implements store.PersonStore.GetByUname
func (s *PersonStore) GetByUname(ctx context.Context, uname string) (*domain.Person, error) {
	q := s.dialect.builder().From(tablePeople).
		Select("uname", "role", "display_name", "password_hash", "auth_time").
		Where(goqu.C("uname").Eq(uname)).
		Prepared(true)

	var rows []personRow
	if err := selectInto(ctx, s.db, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrPersonNotFound
	}
	return rows[0].toDomain(), nil
}

// TouchAuthTime implements store.PersonStore.TouchAuthTime
func (s *PersonStore) TouchAuthTime(ctx context.Context, uname string, at time.Time) error {
	q := s.dialect.builder().Update(tablePeople).
		Set(goqu.Record{"auth_time": dbTime(at)}).
		Where(goqu.C("uname").Eq(uname)).
		Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrPersonNotFound)
}

// WithTx implements store.PersonStore.WithTx
func (s *PersonStore) WithTx(tx *sql.Tx) store.PersonStore {
	return &PersonStore{db: tx, dialect: s.dialect, logger: s.logger}
}
