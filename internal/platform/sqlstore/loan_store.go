package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/store"
)

var loanColumns = []interface{}{
	"id", "barcode", "user_id", "state", "start_time", "end_time", "reloan_time",
}

type loanRow struct {
	ID         string    `db:"id"`
	Barcode    string    `db:"barcode"`
	User       string    `db:"user_id"`
	State      string    `db:"state"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	ReloanTime time.Time `db:"reloan_time"`
}

func (r loanRow) toDomain() (*domain.Loan, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid loan id %q: %w", r.ID, err)
	}
	return &domain.Loan{
		ID:         id,
		Barcode:    r.Barcode,
		User:       r.User,
		State:      domain.LoanState(r.State),
		StartTime:  r.StartTime.UTC(),
		EndTime:    r.EndTime.UTC(),
		ReloanTime: r.ReloanTime.UTC(),
	}, nil
}

func loansFromRows(rows []loanRow) ([]*domain.Loan, error) {
	loans := make([]*domain.Loan, 0, len(rows))
	for _, r := range rows {
		loan, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

var (
	stateActive = string(domain.LoanStateActive)
	stateRecent = string(domain.LoanStateRecent)
)

// LoanStore implements store.LoanStore.
type LoanStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewLoanStore creates a LoanStore over a database connection or transaction.
// If logger is nil, a default logger will be used.
func NewLoanStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *LoanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LoanStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "loan_store")),
	}
}

// Ensure LoanStore implements store.LoanStore interface
var _ store.LoanStore = (*LoanStore)(nil)

// Create implements store.LoanStore.Create
func (s *LoanStore) Create(ctx context.Context, loan *domain.Loan) error {
	if err := loan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	q := s.dialect.builder().Insert(tableLoans).Rows(goqu.Record{
		"id":          loan.ID.String(),
		"barcode":     loan.Barcode,
		"user_id":     loan.User,
		"state":       string(loan.State),
		"start_time":  dbTime(loan.StartTime),
		"end_time":    dbTime(loan.EndTime),
		"reloan_time": dbTime(loan.ReloanTime),
	}).Prepared(true)

	if _, err := execute(ctx, s.db, q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: %s/%s", store.ErrLoanExists, loan.Barcode, loan.User)
		}
		s.logger.Error("failed to create loan",
			slog.String("barcode", loan.Barcode),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// list returns the loans matching where, sorted ascending by the given columns.
func (s *LoanStore) list(ctx context.Context, where goqu.Ex, orderBy ...string) ([]*domain.Loan, error) {
	ds := s.dialect.builder().From(tableLoans).Select(loanColumns...).Where(where)
	for _, col := range orderBy {
		ds = ds.OrderAppend(goqu.C(col).Asc())
	}

	var rows []loanRow
	if err := selectInto(ctx, s.db, ds.Prepared(true), &rows); err != nil {
		return nil, err
	}
	return loansFromRows(rows)
}

func (s *LoanStore) one(ctx context.Context, where goqu.Ex) (*domain.Loan, error) {
	loans, err := s.list(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, store.ErrLoanNotFound
	}
	return loans[0], nil
}

// GetForUser implements store.LoanStore.GetForUser
func (s *LoanStore) GetForUser(ctx context.Context, barcode, user string) (*domain.Loan, error) {
	return s.one(ctx, goqu.Ex{"barcode": barcode, "user_id": user})
}

// GetActiveByUser implements store.LoanStore.GetActiveByUser
func (s *LoanStore) GetActiveByUser(ctx context.Context, user string) (*domain.Loan, error) {
	return s.one(ctx, goqu.Ex{"user_id": user, "state": stateActive})
}

// ListByItem implements store.LoanStore.ListByItem
func (s *LoanStore) ListByItem(ctx context.Context, barcode string) ([]*domain.Loan, error) {
	// "active" sorts before "recent"
	return s.list(ctx, goqu.Ex{"barcode": barcode}, "state", "end_time")
}

// ListActiveDue implements store.LoanStore.ListActiveDue
func (s *LoanStore) ListActiveDue(ctx context.Context, now time.Time) ([]*domain.Loan, error) {
	return s.list(ctx, goqu.Ex{
		"state":    stateActive,
		"end_time": goqu.Op{"lte": dbTime(now)},
	}, "end_time")
}

// CountActiveByItem implements store.LoanStore.CountActiveByItem
func (s *LoanStore) CountActiveByItem(ctx context.Context) (map[string]int, error) {
	q := s.dialect.builder().From(tableLoans).
		Select(goqu.C("barcode"), goqu.COUNT("*").As("active")).
		Where(goqu.C("state").Eq(stateActive)).
		GroupBy("barcode").
		Prepared(true)

	var rows []struct {
		Barcode string `db:"barcode"`
		Active  int    `db:"active"`
	}
	if err := selectInto(ctx, s.db, q, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Barcode] = r.Active
	}
	return counts, nil
}

// MarkRecent implements store.LoanStore.MarkRecent
func (s *LoanStore) MarkRecent(ctx context.Context, id uuid.UUID, end, reloan time.Time) error {
	q := s.dialect.builder().Update(tableLoans).Set(goqu.Record{
		"state":       stateRecent,
		"end_time":    dbTime(end),
		"reloan_time": dbTime(reloan),
	}).Where(goqu.Ex{"id": id.String(), "state": stateActive}).Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrLoanNotFound)
}

// Delete implements store.LoanStore.Delete
func (s *LoanStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := s.dialect.builder().Delete(tableLoans).
		Where(goqu.C("id").Eq(id.String())).
		Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return err
	}
	return CheckRowsAffected(result, store.ErrLoanNotFound)
}

// DeleteExpiredRecent implements store.LoanStore.DeleteExpiredRecent
func (s *LoanStore) DeleteExpiredRecent(ctx context.Context, now time.Time) (int, error) {
	q := s.dialect.builder().Delete(tableLoans).Where(goqu.Ex{
		"state":       stateRecent,
		"reloan_time": goqu.Op{"lte": dbTime(now)},
	}).Prepared(true)

	result, err := execute(ctx, s.db, q)
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// WithTx implements store.LoanStore.WithTx
func (s *LoanStore) WithTx(tx *sql.Tx) store.LoanStore {
	return &LoanStore{db: tx, dialect: s.dialect, logger: s.logger}
}
