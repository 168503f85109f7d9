package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/store"
)

// Options tunes the engine.
type Options struct {
	// Policy holds the cooldown and rounding rules.
	Policy domain.LoanPolicy

	// Debug records History even for excluded users.
	Debug bool

	// ExcludedUsers never produce History records outside debug mode.
	ExcludedUsers []string

	// ExcludeStaff extends the exclusion to every person with the library role.
	ExcludeStaff bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Engine implements Service and ItemCloser over the stores. It is the only
// writer of the loan ledger.
type Engine struct {
	db       *sql.DB
	locker   store.LedgerLocker
	items    store.ItemStore
	loans    store.LoanStore
	history  store.HistoryStore
	people   store.PersonStore
	emitter  events.EventEmitter
	policy   domain.LoanPolicy
	debug    bool
	excluded map[string]struct{}
	staff    bool
	clock    func() time.Time
	logger   *slog.Logger
}

// Verify interface compliance at compile time
var (
	_ Service    = (*Engine)(nil)
	_ ItemCloser = (*Engine)(nil)
	_ Ledger     = (*Engine)(nil)
)

// NewEngine creates the loan engine. emitter may be nil, in which case
// events are dropped.
func NewEngine(
	db *sql.DB,
	locker store.LedgerLocker,
	items store.ItemStore,
	loans store.LoanStore,
	history store.HistoryStore,
	people store.PersonStore,
	emitter events.EventEmitter,
	opts Options,
	logger *slog.Logger,
) *Engine {
	if db == nil {
		panic("db cannot be nil")
	}
	if locker == nil {
		panic("locker cannot be nil")
	}
	if items == nil || loans == nil || history == nil || people == nil {
		panic("stores cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Policy == (domain.LoanPolicy{}) {
		opts.Policy = domain.DefaultLoanPolicy()
	}

	excluded := make(map[string]struct{}, len(opts.ExcludedUsers))
	for _, u := range opts.ExcludedUsers {
		if u = strings.TrimSpace(u); u != "" {
			excluded[u] = struct{}{}
		}
	}

	return &Engine{
		db:       db,
		locker:   locker,
		items:    items,
		loans:    loans,
		history:  history,
		people:   people,
		emitter:  emitter,
		policy:   opts.Policy,
		debug:    opts.Debug,
		excluded: excluded,
		staff:    opts.ExcludeStaff,
		clock:    opts.Clock,
		logger:   logger.With(slog.String("component", "loan_engine")),
	}
}

// now returns the current time as stored in the ledger: UTC, whole seconds.
func (e *Engine) now() time.Time {
	return e.clock().UTC().Truncate(time.Second)
}

// Evaluate implements Service.Evaluate.
func (e *Engine) Evaluate(ctx context.Context, user, barcode string) (*domain.Availability, error) {
	if _, err := e.Sweep(ctx); err != nil {
		return nil, err
	}

	view, err := readView(ctx, e.items, e.loans, user, barcode)
	if err != nil {
		return nil, NewServiceError(OpEvaluate, "failed to read loan ledger", err)
	}
	return Evaluate(view, e.now()), nil
}

// Grant implements Service.Grant.
func (e *Engine) Grant(ctx context.Context, user, barcode string) (*domain.Loan, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if strings.TrimSpace(user) == "" || strings.TrimSpace(barcode) == "" {
		return nil, ErrMissingIdentity
	}
	if _, err := e.Sweep(ctx); err != nil {
		return nil, err
	}

	var (
		granted *domain.Loan
		item    *domain.Item
	)
	err := store.RunInExclusiveTransaction(ctx, e.db, e.locker, func(ctx context.Context, tx *sql.Tx) error {
		loans := e.loans.WithTx(tx)

		view, err := readView(ctx, e.items.WithTx(tx), loans, user, barcode)
		if err != nil {
			return err
		}

		now := e.now()
		availability := Evaluate(view, now)
		if !availability.IsAvailable() {
			return NewDeniedError(availability)
		}

		// a cooldown row that lapsed after the sweep still holds the pair
		if view.Own != nil {
			if err := loans.Delete(ctx, view.Own.ID); err != nil {
				return err
			}
		}

		end, reloan := e.policy.GrantTimes(now, view.Item.LoanPeriod())
		loan, err := domain.NewLoan(barcode, user, now, end, reloan)
		if err != nil {
			return err
		}
		if err := loans.Create(ctx, loan); err != nil {
			return err
		}

		granted, item = loan, view.Item
		return nil
	})
	if err != nil {
		var denied *DeniedError
		if errors.As(err, &denied) {
			log.Info("loan denied",
				slog.String("barcode", barcode),
				slog.String("user", user),
				slog.String("status", string(denied.Status)))
			return nil, denied
		}
		log.Error("failed to grant loan",
			slog.String("barcode", barcode),
			slog.String("user", user),
			slog.String("error", err.Error()))
		return nil, NewServiceError(OpGrant, "failed to grant loan", err)
	}

	log.Info("loan granted",
		slog.String("barcode", barcode),
		slog.String("user", user),
		slog.Time("end_time", granted.EndTime))

	e.emit(ctx, events.NewLoanEvent(events.LoanGranted, granted, item))
	return granted, nil
}

// End implements Service.End.
func (e *Engine) End(ctx context.Context, barcode, user string) (*domain.Loan, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if strings.TrimSpace(user) == "" || strings.TrimSpace(barcode) == "" {
		return nil, ErrMissingIdentity
	}
	if _, err := e.Sweep(ctx); err != nil {
		return nil, err
	}

	var ended *domain.Loan
	err := store.RunInExclusiveTransaction(ctx, e.db, e.locker, func(ctx context.Context, tx *sql.Tx) error {
		loans := e.loans.WithTx(tx)

		loan, err := loans.GetForUser(ctx, barcode, user)
		if errors.Is(err, store.ErrLoanNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !loan.IsActive() {
			return nil
		}

		now := e.now()
		end := now
		if loan.EndTime.Before(end) {
			end = loan.EndTime
		}
		if err := e.closeLoan(ctx, tx, loan, end, now); err != nil {
			return err
		}

		ended = loan
		return nil
	})
	if err != nil {
		log.Error("failed to end loan",
			slog.String("barcode", barcode),
			slog.String("user", user),
			slog.String("error", err.Error()))
		return nil, NewServiceError(OpEnd, "failed to end loan", err)
	}

	if ended == nil {
		log.Info("no active loan to end",
			slog.String("barcode", barcode),
			slog.String("user", user))
		return nil, nil
	}

	log.Info("loan ended",
		slog.String("barcode", barcode),
		slog.String("user", user),
		slog.Time("reloan_time", ended.ReloanTime))

	e.emit(ctx, events.NewLoanEvent(events.LoanEnded, ended, nil))
	return ended, nil
}

// closeLoan moves an active loan to recent at end and records its History.
func (e *Engine) closeLoan(ctx context.Context, tx *sql.Tx, loan *domain.Loan, end, now time.Time) error {
	if err := loan.Close(end, e.policy.ReloanAfter(end)); err != nil {
		return err
	}
	if err := e.loans.WithTx(tx).MarkRecent(ctx, loan.ID, loan.EndTime, loan.ReloanTime); err != nil {
		return err
	}
	return e.recordHistory(ctx, tx, loan, now)
}

// ForceClose implements Service.ForceClose.
func (e *Engine) ForceClose(ctx context.Context, barcode string) (int, error) {
	if _, err := e.Sweep(ctx); err != nil {
		return 0, err
	}
	return e.CloseItemLoans(ctx, barcode, nil)
}

// CloseItemLoans implements ItemCloser.CloseItemLoans.
// Returns domain.ErrUnknownItem if the barcode is not registered.
func (e *Engine) CloseItemLoans(ctx context.Context, barcode string, then store.TxFn) (int, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	var (
		deleted int
		closed  []*domain.Loan
	)
	err := store.RunInExclusiveTransaction(ctx, e.db, e.locker, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := e.items.WithTx(tx).GetByBarcode(ctx, barcode); err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				return domain.ErrUnknownItem
			}
			return err
		}

		loans := e.loans.WithTx(tx)
		rows, err := loans.ListByItem(ctx, barcode)
		if err != nil {
			return err
		}

		now := e.now()
		for _, loan := range rows {
			if loan.IsActive() {
				end := now
				if loan.EndTime.Before(end) {
					end = loan.EndTime
				}
				if err := loan.Close(end, end); err != nil {
					return err
				}
				if err := e.recordHistory(ctx, tx, loan, now); err != nil {
					return err
				}
				closed = append(closed, loan)
			}
			if err := loans.Delete(ctx, loan.ID); err != nil {
				return err
			}
			deleted++
		}

		if then != nil {
			return then(ctx, tx)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownItem) {
			return 0, err
		}
		log.Error("failed to close item loans",
			slog.String("barcode", barcode),
			slog.String("error", err.Error()))
		return 0, NewServiceError(OpForceClose, "failed to close item loans", err)
	}

	log.Info("closed item loans",
		slog.String("barcode", barcode),
		slog.Int("deleted", deleted),
		slog.Int("active", len(closed)))

	for _, loan := range closed {
		e.emit(ctx, events.NewLoanEvent(events.LoanClosed, loan, nil))
	}
	return deleted, nil
}

// recordHistory appends the History record of a loan that just left the
// active state, unless its user is excluded from statistics.
func (e *Engine) recordHistory(ctx context.Context, tx *sql.Tx, loan *domain.Loan, now time.Time) error {
	excluded, err := e.excludedFromStats(ctx, tx, loan.User)
	if err != nil {
		return err
	}
	if excluded && !e.debug {
		logger.FromContextOrDefault(ctx, e.logger).Debug("not recording history for excluded user",
			slog.String("barcode", loan.Barcode),
			slog.String("user", loan.User))
		return nil
	}
	return e.history.WithTx(tx).Append(ctx, domain.NewLoanHistory(loan, now))
}

func (e *Engine) excludedFromStats(ctx context.Context, tx *sql.Tx, user string) (bool, error) {
	if _, ok := e.excluded[user]; ok {
		return true, nil
	}
	if !e.staff {
		return false, nil
	}

	person, err := e.people.WithTx(tx).GetByUname(ctx, user)
	if errors.Is(err, store.ErrPersonNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", user, err)
	}
	return person.IsStaff(), nil
}

// emit publishes an event. Handler failures are logged and go no further.
func (e *Engine) emit(ctx context.Context, event *events.LoanEvent) {
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("loan event handler failed",
			slog.String("event_type", event.Type),
			slog.String("barcode", event.Barcode),
			slog.String("error", err.Error()))
	}
}
