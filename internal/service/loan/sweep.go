package loan

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/store"
)

// Sweep implements Service.Sweep. Each pass runs in its own locked
// transaction. An expired loan keeps its scheduled end time, and the update
// and its History record commit together, so repeated or concurrent sweeps
// record each expiry exactly once.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)
	now := e.now()

	var result SweepResult
	err := store.RunInExclusiveTransaction(ctx, e.db, e.locker, func(ctx context.Context, tx *sql.Tx) error {
		n, err := e.loans.WithTx(tx).DeleteExpiredRecent(ctx, now)
		result.Purged = n
		return err
	})
	if err != nil {
		log.Error("failed to purge lapsed cooldowns", slog.String("error", err.Error()))
		return SweepResult{}, NewServiceError(OpSweep, "failed to purge lapsed cooldowns", err)
	}

	// lock only when something is overdue
	due, err := e.loans.ListActiveDue(ctx, now)
	if err != nil {
		return result, NewServiceError(OpSweep, "failed to list overdue loans", err)
	}

	var expired []*domain.Loan
	if len(due) > 0 {
		err = store.RunInExclusiveTransaction(ctx, e.db, e.locker, func(ctx context.Context, tx *sql.Tx) error {
			due, err := e.loans.WithTx(tx).ListActiveDue(ctx, now)
			if err != nil {
				return err
			}
			for _, loan := range due {
				if err := e.closeLoan(ctx, tx, loan, loan.EndTime, now); err != nil {
					return err
				}
				expired = append(expired, loan)
			}
			return nil
		})
		if err != nil {
			log.Error("failed to expire overdue loans", slog.String("error", err.Error()))
			return result, NewServiceError(OpSweep, "failed to expire overdue loans", err)
		}
	}
	result.Expired = len(expired)

	if result.Purged > 0 || result.Expired > 0 {
		log.Info("swept loan ledger",
			slog.Int("purged", result.Purged),
			slog.Int("expired", result.Expired))
	}

	for _, loan := range expired {
		e.emit(ctx, events.NewLoanEvent(events.LoanExpired, loan, nil))
	}
	return result, nil
}
