package loan

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/store"
)

// Call describes one invocation of a Service method.
type Call struct {
	Operation string
	User      string
	Barcode   string
}

// Interceptor runs around a Service call. It must call next exactly once
// and return its error, possibly after observing it.
type Interceptor func(ctx context.Context, call Call, next func(context.Context) error) error

// Chain wraps svc so that every call passes through the interceptors. The
// first interceptor is the outermost.
func Chain(svc Service, interceptors ...Interceptor) Service {
	if len(interceptors) == 0 {
		return svc
	}
	return &chained{next: svc, interceptors: interceptors}
}

// ChainLedger is Chain for a Ledger. CloseItemLoans passes through the
// interceptors as well, so registry-driven closes are observed like direct
// ones.
func ChainLedger(l Ledger, interceptors ...Interceptor) Ledger {
	if len(interceptors) == 0 {
		return l
	}
	return &chainedLedger{chained: chained{next: l, interceptors: interceptors}, closer: l}
}

type chained struct {
	next         Service
	interceptors []Interceptor
}

func (c *chained) run(ctx context.Context, call Call, fn func(context.Context) error) error {
	h := fn
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ic, inner := c.interceptors[i], h
		h = func(ctx context.Context) error { return ic(ctx, call, inner) }
	}
	return h(ctx)
}

func (c *chained) Evaluate(ctx context.Context, user, barcode string) (*domain.Availability, error) {
	var out *domain.Availability
	err := c.run(ctx, Call{Operation: OpEvaluate, User: user, Barcode: barcode}, func(ctx context.Context) error {
		var err error
		out, err = c.next.Evaluate(ctx, user, barcode)
		return err
	})
	return out, err
}

func (c *chained) Grant(ctx context.Context, user, barcode string) (*domain.Loan, error) {
	var out *domain.Loan
	err := c.run(ctx, Call{Operation: OpGrant, User: user, Barcode: barcode}, func(ctx context.Context) error {
		var err error
		out, err = c.next.Grant(ctx, user, barcode)
		return err
	})
	return out, err
}

func (c *chained) End(ctx context.Context, barcode, user string) (*domain.Loan, error) {
	var out *domain.Loan
	err := c.run(ctx, Call{Operation: OpEnd, User: user, Barcode: barcode}, func(ctx context.Context) error {
		var err error
		out, err = c.next.End(ctx, barcode, user)
		return err
	})
	return out, err
}

func (c *chained) ForceClose(ctx context.Context, barcode string) (int, error) {
	var out int
	err := c.run(ctx, Call{Operation: OpForceClose, Barcode: barcode}, func(ctx context.Context) error {
		var err error
		out, err = c.next.ForceClose(ctx, barcode)
		return err
	})
	return out, err
}

func (c *chained) Sweep(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	err := c.run(ctx, Call{Operation: OpSweep}, func(ctx context.Context) error {
		var err error
		out, err = c.next.Sweep(ctx)
		return err
	})
	return out, err
}

type chainedLedger struct {
	chained
	closer ItemCloser
}

func (c *chainedLedger) CloseItemLoans(ctx context.Context, barcode string, then store.TxFn) (int, error) {
	var out int
	err := c.run(ctx, Call{Operation: OpCloseItemLoans, Barcode: barcode}, func(ctx context.Context) error {
		var err error
		out, err = c.closer.CloseItemLoans(ctx, barcode, then)
		return err
	})
	return out, err
}

// LoggingInterceptor logs every call with its duration and outcome. Denials
// are logged at info level and faults at error level.
func LoggingInterceptor(fallback *slog.Logger) Interceptor {
	if fallback == nil {
		fallback = slog.Default()
	}
	fallback = fallback.With(slog.String("component", "loan_service"))

	return func(ctx context.Context, call Call, next func(context.Context) error) error {
		log := logger.FromContextOrDefault(ctx, fallback)
		start := time.Now()

		err := next(ctx)
		outcome := Outcome(err)

		attrs := []any{
			slog.String("operation", call.Operation),
			slog.String("outcome", outcome),
			slog.Duration("duration", time.Since(start)),
		}
		if call.Barcode != "" {
			attrs = append(attrs, slog.String("barcode", call.Barcode))
		}
		if call.User != "" {
			attrs = append(attrs, slog.String("user", call.User))
		}

		switch outcome {
		case "ok":
			log.Debug("loan operation completed", attrs...)
		case "error":
			log.Error("loan operation failed", append(attrs, slog.String("error", err.Error()))...)
		default:
			log.Info("loan operation refused", attrs...)
		}
		return err
	}
}
