package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/dibs-api/internal/domain"
)

// Loan event types.
const (
	// LoanGranted is emitted after a new loan commits.
	LoanGranted = "loan_granted"

	// LoanEnded is emitted after a borrower returns an item.
	LoanEnded = "loan_ended"

	// LoanExpired is emitted when the sweep closes an overdue loan.
	LoanExpired = "loan_expired"

	// LoanClosed is emitted when staff force-close the loans of an item.
	LoanClosed = "loan_closed"
)

// LoanEvent describes one committed change to a loan.
type LoanEvent struct {
	ID         uuid.UUID        `json:"id"`
	Type       string           `json:"type"`
	Barcode    string           `json:"barcode"`
	User       string           `json:"user"`
	Title      string           `json:"title,omitempty"`
	Author     string           `json:"author,omitempty"`
	State      domain.LoanState `json:"state"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	ReloanTime time.Time        `json:"reloan_time"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewLoanEvent builds an event for a loan. item may be nil when the item
// details are not at hand.
func NewLoanEvent(eventType string, loan *domain.Loan, item *domain.Item) *LoanEvent {
	e := &LoanEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Barcode:    loan.Barcode,
		User:       loan.User,
		State:      loan.State,
		StartTime:  loan.StartTime,
		EndTime:    loan.EndTime,
		ReloanTime: loan.ReloanTime,
		OccurredAt: time.Now().UTC(),
	}
	if item != nil {
		e.Title = item.Title
		e.Author = item.Author
	}
	return e
}

// Notice returns what the borrower is told about the loan.
func (e *LoanEvent) Notice() domain.LoanNotice {
	return domain.LoanNotice{
		User:    e.User,
		Barcode: e.Barcode,
		Title:   e.Title,
		Author:  e.Author,
		Start:   e.StartTime,
		End:     e.EndTime,
	}
}

// EventHandler reacts to loan events. A handler error is reported to the
// emitter but never undoes the committed loan change.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *LoanEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *LoanEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *LoanEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes loan events after the engine commits.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *LoanEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *LoanEvent) error { return nil }
