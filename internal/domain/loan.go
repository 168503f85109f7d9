package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoanState is the lifecycle state of a loan row in the ledger.
type LoanState string

const (
	// LoanStateActive means the loan currently grants the user access.
	LoanStateActive LoanState = "active"

	// LoanStateRecent means the loan is closed and the row only enforces
	// the reloan cooldown.
	LoanStateRecent LoanState = "recent"
)

// Loan-specific validation errors
var (
	ErrLoanIDEmpty      = errors.New("loan ID cannot be empty")
	ErrLoanBarcodeEmpty = errors.New("loan barcode cannot be empty")
	ErrLoanUserEmpty    = errors.New("loan user cannot be empty")
	ErrLoanStateInvalid = errors.New("invalid loan state")
	ErrLoanTimesInvalid = errors.New("loan times are inconsistent")
)

// Valid reports whether the state is one of the known states.
func (s LoanState) Valid() bool {
	return s == LoanStateActive || s == LoanStateRecent
}

// Loan is a row in the ledger. There is at most one Loan per (barcode, user).
type Loan struct {
	ID         uuid.UUID `json:"id"`
	Barcode    string    `json:"barcode"`
	User       string    `json:"user"`
	State      LoanState `json:"state"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	ReloanTime time.Time `json:"reloan_time"`
}

// NewLoan creates an active Loan. Times are stored in UTC.
func NewLoan(barcode, user string, start, end, reloan time.Time) (*Loan, error) {
	loan := &Loan{
		ID:         uuid.New(),
		Barcode:    barcode,
		User:       user,
		State:      LoanStateActive,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		ReloanTime: reloan.UTC(),
	}

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	return loan, nil
}

// Validate checks the Loan's fields and the ordering of its timestamps:
// end after start, reloan not before end.
func (l *Loan) Validate() error {
	if l.ID == uuid.Nil {
		return ErrLoanIDEmpty
	}

	if strings.TrimSpace(l.Barcode) == "" {
		return ErrLoanBarcodeEmpty
	}

	if strings.TrimSpace(l.User) == "" {
		return ErrLoanUserEmpty
	}

	if !l.State.Valid() {
		return fmt.Errorf("%w: %q", ErrLoanStateInvalid, l.State)
	}

	if !l.EndTime.After(l.StartTime) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrLoanTimesInvalid,
			l.EndTime.Format(time.RFC3339), l.StartTime.Format(time.RFC3339))
	}

	if l.ReloanTime.Before(l.EndTime) {
		return fmt.Errorf("%w: reloan %s is before end %s", ErrLoanTimesInvalid,
			l.ReloanTime.Format(time.RFC3339), l.EndTime.Format(time.RFC3339))
	}

	return nil
}

// IsActive reports whether the loan currently grants access.
func (l *Loan) IsActive() bool {
	return l.State == LoanStateActive
}

// Close moves an active loan into the recent state with the given end and
// reloan times. Reloan is clamped so it never precedes end.
func (l *Loan) Close(end, reloan time.Time) error {
	if !l.IsActive() {
		return fmt.Errorf("%w: loan %s is already %s", ErrLoanStateInvalid, l.ID, l.State)
	}

	end = end.UTC()
	reloan = reloan.UTC()
	if reloan.Before(end) {
		reloan = end
	}

	// A return in the same second the loan started would leave end == start.
	if !end.After(l.StartTime) {
		end = l.StartTime.Add(time.Second)
		if reloan.Before(end) {
			reloan = end
		}
	}

	l.State = LoanStateRecent
	l.EndTime = end
	l.ReloanTime = reloan
	return nil
}
