package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryTypeLoan marks a History record describing a completed loan.
const HistoryTypeLoan = "loan"

// History is an append-only record of a loan that left the active state.
// It does not name the borrower.
type History struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Barcode    string    `json:"barcode"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewLoanHistory builds the History record for a loan that just closed.
func NewLoanHistory(loan *Loan, recordedAt time.Time) *History {
	return &History{
		ID:         uuid.New(),
		Type:       HistoryTypeLoan,
		Barcode:    loan.Barcode,
		StartTime:  loan.StartTime,
		EndTime:    loan.EndTime,
		RecordedAt: recordedAt.UTC(),
	}
}

// Duration is how long the loan was held.
func (h *History) Duration() time.Duration {
	return h.EndTime.Sub(h.StartTime)
}

// ItemUsage summarises the loans of one item for the statistics report.
type ItemUsage struct {
	Item            *Item          `json:"item"`
	ActiveLoans     int            `json:"active_loans"`
	CompletedLoans  int            `json:"completed_loans"`
	AverageDuration *time.Duration `json:"average_duration,omitempty"`
}

// SummarizeUsage computes an ItemUsage from the item's history records.
// AverageDuration stays nil when the item was never borrowed.
func SummarizeUsage(item *Item, activeLoans int, history []*History) ItemUsage {
	usage := ItemUsage{
		Item:           item,
		ActiveLoans:    activeLoans,
		CompletedLoans: len(history),
	}
	if len(history) == 0 {
		return usage
	}

	var total time.Duration
	for _, h := range history {
		total += h.Duration()
	}
	avg := total / time.Duration(len(history))
	usage.AverageDuration = &avg
	return usage
}
