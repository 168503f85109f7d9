package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoan(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	loan, err := NewLoan("350470000611207", "alice", start, end, end.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, loan.IsActive())
	assert.NotEmpty(t, loan.ID)

	tests := []struct {
		name    string
		barcode string
		user    string
		end     time.Time
		reloan  time.Time
		wantErr error
	}{
		{"empty barcode", "", "alice", end, end, ErrLoanBarcodeEmpty},
		{"empty user", "123", " ", end, end, ErrLoanUserEmpty},
		{"end not after start", "123", "alice", start, start, ErrLoanTimesInvalid},
		{"reloan before end", "123", "alice", end, end.Add(-time.Minute), ErrLoanTimesInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoan(tc.barcode, tc.user, start, tc.end, tc.reloan)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoan_Close(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	loan, err := NewLoan("123", "alice", start, start.Add(time.Hour), start.Add(90*time.Minute))
	require.NoError(t, err)

	returned := start.Add(20 * time.Minute)
	require.NoError(t, loan.Close(returned, returned.Add(30*time.Minute)))

	assert.Equal(t, LoanStateRecent, loan.State)
	assert.Equal(t, returned, loan.EndTime)
	assert.Equal(t, returned.Add(30*time.Minute), loan.ReloanTime)
	assert.NoError(t, loan.Validate())

	// closing twice is rejected
	assert.ErrorIs(t, loan.Close(returned, returned), ErrLoanStateInvalid)
}

func TestLoan_CloseKeepsTimesOrdered(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	loan, err := NewLoan("123", "alice", start, start.Add(time.Hour), start.Add(time.Hour))
	require.NoError(t, err)

	// returned in the same second it was granted, with a reloan in the past
	require.NoError(t, loan.Close(start, start.Add(-time.Minute)))

	assert.True(t, loan.EndTime.After(loan.StartTime))
	assert.False(t, loan.ReloanTime.Before(loan.EndTime))
	assert.NoError(t, loan.Validate())
}
