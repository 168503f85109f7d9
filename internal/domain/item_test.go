package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Parallel()

	item, err := NewItem(" 350470000611207 ", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "350470000611207", item.Barcode)
	assert.False(t, item.Ready, "new items start out not ready")
	assert.Equal(t, 4*time.Hour, item.LoanPeriod())

	_, err = NewItem("", 1, 1)
	assert.ErrorIs(t, err, ErrItemBarcodeEmpty)

	_, err = NewItem("123", 0, 1)
	assert.ErrorIs(t, err, ErrItemCopiesInvalid)

	_, err = NewItem("123", 1, 0)
	assert.ErrorIs(t, err, ErrItemDurationInvalid)
}

func TestPerson_IsStaff(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Person{Uname: "libby", Role: "library"}).IsStaff())
	assert.True(t, (&Person{Uname: "libby", Role: "admin, library"}).IsStaff())
	assert.False(t, (&Person{Uname: "pat", Role: ""}).IsStaff())
	assert.False(t, (*Person)(nil).IsStaff())
}

func TestSummarizeUsage(t *testing.T) {
	t.Parallel()

	item := &Item{Barcode: "123", NumCopies: 1, Duration: 1}
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	never := SummarizeUsage(item, 0, nil)
	assert.Nil(t, never.AverageDuration)
	assert.Zero(t, never.CompletedLoans)

	usage := SummarizeUsage(item, 1, []*History{
		{StartTime: start, EndTime: start.Add(time.Hour)},
		{StartTime: start, EndTime: start.Add(3 * time.Hour)},
	})
	require.NotNil(t, usage.AverageDuration)
	assert.Equal(t, 2*time.Hour, *usage.AverageDuration)
	assert.Equal(t, 2, usage.CompletedLoans)
	assert.Equal(t, 1, usage.ActiveLoans)
}

func TestErrorForStatus(t *testing.T) {
	t.Parallel()

	statuses := []Status{
		StatusUnknownItem, StatusNotReady, StatusLoanedByUser,
		StatusTooSoon, StatusUserHasOther, StatusNoCopiesLeft,
	}
	for _, s := range statuses {
		err := ErrorForStatus(s)
		require.Error(t, err, s)
		assert.True(t, IsLoanOutcome(err), s)
		assert.NotEmpty(t, Explain(s))
	}

	assert.NoError(t, ErrorForStatus(StatusAvailable))
}
