package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRounding_Apply(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 14, 22, 59, 30, 0, time.UTC)
	onMinute := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rounding Rounding
		in       time.Time
		want     time.Time
	}{
		{"up mid-minute", RoundUp, base, onMinute},
		{"up on boundary moves forward", RoundUp, onMinute, onMinute.Add(time.Minute)},
		{"down mid-minute", RoundDown, base, base.Truncate(time.Minute)},
		{"down on boundary", RoundDown, onMinute, onMinute},
		{"none", RoundNone, base, base},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rounding.Apply(tc.in))
		})
	}
}

func TestParseRounding(t *testing.T) {
	t.Parallel()

	r, err := ParseRounding(" Down ")
	require.NoError(t, err)
	assert.Equal(t, RoundDown, r)

	_, err = ParseRounding("sideways")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoanPolicy_GrantTimes(t *testing.T) {
	t.Parallel()

	policy := DefaultLoanPolicy()
	start := time.Date(2026, 3, 14, 10, 15, 42, 0, time.UTC)

	end, reloan := policy.GrantTimes(start, 2*time.Hour)

	assert.Equal(t, time.Date(2026, 3, 14, 12, 16, 0, 0, time.UTC), end)
	assert.Equal(t, end.Add(30*time.Minute), reloan)
}

func TestLoanPolicy_ReloanAfter(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 3, 14, 10, 15, 42, 0, time.UTC)

	policy := DefaultLoanPolicy()
	assert.Equal(t, time.Date(2026, 3, 14, 10, 45, 0, 0, time.UTC), policy.ReloanAfter(end))

	// a zero cooldown rounded down would land before the end time
	policy.Cooldown = 0
	assert.Equal(t, end, policy.ReloanAfter(end))
}
