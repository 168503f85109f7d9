package domain

import (
	"fmt"
	"strings"
	"time"
)

// Rounding selects how a loan boundary is aligned to whole minutes.
type Rounding string

const (
	// RoundUp moves a time to the following minute boundary. A time already
	// on a boundary still moves one minute forward.
	RoundUp Rounding = "up"

	// RoundDown truncates a time to its minute.
	RoundDown Rounding = "down"

	// RoundNone leaves times untouched.
	RoundNone Rounding = "none"
)

// ParseRounding parses a rounding name, case-insensitively.
func ParseRounding(s string) (Rounding, error) {
	switch r := Rounding(strings.ToLower(strings.TrimSpace(s))); r {
	case RoundUp, RoundDown, RoundNone:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown rounding %q", ErrValidation, s)
	}
}

// Apply aligns t according to the rounding mode.
func (r Rounding) Apply(t time.Time) time.Time {
	switch r {
	case RoundUp:
		return t.Truncate(time.Minute).Add(time.Minute)
	case RoundDown:
		return t.Truncate(time.Minute)
	default:
		return t
	}
}

// DefaultCooldown is the reloan wait applied when none is configured.
const DefaultCooldown = 30 * time.Minute

// LoanPolicy holds the timing rules of the loan engine.
type LoanPolicy struct {
	// Cooldown is the minimum wait after a loan ends before the same user
	// may borrow the same item again.
	Cooldown time.Duration

	// GrantRounding aligns the end time of a new loan.
	GrantRounding Rounding

	// ReturnRounding aligns the reloan time of a loan that was returned or
	// expired.
	ReturnRounding Rounding
}

// DefaultLoanPolicy rounds grant end times up and reloan times down.
func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		Cooldown:       DefaultCooldown,
		GrantRounding:  RoundUp,
		ReturnRounding: RoundDown,
	}
}

// GrantTimes computes the end and reloan times of a loan starting at start.
func (p LoanPolicy) GrantTimes(start time.Time, period time.Duration) (end, reloan time.Time) {
	end = p.GrantRounding.Apply(start.Add(period))
	if !end.After(start) {
		end = start.Add(period)
	}
	return end, end.Add(p.Cooldown)
}

// ReloanAfter computes the reloan time of a loan that ended at end. The
// result is never before end.
func (p LoanPolicy) ReloanAfter(end time.Time) time.Time {
	reloan := p.ReturnRounding.Apply(end.Add(p.Cooldown))
	if reloan.Before(end) {
		return end
	}
	return reloan
}
