package loan

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrant_SingleCopyScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	assert.Equal(t, domain.StatusAvailable, f.evaluate(t, "alice", "X").Status)

	loan, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateActive, loan.State)
	assert.True(t, loan.StartTime.Equal(base))
	// 12:00:00 rounds up to the next minute boundary
	assert.True(t, loan.EndTime.Equal(base.Add(2*time.Hour+time.Minute)), "end %s", loan.EndTime)
	assert.True(t, loan.ReloanTime.Equal(loan.EndTime.Add(domain.DefaultCooldown)))

	assert.Equal(t, domain.StatusLoanedByUser, f.evaluate(t, "alice", "X").Status)

	forBob := f.evaluate(t, "bob", "X")
	assert.Equal(t, domain.StatusNoCopiesLeft, forBob.Status)
	require.NotNil(t, forBob.AvailableAt)
	assert.True(t, forBob.AvailableAt.Equal(loan.EndTime))

	_, err = f.engine.Grant(ctx, "bob", "X")
	assert.ErrorIs(t, err, domain.ErrNoCopiesAvailable)

	assert.Equal(t, []string{events.LoanGranted}, f.emitter.types())
}

func TestEnd_CooldownScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	_, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	f.clock.Advance(10*time.Minute + 25*time.Second)
	ended, err := f.engine.End(ctx, "X", "alice")
	require.NoError(t, err)
	require.NotNil(t, ended)

	returnedAt := base.Add(10*time.Minute + 25*time.Second)
	assert.Equal(t, domain.LoanStateRecent, ended.State)
	assert.True(t, ended.EndTime.Equal(returnedAt))
	// reloan rounds down: 10:40:25 becomes 10:40:00
	wantReloan := base.Add(40 * time.Minute)
	assert.True(t, ended.ReloanTime.Equal(wantReloan), "reloan %s", ended.ReloanTime)
	assert.Equal(t, 1, f.historyCount(t, "X"))

	tooSoon := f.evaluate(t, "alice", "X")
	assert.Equal(t, domain.StatusTooSoon, tooSoon.Status)
	require.NotNil(t, tooSoon.AvailableAt)
	assert.True(t, tooSoon.AvailableAt.Equal(wantReloan))

	_, err = f.engine.Grant(ctx, "alice", "X")
	assert.ErrorIs(t, err, domain.ErrCooldownActive)
	assert.Equal(t, domain.StatusTooSoon, deniedStatus(err))

	// others are not held back by alice's cooldown
	assert.Equal(t, domain.StatusAvailable, f.evaluate(t, "bob", "X").Status)

	f.clock.Advance(30 * time.Minute)
	assert.Equal(t, domain.StatusAvailable, f.evaluate(t, "alice", "X").Status)

	_, err = f.loans.GetForUser(ctx, "X", "alice")
	assert.ErrorIs(t, err, store.ErrLoanNotFound, "the sweep deletes the lapsed cooldown row")

	again, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateActive, again.State)
}

func TestEnd_IsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	_, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	first, err := f.engine.End(ctx, "X", "alice")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := f.engine.End(ctx, "X", "alice")
	require.NoError(t, err)
	assert.Nil(t, second)

	never, err := f.engine.End(ctx, "X", "bob")
	require.NoError(t, err)
	assert.Nil(t, never)

	assert.Equal(t, 1, f.historyCount(t, "X"))
	assert.Equal(t, []string{events.LoanGranted, events.LoanEnded}, f.emitter.types())
}

func TestGrantThenEnd_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 4)

	granted, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	ended, err := f.engine.End(ctx, "X", "alice")
	require.NoError(t, err)
	require.NotNil(t, ended)

	assert.Equal(t, granted.ID, ended.ID)
	assert.Equal(t, domain.LoanStateRecent, ended.State)
	assert.WithinDuration(t, base, ended.EndTime, time.Second)
	assert.True(t, ended.EndTime.After(ended.StartTime))
	want := ended.EndTime.Add(domain.DefaultCooldown).Truncate(time.Minute)
	assert.True(t, ended.ReloanTime.Equal(want), "reloan %s, want %s", ended.ReloanTime, want)
}

func TestSweep_ExpiresOverdueLoansOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	loan, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	f.clock.Advance(2*time.Hour + 10*time.Minute)

	// any later call sweeps; here it is bob asking about the item
	assert.Equal(t, domain.StatusAvailable, f.evaluate(t, "bob", "X").Status)

	row, err := f.loans.GetForUser(ctx, "X", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateRecent, row.State)
	assert.True(t, row.EndTime.Equal(loan.EndTime), "expiry keeps the scheduled end time")
	assert.True(t, row.ReloanTime.Equal(loan.EndTime.Add(domain.DefaultCooldown)))

	for i := 0; i < 3; i++ {
		result, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Expired)
	}
	assert.Equal(t, 1, f.historyCount(t, "X"))
	assert.Equal(t, domain.StatusTooSoon, f.evaluate(t, "alice", "X").Status)
	assert.Contains(t, f.emitter.types(), events.LoanExpired)

	f.clock.Advance(time.Hour)
	result, err := f.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, 1, f.historyCount(t, "X"))
}

func TestCloseItemLoans_ReadinessScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 2, 2)

	_, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)
	_, err = f.engine.Grant(ctx, "bob", "X")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	_, err = f.engine.End(ctx, "X", "bob")
	require.NoError(t, err)
	require.Equal(t, 1, f.historyCount(t, "X"))

	n, err := f.engine.CloseItemLoans(ctx, "X", func(ctx context.Context, tx *sql.Tx) error {
		return f.items.WithTx(tx).SetReady(ctx, "X", false)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "both the active and the recent row are deleted")

	loans, err := f.loans.ListByItem(ctx, "X")
	require.NoError(t, err)
	assert.Empty(t, loans)
	assert.Equal(t, 2, f.historyCount(t, "X"), "only the active loan adds a record")

	assert.Equal(t, domain.StatusNotReady, f.evaluate(t, "alice", "X").Status)
	assert.Contains(t, f.emitter.types(), events.LoanClosed)
}

func TestCloseItemLoans_RollsBackOnFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	_, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	boom := errors.New("registry update failed")
	_, err = f.engine.CloseItemLoans(ctx, "X", func(context.Context, *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, domain.StatusLoanedByUser, f.evaluate(t, "alice", "X").Status)
	assert.Zero(t, f.historyCount(t, "X"))
}

func TestForceClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)

	n, err := f.engine.ForceClose(ctx, "X")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	n, err = f.engine.ForceClose(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.StatusAvailable, f.evaluate(t, "alice", "X").Status,
		"force-close leaves no cooldown behind")

	_, err = f.engine.ForceClose(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)
}

func TestGrant_Denials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 3, 2)
	f.addItem(t, "Y", 1, 1)
	hidden, err := domain.NewItem("Z", 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.items.Create(ctx, hidden))

	_, err = f.engine.Grant(ctx, "alice", "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)

	_, err = f.engine.Grant(ctx, "alice", "Z")
	assert.ErrorIs(t, err, domain.ErrItemNotReady)

	held, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)

	_, err = f.engine.Grant(ctx, "alice", "X")
	assert.ErrorIs(t, err, domain.ErrAlreadyLoaned)

	_, err = f.engine.Grant(ctx, "alice", "Y")
	assert.ErrorIs(t, err, domain.ErrOtherActiveLoan)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	require.NotNil(t, denied.AvailableAt)
	assert.True(t, denied.AvailableAt.Equal(held.EndTime))

	_, err = f.engine.Grant(ctx, "", "X")
	assert.ErrorIs(t, err, ErrMissingIdentity)
	_, err = f.engine.End(ctx, "X", " ")
	assert.ErrorIs(t, err, ErrMissingIdentity)

	counts, err := f.loans.CountActiveByItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"X": 1}, counts, "denials change nothing")
}

func TestGrant_NotificationFailureKeepsLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addItem(t, "X", 1, 2)
	f.emitter.err = errors.New("smtp unavailable")

	loan, err := f.engine.Grant(ctx, "alice", "X")
	require.NoError(t, err)
	require.NotNil(t, loan)

	row, err := f.loans.GetForUser(ctx, "X", "alice")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, row.ID)
}

func TestHistoryExclusion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		user        string
		configure   func(*Options)
		wantHistory int
	}{
		{
			name:        "regular borrower",
			user:        "alice",
			configure:   func(o *Options) { o.ExcludedUsers = []string{"tester"}; o.ExcludeStaff = true },
			wantHistory: 1,
		},
		{
			name:        "excluded user",
			user:        "tester",
			configure:   func(o *Options) { o.ExcludedUsers = []string{"tester"} },
			wantHistory: 0,
		},
		{
			name:        "staff excluded",
			user:        "libby",
			configure:   func(o *Options) { o.ExcludeStaff = true },
			wantHistory: 0,
		},
		{
			name:        "staff counted when exclusion is off",
			user:        "libby",
			configure:   func(o *Options) {},
			wantHistory: 1,
		},
		{
			name:        "debug mode records everyone",
			user:        "tester",
			configure:   func(o *Options) { o.ExcludedUsers = []string{"tester"}; o.Debug = true },
			wantHistory: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFixture(t, tc.configure)
			f.addItem(t, "X", 1, 2)
			require.NoError(t, f.people.Create(ctx, &domain.Person{Uname: "libby", Role: domain.RoleLibrary}))

			_, err := f.engine.Grant(ctx, tc.user, "X")
			require.NoError(t, err)
			ended, err := f.engine.End(ctx, "X", tc.user)
			require.NoError(t, err)
			require.NotNil(t, ended)

			assert.Equal(t, tc.wantHistory, f.historyCount(t, "X"))
		})
	}
}

func TestGrant_ConcurrentCallersNeverExceedCopies(t *testing.T) {
	t.Parallel()
	checkConcurrentGrantsWithinCopies(t, newFixture(t))
}

func TestGrant_ConcurrentCallsBySameUser(t *testing.T) {
	t.Parallel()
	checkConcurrentGrantsOneLoanPerUser(t, newFixture(t))
}

// checkConcurrentGrantsWithinCopies races twelve users for two copies.
func checkConcurrentGrantsWithinCopies(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.addItem(t, "X", 2, 2)

	const callers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		denied  int
		faults  []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := f.engine.Grant(ctx, user, "X")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, domain.ErrNoCopiesAvailable):
				denied++
			default:
				faults = append(faults, err)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	require.Empty(t, faults)
	assert.Equal(t, 2, granted)
	assert.Equal(t, callers-2, denied)

	counts, err := f.loans.CountActiveByItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["X"])
}

// checkConcurrentGrantsOneLoanPerUser has one user race for four items.
func checkConcurrentGrantsOneLoanPerUser(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []string{"A", "B", "C", "D"} {
		f.addItem(t, b, 1, 2)
	}

	var wg sync.WaitGroup
	for _, b := range []string{"A", "B", "C", "D"} {
		wg.Add(1)
		go func(barcode string) {
			defer wg.Done()
			_, _ = f.engine.Grant(ctx, "alice", barcode)
		}(b)
	}
	wg.Wait()

	counts, err := f.loans.CountActiveByItem(ctx)
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 1, total, "a user holds at most one active loan")
}
