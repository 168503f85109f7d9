package loan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
	"github.com/phrazzld/dibs-api/internal/testdb"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.LoanEvent
	err    error
}

func (r *recordingEmitter) EmitEvent(_ context.Context, event *events.LoanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db      *testdb.DB
	engine  *Engine
	clock   *fakeClock
	emitter *recordingEmitter
	items   *sqlstore.ItemStore
	loans   *sqlstore.LoanStore
	history *sqlstore.HistoryStore
	people  *sqlstore.PersonStore
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t testing.TB, configure ...func(*Options)) *fixture {
	t.Helper()
	return newFixtureOn(t, testdb.Open(t), configure...)
}

// newFixtureOn builds the engine over an already migrated database.
func newFixtureOn(t testing.TB, db *testdb.DB, configure ...func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		db:      db,
		clock:   &fakeClock{t: base},
		emitter: &recordingEmitter{},
		items:   sqlstore.NewItemStore(db.DB, db.Dialect, quietLogger()),
		loans:   sqlstore.NewLoanStore(db.DB, db.Dialect, quietLogger()),
		history: sqlstore.NewHistoryStore(db.DB, db.Dialect, quietLogger()),
		people:  sqlstore.NewPersonStore(db.DB, db.Dialect, quietLogger()),
	}

	opts := Options{Policy: domain.DefaultLoanPolicy(), Clock: f.clock.Now}
	for _, c := range configure {
		c(&opts)
	}

	f.engine = NewEngine(db.DB, sqlstore.NewLedgerLocker(db.Dialect),
		f.items, f.loans, f.history, f.people, f.emitter, opts, quietLogger())
	return f
}

// addItem registers a ready item with the given copies and a loan duration in hours.
func (f *fixture) addItem(t testing.TB, barcode string, copies, hours int) *domain.Item {
	t.Helper()
	item, err := domain.NewItem(barcode, copies, hours)
	require.NoError(t, err)
	item.Title = "Title " + barcode
	item.Ready = true
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) historyCount(t testing.TB, barcode string) int {
	t.Helper()
	records, err := f.history.ListByBarcode(context.Background(), barcode)
	require.NoError(t, err)
	return len(records)
}

func (f *fixture) evaluate(t testing.TB, user, barcode string) *domain.Availability {
	t.Helper()
	a, err := f.engine.Evaluate(context.Background(), user, barcode)
	require.NoError(t, err)
	return a
}

func deniedStatus(err error) domain.Status {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Status
	}
	return ""
}
