package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// unmatchedRoute counts requests that matched no route, so unknown paths
// cannot grow the table.
const unmatchedRoute = "unmatched"

// UsageSnapshot is the request count per route over the window.
type UsageSnapshot struct {
	Since         time.Time        `json:"since"`
	WindowMinutes int              `json:"window_minutes"`
	Total         int64            `json:"total"`
	Routes        map[string]int64 `json:"routes"`
}

// UsageCounter counts requests per route pattern in one-minute buckets over a
// sliding window. Memory is bounded by the number of buckets times the number
// of routes.
type UsageCounter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets []usageBucket
	now     func() time.Time
}

type usageBucket struct {
	minute time.Time
	counts map[string]int64
}

// NewUsageCounter keeps counts for the last window, rounded up to whole
// minutes. A non-positive window keeps one hour.
func NewUsageCounter(window time.Duration) *UsageCounter {
	if window <= 0 {
		window = time.Hour
	}
	n := int((window + time.Minute - 1) / time.Minute)
	return &UsageCounter{
		window:  time.Duration(n) * time.Minute,
		buckets: make([]usageBucket, n),
		now:     time.Now,
	}
}

// Record counts one request for route.
func (u *UsageCounter) Record(route string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	minute := u.now().UTC().Truncate(time.Minute)
	b := &u.buckets[int(minute.Unix()/60)%len(u.buckets)]
	if !b.minute.Equal(minute) {
		b.minute = minute
		b.counts = make(map[string]int64)
	}
	b.counts[route]++
}

// Snapshot sums the buckets still inside the window.
func (u *UsageCounter) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	current := u.now().UTC().Truncate(time.Minute)
	since := current.Add(-u.window + time.Minute)
	snap := UsageSnapshot{
		Since:         since,
		WindowMinutes: len(u.buckets),
		Routes:        make(map[string]int64),
	}
	for _, b := range u.buckets {
		if b.counts == nil || b.minute.Before(since) || b.minute.After(current) {
			continue
		}
		for route, n := range b.counts {
			snap.Routes[route] += n
			snap.Total += n
		}
	}
	return snap
}

// Middleware records each request under its method and chi route pattern.
// The pattern is only known once routing is done, so it is read after the
// handler returns.
func (u *UsageCounter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = r.Method + " " + pattern
			}
		}
		u.Record(route)
	})
}
