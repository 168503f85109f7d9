package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/dibs-api/internal/api/shared"
	"golang.org/x/time/rate"
)

const (
	// clients idle this long are forgotten
	limiterIdleTTL = 10 * time.Minute

	// pruning runs once the table grows past this many clients
	limiterPruneSize = 1024
)

// RateLimiter limits requests per client IP with a token bucket each.
type RateLimiter struct {
	mu        sync.Mutex
	perMinute int
	limit     rate.Limit
	burst     int
	clients   map[string]*limitedClient
	now       func() time.Time
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		perMinute: perMinute,
		limit:     limit,
		burst:     burst,
		clients:   make(map[string]*limitedClient),
		now:       time.Now,
	}
}

// Allow reports whether the client may make a request now, spending a token
// when it may.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) > limiterPruneSize {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[key]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// retryAfter is the whole number of seconds until one token is back.
func (l *RateLimiter) retryAfter() int {
	if l.perMinute <= 0 {
		return 1
	}
	return (60 + l.perMinute - 1) / l.perMinute
}

// Limit rejects requests over the client's rate with 429.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !l.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Too many requests",
				fmt.Errorf("rate limit exceeded for client %s", key))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr, which chi's RealIP has already
// replaced with the forwarded address when there is one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
