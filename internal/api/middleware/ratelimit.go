package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/todo-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket per key.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate.
	RequestsPerMinute int
	// Burst is the bucket size.
	Burst int
}

// KeyExtractor extracts the rate limiting key from a request. An empty key
// bypasses the limiter.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys by client IP. Proxy headers are expected to have been
// folded into RemoteAddr by chi's RealIP middleware.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// limiterIdle is how long an untouched limiter survives a cleanup sweep.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
	now         func() time.Time
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > limiterIdle {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(rl.limiters, k)
			}
		}
		rl.lastCleanup = now
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimit returns a middleware that answers 429 with Retry-After once a
// key exhausts its bucket.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) func(http.Handler) http.Handler {
	return newRateLimit(cfg, key, time.Now)
}

func newRateLimit(cfg RateLimitConfig, key KeyExtractor, now func() time.Time) func(http.Handler) http.Handler {
	rl := &rateLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:       cfg.Burst,
		lastCleanup: now(),
		now:         now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := rl.now()
			reservation := rl.get(k).ReserveN(now, 1)
			if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
				reservation.CancelAt(now)
				if !reservation.OK() {
					delay = time.Minute
				}
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
					"Too many requests, please try again later", nil,
					shared.WithRetryAfter(delay))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
