package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/checklist/internal/identity"
)

// RateLimiterConfig holds the per-caller rate limit settings.
type RateLimiterConfig struct {
	RPM             int           // allowed requests per minute per caller
	Burst           int           // burst size
	CleanupInterval time.Duration // how often idle entries are evicted
}

// DefaultRateLimiterConfig returns the default settings: 120 req/min with a
// burst of 30, idle entries evicted every 5 minutes.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPM:             120,
		Burst:           30,
		CleanupInterval: 5 * time.Minute,
	}
}

// callerLimiter pairs a token bucket with its last access time so idle
// entries can be evicted.
type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces a token-bucket limit per caller. Authenticated
// requests are keyed by the identity's subject so one user can't starve
// another behind the same NAT; anonymous requests fall back to the remote
// IP.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*callerLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its background cleanup
// loop. Call Stop when the server shuts down.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*callerLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop terminates the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware returns the HTTP middleware enforcing the limit.
// Over-limit requests get 429 with a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(callerKey(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, `{"error":"rate_limited","message":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey picks the bucket key: subject when authenticated, remote IP
// otherwise. Runs after the identity middleware, so the context is already
// populated for authenticated requests.
func callerKey(r *http.Request) string {
	if ident, ok := identity.FromContext(r.Context()); ok {
		return "sub:" + ident.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &callerLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.config.RPM)/60.0), rl.config.Burst),
		}
		rl.limiters[key] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

// cleanupLoop periodically drops buckets idle for more than two cleanup
// intervals, so the map doesn't grow unbounded with one-off callers.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			cutoff := now.Add(-2 * rl.config.CleanupInterval)
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
