package api

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded, please try again later")

// RateLimitConfig holds configuration for a rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int           // sustained rate (default: 60)
	BurstSize         int           // extra requests allowed at once on top of the rate
	CleanupInterval   time.Duration // how often idle clients are forgotten (default: 5m)
}

// DefaultRateLimitConfig returns the default API rate limit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		BurstSize:         20,
		CleanupInterval:   5 * time.Minute,
	}
}

// RateLimiter keeps one token bucket per client. A fresh bucket holds
// RequestsPerMinute+BurstSize tokens and refills at RequestsPerMinute.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rate    rate.Limit
	burst   int
	idle    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type clientBucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	cfg.BurstSize = max(cfg.BurstSize, 0)
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		rate:    rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:   cfg.RequestsPerMinute + cfg.BurstSize,
		idle:    2 * time.Minute,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

func (rl *RateLimiter) bucket(clientID string, now time.Time) *clientBucket {
	b, ok := rl.clients[clientID]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[clientID] = b
	}
	b.lastAccess = now
	return b
}

// Allow takes a token for clientID and reports whether one was available,
// along with the whole tokens left.
func (rl *RateLimiter) Allow(clientID string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b := rl.bucket(clientID, now)
	allowed := b.limiter.AllowN(now, 1)
	return allowed, remainingTokens(b.limiter, now)
}

// GetRemaining returns the whole tokens a client has left.
func (rl *RateLimiter) GetRemaining(clientID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[clientID]
	if !ok {
		return rl.burst
	}
	return remainingTokens(b.limiter, time.Now())
}

func remainingTokens(l *rate.Limiter, now time.Time) int {
	return max(int(math.Floor(l.TokensAt(now))), 0)
}

// Limit returns the bucket size: the most requests a client can make at once.
func (rl *RateLimiter) Limit() int {
	return rl.burst
}

// RetryAfter is how long an exhausted client waits for its next token.
func (rl *RateLimiter) RetryAfter() time.Duration {
	return time.Duration(float64(time.Second) / float64(rl.rate))
}

// Reset forgets a client, giving it a full bucket.
func (rl *RateLimiter) Reset(clientID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, clientID)
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.forgetIdle(now)
		}
	}
}

// forgetIdle drops clients not seen for a while. A dropped client comes
// back with a full bucket, which it would have refilled to by then anyway.
func (rl *RateLimiter) forgetIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.idle)
	for id, b := range rl.clients {
		if b.lastAccess.Before(cutoff) {
			delete(rl.clients, id)
		}
	}
}

// getClientIP extracts the client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers first (for reverse proxies),
// then falls back to RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// PathRateLimiter applies different limits to different path prefixes.
// The longest matching prefix wins.
type PathRateLimiter struct {
	mu       sync.RWMutex
	fallback *RateLimiter
	byPrefix map[string]*RateLimiter
}

// NewPathRateLimiter creates a path-aware limiter with a fallback limit.
func NewPathRateLimiter(defaultCfg RateLimitConfig) *PathRateLimiter {
	return &PathRateLimiter{
		fallback: NewRateLimiter(defaultCfg),
		byPrefix: make(map[string]*RateLimiter),
	}
}

// SetPathLimit sets the limit for a path prefix, replacing any earlier one.
func (prl *PathRateLimiter) SetPathLimit(pathPrefix string, cfg RateLimitConfig) {
	prl.mu.Lock()
	defer prl.mu.Unlock()
	if old, ok := prl.byPrefix[pathPrefix]; ok {
		old.Stop()
	}
	prl.byPrefix[pathPrefix] = NewRateLimiter(cfg)
}

// LimiterForPath returns the rate limiter that governs path.
func (prl *PathRateLimiter) LimiterForPath(path string) *RateLimiter {
	prl.mu.RLock()
	defer prl.mu.RUnlock()

	best, bestLen := prl.fallback, -1
	for prefix, limiter := range prl.byPrefix {
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			best, bestLen = limiter, len(prefix)
		}
	}
	return best
}

// Stop stops every limiter.
func (prl *PathRateLimiter) Stop() {
	prl.mu.Lock()
	defer prl.mu.Unlock()

	prl.fallback.Stop()
	for _, limiter := range prl.byPrefix {
		limiter.Stop()
	}
}

// PathRateLimitMiddleware rejects requests over their path's limit with 429.
func PathRateLimitMiddleware(prl *PathRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := prl.LimiterForPath(r.URL.Path)
			allowed, remaining := limiter.Allow(getClientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				retry := int(math.Ceil(limiter.RetryAfter().Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				RespondError(w, http.StatusTooManyRequests, errRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
