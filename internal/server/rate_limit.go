package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RateLimiterConfig configures NewRateLimiter. Zero fields take defaults.
type RateLimiterConfig struct {
	// RequestsPerMinute is the sustained rate and the burst size granted to
	// each client IP. Default 60.
	RequestsPerMinute int
	// MaxClients bounds the number of tracked client IPs; the least recently
	// seen client is forgotten first. Default 10000.
	MaxClients int
}

// DefaultRateLimiterConfig returns 60 requests per minute per client.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerMinute: 60,
		MaxClients:        10_000,
	}
}

// bucket holds the tokens a client had at a given instant.
type bucket struct {
	tokens float64
	at     time.Time
}

// RateLimiter is a per-client token bucket. Tokens refill continuously, so a
// client that spent its burst regains one request every 60/RequestsPerMinute
// seconds.
type RateLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, bucket]
	perMin  float64
	now     func() time.Time
}

// NewRateLimiter creates a limiter. It owns no goroutine; the client table
// is bounded by MaxClients instead of being swept.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}

	// Only fails for a non-positive size.
	buckets, _ := lru.New[string, bucket](config.MaxClients)
	return &RateLimiter{
		buckets: buckets,
		perMin:  float64(config.RequestsPerMinute),
		now:     time.Now,
	}
}

// Allow takes one token from clientIP's bucket and reports whether one was
// available.
func (rl *RateLimiter) Allow(clientIP string) bool {
	ok, _ := rl.take(clientIP)
	return ok
}

// take refills the bucket for the time elapsed since it was last seen, then
// spends a token. On refusal it returns how long until a token is due.
func (rl *RateLimiter) take(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(clientIP)
	if !ok {
		b = bucket{tokens: rl.perMin, at: now}
	}
	if elapsed := now.Sub(b.at).Seconds(); elapsed > 0 {
		b.tokens = math.Min(rl.perMin, b.tokens+elapsed*rl.perMin/60)
	}
	b.at = now

	if b.tokens < 1 {
		rl.buckets.Add(clientIP, b)
		wait := time.Duration((1 - b.tokens) * 60 / rl.perMin * float64(time.Second))
		return false, wait
	}
	b.tokens--
	rl.buckets.Add(clientIP, b)
	return true, 0
}

// Clients returns the number of tracked client IPs.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.buckets.Len()
}

// Stop forgets every client. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets.Purge()
}

// RateLimitMiddleware answers 429 with a Retry-After hint once a client has
// no token left.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.take(getClientIP(r))
		if !ok {
			rateLimited.Inc()
			retry := max(1, int(math.Ceil(wait.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too Many Requests","message":"Rate limit exceeded. Please try again later."}`))
			return
		}
		next(w, r)
	}
}

// getClientIP takes the first X-Forwarded-For hop, else X-Real-IP, else
// the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.Trim(r.RemoteAddr, "[]")
}
