package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// CleanupInterval is how often limiters of idle clients are dropped.
	CleanupInterval time.Duration
}

var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	allowed  atomic.Uint64
	rejected atomic.Uint64
}

func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	return &IPRateLimiter{config: cfg}
}

func (rl *IPRateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now.UnixNano())
		return e.limiter
	}
	e := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	e.lastSeen.Store(now.UnixNano())
	actual, _ := rl.limiters.LoadOrStore(ip, e)
	return actual.(*ipLimiterEntry).limiter
}

// Run drops stale limiters every CleanupInterval until ctx ends.
func (rl *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

func (rl *IPRateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-2 * rl.config.CleanupInterval).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip, time.Now()).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware answers 429 once a client exceeds its bucket.
func (rl *IPRateLimiter) Middleware(onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(ClientIP(r)) {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

func (rl *IPRateLimiter) Stats() LimiterStats {
	return LimiterStats{Allowed: rl.allowed.Load(), Rejected: rl.rejected.Load()}
}

// ClientIP prefers X-Forwarded-For, then X-Real-IP, then RemoteAddr.
// Forwarded headers are trusted as-is; run behind a proxy that sets them.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
