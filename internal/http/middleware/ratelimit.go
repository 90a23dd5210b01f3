// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge rate limiter: in-memory token buckets from
// golang.org/x/time/rate, one per caller identity, with opportunistic
// eviction of idle buckets. It protects the process from request floods and
// is independent of the generation quota, which the services enforce and
// report through /generate/status.
//
// Idempotent replays (see IdempotencyValidator) bypass the limiter.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user ("user:<id>") and
// falls back to the client IP ("ip:<addr>").
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get(UserIDKey); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (coerced to at least 1) for each key produced by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it on demand. Every 5000
// lookups idle buckets are evicted, before the requested one is touched so
// a stale bucket can be dropped even when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as
// a replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 with the error
// envelope and a Retry-After header rounded up to whole seconds.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.getVisitor(rl.keyFn(c))
		now := rl.now()
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		retry := 1
		if r := lim.ReserveN(now, 1); r.OK() {
			if d := r.DelayFrom(now); d > 0 {
				retry = int(math.Ceil(d.Seconds()))
			}
			r.CancelAt(now)
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "too many requests, slow down")
	}
}
