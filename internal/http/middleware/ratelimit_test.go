package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_PerKeyBucketsAndRetryAfter(t *testing.T) {
	rl := NewRateLimiter(0.5, 2, KeyByUserOrIP())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader(HeaderUserID); u != "" {
			c.Set(UserIDKey, u)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(HeaderUserID, user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := hit("u1"); w.Code != http.StatusNoContent {
			t.Fatalf("burst request %d: %d", i, w.Code)
		}
	}
	w := hit("u1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over burst: %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q; want 2 (one token per 2s)", got)
	}
	if e := decodeEnvelope(t, w); e.Code != "too_many_requests" {
		t.Fatalf("code = %q", e.Code)
	}

	if w := hit("u2"); w.Code != http.StatusNoContent {
		t.Fatalf("other users have their own bucket: %d", w.Code)
	}

	now = now.Add(2 * time.Second)
	if w := hit("u1"); w.Code != http.StatusNoContent {
		t.Fatalf("bucket should refill: %d", w.Code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, func(*gin.Context) string { return "k" })
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for _, replay := range []bool{false, false, true} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if replay {
			req.Header.Set("X-Replay", "1")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != 204 || codes[1] != 429 || codes[2] != 204 {
		t.Fatalf("codes = %v; want [204 429 204]", codes)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.getVisitor("old")
	now = now.Add(rl.ttl)
	rl.cleanupN = 4999
	rl.getVisitor("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("idle visitor should be evicted")
	}
	if _, ok := rl.visitors["new"]; !ok || rl.cleanupN != 0 {
		t.Fatalf("new visitor missing or counter not reset")
	}
}
