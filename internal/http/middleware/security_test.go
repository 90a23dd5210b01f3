package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/cached", func(c *gin.Context) {
		c.Header("Cache-Control", "private, max-age=0")
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	if h.Get("Permissions-Policy") == "" || h.Get("Cache-Control") != "no-store" {
		t.Fatalf("optional headers missing: %#v", h)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}
	exposed := h.Get("Access-Control-Expose-Headers")
	for _, n := range exposedHeaders {
		if !strings.Contains(exposed, n) {
			t.Fatalf("%s not exposed: %q", n, exposed)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/cached", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Cache-Control") != "private, max-age=0" || w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("handler cache policy or proxied HSTS lost: %#v", w.Header())
	}
}

func TestExposeHeaders_NoDuplicates(t *testing.T) {
	h := http.Header{}
	h.Set("Access-Control-Expose-Headers", "etag")
	exposeHeaders(h, "ETag", "X-Request-ID")
	if got := h.Get("Access-Control-Expose-Headers"); got != "etag, X-Request-ID" {
		t.Fatalf("got %q", got)
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"much too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared oversize body: %d", w.Code)
	}
	if e := decodeEnvelope(t, w); e.Code != "payload_too_large" {
		t.Fatalf("code = %q", e.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{}`)))
	if w.Code != http.StatusNoContent {
		t.Fatalf("small body: %d", w.Code)
	}
}
