// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header of mutating requests. A
// valid key is stashed in the context together with the request's scope;
// when the lookup reports a stored response for (user, scope, key) the
// request is marked as a replay so the rate limiter lets it through and the
// handler serves the stored response instead of generating again.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's key for one logical mutation.
	// Retries of the same call reuse it.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed is set to "true" on replayed responses.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a stored response exists
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a stored response exists for this request.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyScope names the operation and target a key applies to:
// the method and the request path, e.g. "POST /api/v1/posts/<id>/iterate".
// A key reused against a different endpoint or post never replays.
func IdempotencyScope(c *gin.Context) string {
	return c.Request.Method + " " + c.Request.URL.Path
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a still-valid response is stored for
// (userID, scope, key). Lookup errors never block the request.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string) (exists bool, err error)

// IdempotencyValidator validates and stashes the Idempotency-Key header.
// Requests without the header pass through untouched; a malformed key is
// rejected with 400.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, err := lookup(c.Request.Context(), UserID(c), IdempotencyScope(c), key)
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
