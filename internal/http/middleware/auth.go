// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. A bearer token is verified with
// the configured verifier and its subject becomes the user id. Without a
// token the request is rejected when auth is required; otherwise the
// X-User-ID header (or "demo-user") is used so local tools keep working.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/auth"
)

const (
	// UserIDKey is the Gin context key holding the resolved user id.
	UserIDKey = "userID"
	// HeaderUserID names the development identity header.
	HeaderUserID = "X-User-ID"
	// DemoUser is the identity of anonymous development requests.
	DemoUser = "demo-user"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Verifier checks bearer tokens. A nil verifier rejects every token.
	Verifier TokenVerifier
	// Required rejects requests without a bearer token.
	Required bool
}

// Authenticate resolves the caller and stores the id under UserIDKey.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			if opts.Required {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
			if uid == "" {
				uid = DemoUser
			}
			c.Set(UserIDKey, uid)
			c.Next()
			return
		}

		tok, ok := auth.BearerToken(header)
		if !ok || opts.Verifier == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
			return
		}
		claims, err := opts.Verifier.Verify(tok)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			abortJSON(c, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the identity stored by Authenticate, or DemoUser.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return DemoUser
}
