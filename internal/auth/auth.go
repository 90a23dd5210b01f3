// Package auth mints and verifies the bearer tokens accepted by the dev
// generation API. Tokens are HS256 JWTs whose subject is the user id.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim of every token.
const Issuer = "postgen"

var (
	ErrNoSecret     = errors.New("auth: signing secret is required")
	ErrMissingToken = errors.New("auth: token is required")
	ErrInvalidToken = errors.New("auth: token is invalid")
	ErrTokenExpired = errors.New("auth: token is expired")
)

// Claims are the verified contents of a token.
type Claims struct {
	UserID    string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer issues and checks tokens with a shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer. ttl <= 0 means 24h. now defaults to time.Now.
func NewSigner(secret string, ttl time.Duration, now func() time.Time) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Mint returns a signed token for userID.
func (s *Signer) Mint(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature, issuer, subject and expiry of token.
func (s *Signer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if parsed.Issuer != Issuer || strings.TrimSpace(parsed.Subject) == "" || parsed.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(s.now().UTC()) {
		return Claims{}, ErrTokenExpired
	}

	c := Claims{UserID: parsed.Subject, ID: parsed.ID, ExpiresAt: exp}
	if parsed.IssuedAt != nil {
		c.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return c, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
