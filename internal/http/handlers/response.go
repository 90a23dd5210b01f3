// Package handlers provides the HTTP handlers of the generation API.
//
// This file defines the response helpers shared by every endpoint. Errors
// use one envelope so clients can decode any non-2xx body the same way:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "requestId":  "123e4567-e89b-12d3-a456-426614174000",
//	  "code":       "too_many_requests",
//	  "message":    "Rate limit exceeded. Try again after 2026-01-01T13:00:00Z.",
//	  "statusCode": 429
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"requestId,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"post not found"`
	// HTTP status, repeated for clients that only see the body
	StatusCode int `json:"statusCode" example:"404"`
	// Per-field validation errors
	Errors []apierror.FieldError `json:"errors,omitempty"`
}

// fail aborts the request with the error envelope. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string, fields ...apierror.FieldError) {
	resp := ErrorResponse{
		RequestID:  c.Writer.Header().Get("X-Request-ID"),
		Code:       code,
		Message:    msg,
		StatusCode: status,
		Errors:     fields,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
