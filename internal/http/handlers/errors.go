// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status
// semantics; domain codes name failures the status alone cannot convey.
// Clients branch on the code, never on the message.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeSelectFailed     = "select_failed"
)

// validationFields maps request validation errors to the offending field.
var validationFields = map[error]string{
	domain.ErrProfileRequired: "profileId",
	domain.ErrRawIdeaRequired: "rawIdea",
	domain.ErrIterationInput:  "feedback",
	domain.ErrIterationType:   "iterationType",
}

var notFoundErrors = []error{
	services.ErrPostNotFound,
	services.ErrVersionNotFound,
	services.ErrNoSelectedVersion,
	services.ErrProfileNotFound,
	services.ErrPlatformNotFound,
	services.ErrProjectNotFound,
}

// failFor translates a service error into the error envelope. fallback is
// the code used for unexpected errors.
func (h *Handlers) failFor(c *gin.Context, err error, fallback string) {
	for sentinel, field := range validationFields {
		if errors.Is(err, sentinel) {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "Validation failed",
				apierror.FieldError{Field: field, Message: sentinel.Error()})
			return
		}
	}
	for _, nf := range notFoundErrors {
		if errors.Is(err, nf) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, nf.Error())
			return
		}
	}
	switch {
	case errors.Is(err, services.ErrQuotaExceeded):
		st := h.gen.Status(userID(c))
		if wait := time.Until(st.ResetAt); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited,
			fmt.Sprintf("Rate limit exceeded. Try again after %s.", st.ResetAt.Format(time.RFC3339)))
	case errors.Is(err, services.ErrGenerationFailed):
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, "Text generation failed, please retry")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
