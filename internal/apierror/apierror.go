// Package apierror classifies failures returned by the generation API into
// a small tagged union and derives display text and retry decisions from it.
//
// Classification happens once, through Classify; callers switch on Kind
// instead of inspecting raw error shapes.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind tags a classified failure.
type Kind int

const (
	// KindUnknown covers anything that is neither a structured API error nor
	// a transport failure.
	KindUnknown Kind = iota
	// KindStructured is a non-2xx response that carried a message and status.
	KindStructured
	// KindTransport is a network-level failure with no status code.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Fixed display strings.
const (
	FallbackMessage     = "An unexpected error occurred"
	NetworkErrorMessage = "Network error. Please check your connection and try again."
)

// FieldError is one entry of the optional per-field errors list.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// APIError is the decoded body of a non-2xx response:
// {message, statusCode, errors?}.
type APIError struct {
	Message    string       `json:"message"`
	StatusCode int          `json:"statusCode"`
	Errors     []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// TransportError wraps a failure to obtain any response at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return "failed to fetch: " + e.Err.Error()
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Classified is the normalized view of an arbitrary failure value.
type Classified struct {
	Kind       Kind
	Message    string
	StatusCode int // zero unless Kind == KindStructured
	Errors     []FieldError
}

// Classify normalizes v, which may be an error, a string, or anything else.
// A nil value classifies as KindUnknown with the fallback message.
func Classify(v any) Classified {
	switch e := v.(type) {
	case nil:
		return Classified{Kind: KindUnknown, Message: FallbackMessage}
	case error:
		var api *APIError
		if errors.As(e, &api) {
			return Classified{Kind: KindStructured, Message: api.Message, StatusCode: api.StatusCode, Errors: api.Errors}
		}
		var tr *TransportError
		if errors.As(e, &tr) || looksLikeTransport(e.Error()) {
			return Classified{Kind: KindTransport, Message: e.Error()}
		}
		msg := e.Error()
		if msg == "" {
			msg = FallbackMessage
		}
		return Classified{Kind: KindUnknown, Message: msg}
	case string:
		if looksLikeTransport(e) {
			return Classified{Kind: KindTransport, Message: e}
		}
		return Classified{Kind: KindUnknown, Message: e}
	default:
		return Classified{Kind: KindUnknown, Message: FallbackMessage}
	}
}

// IsStructured reports whether err carries an API message and status code.
func IsStructured(err error) bool {
	return Classify(err).Kind == KindStructured
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	return Classify(err).Kind == KindTransport
}

// StatusCode returns the API status code carried by err, or 0.
func StatusCode(err error) int {
	return Classify(err).StatusCode
}

// Message returns the text to show for v. Transport failures always map to
// NetworkErrorMessage.
func Message(v any) string {
	c := Classify(v)
	if c.Kind == KindTransport {
		return NetworkErrorMessage
	}
	if c.Message == "" {
		return FallbackMessage
	}
	return c.Message
}

// IsRateLimit reports whether err signals quota exhaustion, either through
// a 429 status or through its message text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	c := Classify(err)
	if c.StatusCode == http.StatusTooManyRequests {
		return true
	}
	m := strings.ToLower(c.Message)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "too many requests")
}

var transportSignatures = []string{
	"failed to fetch",
	"networkerror",
	"network error",
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
}

func looksLikeTransport(msg string) bool {
	m := strings.ToLower(msg)
	for _, sig := range transportSignatures {
		if strings.Contains(m, sig) {
			return true
		}
	}
	return false
}
