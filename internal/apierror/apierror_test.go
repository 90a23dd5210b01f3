package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	api := &APIError{Message: "bad input", StatusCode: 400, Errors: []FieldError{{Field: "rawIdea", Message: "required"}}}
	cases := []struct {
		name string
		in   any
		kind Kind
		msg  string
		code int
	}{
		{"nil", nil, KindUnknown, FallbackMessage, 0},
		{"structured", api, KindStructured, "bad input", 400},
		{"wrapped structured", fmt.Errorf("generate: %w", api), KindStructured, "bad input", 400},
		{"transport", &TransportError{Op: "POST /generate", Err: context.DeadlineExceeded}, KindTransport, "failed to fetch POST /generate: context deadline exceeded", 0},
		{"transport by message", errors.New("Failed to fetch"), KindTransport, "Failed to fetch", 0},
		{"generic error", errors.New("boom"), KindUnknown, "boom", 0},
		{"empty error", errors.New(""), KindUnknown, FallbackMessage, 0},
		{"string", "plain text", KindUnknown, "plain text", 0},
		{"other value", 42, KindUnknown, FallbackMessage, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.in)
			if c.Kind != tc.kind || c.Message != tc.msg || c.StatusCode != tc.code {
				t.Fatalf("Classify(%v) = %+v", tc.in, c)
			}
		})
	}
	if got := Classify(api).Errors; len(got) != 1 || got[0].Field != "rawIdea" {
		t.Fatalf("field errors not carried: %+v", got)
	}
}

func TestPredicates(t *testing.T) {
	api := &APIError{Message: "x", StatusCode: 404}
	tr := &TransportError{Err: errors.New("connection refused")}

	if !IsStructured(api) || IsStructured(tr) || IsStructured(errors.New("x")) {
		t.Fatalf("IsStructured mismatch")
	}
	if !IsTransport(tr) || IsTransport(api) {
		t.Fatalf("IsTransport mismatch")
	}
	if StatusCode(api) != 404 || StatusCode(tr) != 0 {
		t.Fatalf("StatusCode mismatch")
	}
	if !errors.Is(tr, tr.Err) {
		t.Fatalf("TransportError must unwrap")
	}
}

func TestMessage(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{&APIError{Message: "Post not found", StatusCode: 404}, "Post not found"},
		{errors.New("boom"), "boom"},
		{"already a string", "already a string"},
		{&TransportError{Err: errors.New("dial tcp: i/o timeout")}, NetworkErrorMessage},
		{errors.New("TypeError: Failed to fetch"), NetworkErrorMessage},
		{struct{}{}, FallbackMessage},
		{nil, FallbackMessage},
	}
	for _, tc := range cases {
		if got := Message(tc.in); got != tc.want {
			t.Fatalf("Message(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&APIError{Message: "slow down", StatusCode: http.StatusTooManyRequests}, true},
		{&APIError{Message: "Rate limit exceeded. Try again later.", StatusCode: 403}, true},
		{errors.New("too many requests"), true},
		{&APIError{Message: "bad input", StatusCode: 400}, false},
		{&TransportError{Err: errors.New("connection reset")}, false},
	}
	for _, tc := range cases {
		if got := IsRateLimit(tc.err); got != tc.want {
			t.Fatalf("IsRateLimit(%v) = %v; want %v", tc.err, got, tc.want)
		}
	}
}

func TestStatusCodeMessage(t *testing.T) {
	known := []int{400, 401, 403, 404, 409, 422, 429, 500, 502, 503, 504}
	seen := map[string]bool{}
	for _, c := range known {
		m := StatusCodeMessage(c)
		if m == "" || m == StatusCodeMessage(418) {
			t.Fatalf("code %d should have a specific message, got %q", c, m)
		}
		seen[m] = true
	}
	if len(seen) < 8 {
		t.Fatalf("expected distinct messages for common codes, got %d", len(seen))
	}
	if StatusCodeMessage(599) != StatusCodeMessage(500) {
		t.Fatalf("unknown 5xx should map to the server error sentence")
	}
	if StatusCodeMessage(0) != StatusCodeMessage(418) {
		t.Fatalf("unknown codes should share the generic fallback")
	}
}

func TestFormat(t *testing.T) {
	d := Format(&APIError{Message: "Rate limit exceeded", StatusCode: 429})
	if d.Title != StatusCodeMessage(429) || d.Description != "Rate limit exceeded" || d.StatusCode != 429 {
		t.Fatalf("structured format = %+v", d)
	}

	d = Format(errors.New("boom"))
	if d.Title != "boom" || d.Description != "" || d.StatusCode != 0 {
		t.Fatalf("unstructured format = %+v", d)
	}

	d = Format(&TransportError{Err: errors.New("connection refused")})
	if d.Title != NetworkErrorMessage || d.Description != "" {
		t.Fatalf("transport format = %+v", d)
	}
}

func TestRetryPredicates(t *testing.T) {
	tr := &TransportError{Err: errors.New("connection reset")}
	s400 := &APIError{Message: "bad", StatusCode: 400}
	s503 := &APIError{Message: "down", StatusCode: 503}
	other := errors.New("boom")

	if !DefaultShouldRetry(tr) || DefaultShouldRetry(s400) || DefaultShouldRetry(s503) || DefaultShouldRetry(other) {
		t.Fatalf("DefaultShouldRetry mismatch")
	}
	if !RetryServerErrors(tr) || RetryServerErrors(s400) || !RetryServerErrors(s503) || RetryServerErrors(other) {
		t.Fatalf("RetryServerErrors mismatch")
	}
}

func TestKindString(t *testing.T) {
	if KindStructured.String() != "structured" || KindTransport.String() != "transport" || KindUnknown.String() != "unknown" {
		t.Fatalf("Kind.String mismatch")
	}
}
