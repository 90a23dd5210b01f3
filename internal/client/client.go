// Package client is a typed HTTP client for the generation API.
//
// Every request carries a bearer credential from a TokenSource. Failures
// come back as *apierror.TransportError when no response was received and
// as *apierror.APIError for non-2xx responses, so callers can classify
// them with the apierror package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/utils"
)

const (
	defaultTimeout = 60 * time.Second
	defaultUA      = "postgen-client"

	// HeaderIdempotencyKey carries the per-call idempotency key on mutations.
	HeaderIdempotencyKey = "Idempotency-Key"

	maxErrorBody = 64 << 10
)

// ErrNoBaseURL is returned by New when Options.BaseURL is empty.
var ErrNoBaseURL = errors.New("client: base URL is required")

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself. An empty token
// sends no Authorization header.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Options configures a Client.
type Options struct {
	BaseURL    string // e.g. http://localhost:8080/api/v1
	UserAgent  string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client // overrides Timeout when set
}

// Client talks to the generation API. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	base    string
	ua      string
	tokens  TokenSource
	log     zerolog.Logger
	now     func() time.Time
	tracer  trace.Tracer
	propgtr propagation.TextMapPropagator
}

// New builds a Client.
func New(o Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Tokens == nil {
		o.Tokens = StaticToken("")
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		http:    hc,
		base:    base,
		ua:      o.UserAgent,
		tokens:  o.Tokens,
		log:     log.With().Str("component", "client").Logger(),
		now:     time.Now,
		tracer:  otel.Tracer("client"),
		propgtr: otel.GetTextMapPropagator(),
	}, nil
}

// request describes one API call.
type request struct {
	endpoint string // low-cardinality label, e.g. "POST /posts/:id/iterate"
	method   string
	path     string
	idemKey  string
	body     any
}

// do sends r and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, span := c.tracer.Start(ctx, r.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("http.route", r.path),
		))
	defer span.End()

	err := c.send(ctx, r, out, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, r request, out any, span trace.Span) error {
	var payload io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.endpoint, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.base+r.path, payload)
	if err != nil {
		return fmt.Errorf("build %s: %w", r.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.idemKey != "" {
		req.Header.Set(HeaderIdempotencyKey, r.idemKey)
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("credential for %s: %w", r.endpoint, err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	c.propgtr.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		observe(r.endpoint, "transport", lat)
		c.log.Debug().Err(err).Str("endpoint", r.endpoint).Dur("latency", lat).Msg("request failed")
		return &apierror.TransportError{Op: r.endpoint, Err: err}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	observe(r.endpoint, status, lat)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug().
		Str("endpoint", r.endpoint).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode %s: empty body", r.endpoint)
		}
		return fmt.Errorf("decode %s: %w", r.endpoint, err)
	}
	return nil
}

// decodeError turns a non-2xx response into *apierror.APIError. Bodies that
// are not the expected {message, statusCode, errors?} shape fall back to
// the status text.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := utils.SafeJSONParse(string(body), apierror.APIError{})
	if strings.TrimSpace(e.Message) == "" {
		e.Message = http.StatusText(resp.StatusCode)
		if e.Message == "" {
			e.Message = "request failed"
		}
	}
	if e.StatusCode == 0 {
		e.StatusCode = resp.StatusCode
	}
	return &e
}
