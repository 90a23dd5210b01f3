// Package generation drives content generation against the API: single
// posts, N-way variant batches and regeneration from the last inputs.
//
// An Orchestrator admits one generation at a time and refuses to call the
// API while the shared rate-limit tracker reports an exhausted quota.
package generation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/retry"
	"github.com/tbourn/go-postgen/internal/utils"
)

// DefaultFormat labels variants normalized from a single-generation reply.
const DefaultFormat = "text"

// API is the subset of the generation API the orchestrator calls.
type API interface {
	Generate(ctx context.Context, req domain.GenerateRequest, idemKey string) (domain.GenerateResponse, error)
	GenerateVariants(ctx context.Context, req domain.GenerateRequest, n int, idemKey string) (domain.GenerateResponse, error)
}

// Limits is the rate-limit tracker as seen by the orchestrator.
type Limits interface {
	IsRateLimited() bool
	Update(domain.RateLimitStatus)
	Check(ctx context.Context)
}

// Result is the outcome of a single generation.
type Result struct {
	Message string
	Post    domain.Post
	Version *domain.PostVersion
	Context *domain.GenerationContext
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the retry policy used for API calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithKeyFunc overrides idempotency key generation.
func WithKeyFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newKey = fn
		}
	}
}

// Orchestrator is safe for concurrent use; overlapping generations are
// rejected with ErrGenerationInProgress.
type Orchestrator struct {
	api    API
	limits Limits
	policy retry.Policy
	newKey func() string
	log    zerolog.Logger
	tracer trace.Tracer

	busy atomic.Bool

	mu       sync.Mutex
	lastReq  *domain.GenerateRequest
	last     *Result
	variants []domain.VariantData
	selected int
}

// New returns an Orchestrator. limits is usually a *ratelimit.Tracker
// shared with the rest of the process.
func New(api API, limits Limits, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:      api,
		limits:   limits,
		policy:   retry.DefaultPolicy("generate"),
		newKey:   uuid.NewString,
		log:      log.With().Str("component", "generation").Logger(),
		tracer:   otel.Tracer("generation"),
		selected: -1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces one post from req. On success the request is kept for
// Regenerate and any reported quota is pushed into the tracker.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerateRequest) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("profile.id", req.ProfileID),
	))
	defer span.End()

	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.busy.Store(false)

	if err := o.admit(req, "single"); err != nil {
		return nil, err
	}

	key := o.newKey()
	resp, err := retry.Do(ctx, o.policy, func(ctx context.Context) (domain.GenerateResponse, error) {
		return o.api.Generate(ctx, req, key)
	})
	if err != nil {
		o.fail(ctx, span, "single", err)
		return nil, err
	}
	o.absorbQuota(resp)

	if resp.Data.Post == nil && resp.Data.Version == nil {
		outcomes.WithLabelValues("single", "empty").Inc()
		return nil, ErrEmptyResponse
	}

	res := &Result{Message: resp.Message, Version: resp.Data.Version, Context: resp.Data.Context}
	if resp.Data.Post != nil {
		res.Post = *resp.Data.Post
	} else {
		res.Post = domain.Post{ID: resp.Data.Version.PostID, GeneratedText: resp.Data.Version.GeneratedText, Usage: resp.Data.Version.Usage}
	}

	o.mu.Lock()
	r := req
	o.lastReq = &r
	o.last = res
	o.mu.Unlock()

	outcomes.WithLabelValues("single", "ok").Inc()
	span.SetAttributes(attribute.String("post.id", res.Post.ID))
	o.log.Info().Str("post_id", res.Post.ID).Int("tokens", res.Post.Usage.TotalTokens).Msg("post generated")
	return res, nil
}

// Regenerate repeats Generate with the last successful request.
func (o *Orchestrator) Regenerate(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	req := o.lastReq
	o.mu.Unlock()
	if req == nil {
		return nil, ErrNoPreviousRequest
	}
	return o.Generate(ctx, *req)
}

// GenerateVariants produces n variants of the same inputs, with n clamped
// to [domain.MinVariants, domain.MaxVariants]. A single-generation reply is
// normalized into a one-element batch. The first variant becomes the
// working selection.
func (o *Orchestrator) GenerateVariants(ctx context.Context, req domain.GenerateRequest, n int) ([]domain.VariantData, error) {
	n = utils.Clamp(n, domain.MinVariants, domain.MaxVariants)
	ctx, span := o.tracer.Start(ctx, "GenerateVariants", trace.WithAttributes(
		attribute.String("profile.id", req.ProfileID),
		attribute.Int("variants.requested", n),
	))
	defer span.End()

	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.busy.Store(false)

	if err := o.admit(req, "variants"); err != nil {
		return nil, err
	}

	key := o.newKey()
	resp, err := retry.Do(ctx, o.policy, func(ctx context.Context) (domain.GenerateResponse, error) {
		return o.api.GenerateVariants(ctx, req, n, key)
	})
	if err != nil {
		o.fail(ctx, span, "variants", err)
		return nil, err
	}
	o.absorbQuota(resp)

	variants := normalizeVariants(resp.Data)
	if len(variants) == 0 {
		outcomes.WithLabelValues("variants", "empty").Inc()
		return nil, ErrEmptyResponse
	}

	o.mu.Lock()
	r := req
	o.lastReq = &r
	o.variants = variants
	o.selected = 0
	o.mu.Unlock()

	outcomes.WithLabelValues("variants", "ok").Inc()
	span.SetAttributes(attribute.Int("variants.received", len(variants)))
	o.log.Info().Str("post_id", variants[0].PostID).Int("variants", len(variants)).Msg("variants generated")
	return append([]domain.VariantData(nil), variants...), nil
}

// Clear forgets the retained request, result and variants. The rate-limit
// tracker is left alone.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastReq = nil
	o.last = nil
	o.variants = nil
	o.selected = -1
}

// IsGenerating reports whether a generation is in flight.
func (o *Orchestrator) IsGenerating() bool { return o.busy.Load() }

// LastResult returns the last single generation, if any.
func (o *Orchestrator) LastResult() (*Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.last != nil
}

// LastRequest returns the request Regenerate would repeat.
func (o *Orchestrator) LastRequest() (domain.GenerateRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastReq == nil {
		return domain.GenerateRequest{}, false
	}
	return *o.lastReq, true
}

// Variants returns a copy of the current batch.
func (o *Orchestrator) Variants() []domain.VariantData {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.VariantData(nil), o.variants...)
}

// SelectedVariant returns the working selection of the current batch.
func (o *Orchestrator) SelectedVariant() (domain.VariantData, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected < 0 || o.selected >= len(o.variants) {
		return domain.VariantData{}, false
	}
	return o.variants[o.selected], true
}

// SelectVariant changes the working selection. It is local only; the
// chosen variant enters the post's history through versions.Manager.
func (o *Orchestrator) SelectVariant(i int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.variants) {
		return ErrVariantIndex
	}
	o.selected = i
	return nil
}

func (o *Orchestrator) acquire() error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrGenerationInProgress
	}
	return nil
}

// admit runs the pre-flight checks that must pass before the API is called.
func (o *Orchestrator) admit(req domain.GenerateRequest, mode string) error {
	if o.limits != nil && o.limits.IsRateLimited() {
		outcomes.WithLabelValues(mode, "rate_limited").Inc()
		return ErrRateLimited
	}
	if err := req.Validate(); err != nil {
		outcomes.WithLabelValues(mode, "invalid").Inc()
		return err
	}
	return nil
}

func (o *Orchestrator) absorbQuota(resp domain.GenerateResponse) {
	if resp.RateLimit != nil && o.limits != nil {
		o.limits.Update(*resp.RateLimit)
	}
}

// fail records a failed API call. Rate-limit failures force a quota refresh
// so the tracker starts gating further calls.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, mode string, err error) {
	span.RecordError(err)
	c := apierror.Classify(err)
	outcomes.WithLabelValues(mode, c.Kind.String()).Inc()
	o.log.Warn().Err(err).Str("mode", mode).Str("kind", c.Kind.String()).Int("status", c.StatusCode).Msg("generation failed")
	if apierror.IsRateLimit(err) && o.limits != nil {
		o.limits.Check(ctx)
	}
}

// normalizeVariants returns the batch carried by d, turning the single
// post/version shape into a one-element batch.
func normalizeVariants(d domain.GenerateData) []domain.VariantData {
	if len(d.Variants) > 0 {
		return append([]domain.VariantData(nil), d.Variants...)
	}
	if d.Version == nil && d.Post == nil {
		return nil
	}

	v := domain.VariantData{Approach: domain.ApproachDirect, Format: DefaultFormat}
	if d.Post != nil {
		v.PostID = d.Post.ID
		v.GeneratedText = d.Post.GeneratedText
		v.Usage = d.Post.Usage
	}
	if d.Version != nil {
		v.PostID = d.Version.PostID
		v.VersionID = d.Version.ID
		v.VersionNumber = d.Version.VersionNumber
		v.GeneratedText = d.Version.GeneratedText
		v.Usage = d.Version.Usage
		if d.Version.Approach != "" {
			v.Approach = domain.Approach(d.Version.Approach)
		}
	}
	return []domain.VariantData{v}
}
