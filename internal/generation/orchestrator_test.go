package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/retry"
)

type call struct {
	req domain.GenerateRequest
	n   int
	key string
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	resp    domain.GenerateResponse
	errs    []error // consumed one per call before resp is returned
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeAPI) next(req domain.GenerateRequest, n int, key string) (domain.GenerateResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{req, n, key})
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	block, entered := f.block, f.entered
	resp := f.resp
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	return resp, nil
}

func (f *fakeAPI) Generate(_ context.Context, req domain.GenerateRequest, key string) (domain.GenerateResponse, error) {
	return f.next(req, 0, key)
}

func (f *fakeAPI) GenerateVariants(_ context.Context, req domain.GenerateRequest, n int, key string) (domain.GenerateResponse, error) {
	return f.next(req, n, key)
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimits struct {
	mu      sync.Mutex
	limited bool
	updates []domain.RateLimitStatus
	checks  int
}

func (l *fakeLimits) IsRateLimited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limited
}

func (l *fakeLimits) Update(st domain.RateLimitStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, st)
	l.limited = st.Exhausted()
}

func (l *fakeLimits) Check(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
}

var (
	validReq = domain.GenerateRequest{ProfileID: "pr1", RawIdea: "launch week"}
	quota    = &domain.RateLimitStatus{Remaining: 4, Total: 5, ResetAt: time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)}
)

func singleResponse() domain.GenerateResponse {
	return domain.GenerateResponse{
		Message: "Post generated",
		Data: domain.GenerateData{
			Post:    &domain.Post{ID: "p1", GeneratedText: "hello", Usage: domain.TokenUsage{TotalTokens: 9}},
			Version: &domain.PostVersion{ID: "v1", PostID: "p1", VersionNumber: 1, GeneratedText: "hello", IsSelected: true, Usage: domain.TokenUsage{TotalTokens: 9}},
			Context: &domain.GenerationContext{Profile: "Founder"},
		},
		RateLimit: quota,
	}
}

func newOrchestrator(api API, limits Limits) *Orchestrator {
	n := 0
	return New(api, limits,
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, Name: "test"}),
		WithKeyFunc(func() string { n++; return "key-" + string(rune('0'+n)) }),
	)
}

func TestGenerate_SuccessStoresResultAndQuota(t *testing.T) {
	api := &fakeAPI{resp: singleResponse()}
	limits := &fakeLimits{}
	o := newOrchestrator(api, limits)

	res, err := o.Generate(context.Background(), validReq)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Post.ID != "p1" || res.Version == nil || res.Version.ID != "v1" || res.Context.Profile != "Founder" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(limits.updates) != 1 || limits.updates[0].Remaining != 4 {
		t.Fatalf("quota should be pushed to the tracker, got %+v", limits.updates)
	}
	if last, ok := o.LastResult(); !ok || last.Post.ID != "p1" {
		t.Fatalf("LastResult not stored")
	}
	if req, ok := o.LastRequest(); !ok || req.RawIdea != "launch week" {
		t.Fatalf("LastRequest not stored")
	}
	if o.IsGenerating() {
		t.Fatalf("busy flag must be released")
	}
}

func TestGenerate_RateLimitedNeverCallsAPI(t *testing.T) {
	api := &fakeAPI{resp: singleResponse()}
	o := newOrchestrator(api, &fakeLimits{limited: true})

	if _, err := o.Generate(context.Background(), validReq); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := o.GenerateVariants(context.Background(), validReq, 3); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited for variants, got %v", err)
	}
	if api.count() != 0 {
		t.Fatalf("API must not be called while rate limited, got %d calls", api.count())
	}
}

func TestGenerate_InvalidRequestRejectedLocally(t *testing.T) {
	api := &fakeAPI{resp: singleResponse()}
	o := newOrchestrator(api, &fakeLimits{})
	if _, err := o.Generate(context.Background(), domain.GenerateRequest{ProfileID: "p"}); !errors.Is(err, domain.ErrRawIdeaRequired) {
		t.Fatalf("expected ErrRawIdeaRequired, got %v", err)
	}
	if api.count() != 0 {
		t.Fatalf("invalid request must not reach the API")
	}
}

func TestGenerate_RetriesTransportWithSameIdempotencyKey(t *testing.T) {
	api := &fakeAPI{
		resp: singleResponse(),
		errs: []error{&apierror.TransportError{Err: errors.New("connection reset")}},
	}
	o := newOrchestrator(api, &fakeLimits{})
	if _, err := o.Generate(context.Background(), validReq); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if api.count() != 2 {
		t.Fatalf("expected one retry, got %d calls", api.count())
	}
	if api.calls[0].key == "" || api.calls[0].key != api.calls[1].key {
		t.Fatalf("retries must reuse the idempotency key: %q vs %q", api.calls[0].key, api.calls[1].key)
	}

	// a new logical call gets a new key
	if _, err := o.Generate(context.Background(), validReq); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if api.calls[2].key == api.calls[0].key {
		t.Fatalf("a new generation must use a fresh key")
	}
}

func TestGenerate_StructuredErrorNotRetriedAndSurfaced(t *testing.T) {
	apiErr := &apierror.APIError{Message: "Profile not found", StatusCode: 404}
	api := &fakeAPI{errs: []error{apiErr}}
	limits := &fakeLimits{}
	o := newOrchestrator(api, limits)

	_, err := o.Generate(context.Background(), validReq)
	if !errors.Is(err, apiErr) {
		t.Fatalf("error should surface unchanged, got %v", err)
	}
	if api.count() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", api.count())
	}
	if limits.checks != 0 {
		t.Fatalf("non rate-limit failures must not refresh the tracker")
	}
	if _, ok := o.LastRequest(); ok {
		t.Fatalf("failed generation must not be retained")
	}
}

func TestGenerate_RateLimitErrorForcesRefresh(t *testing.T) {
	api := &fakeAPI{errs: []error{&apierror.APIError{Message: "Rate limit exceeded", StatusCode: 429}}}
	limits := &fakeLimits{}
	o := newOrchestrator(api, limits)

	_, err := o.Generate(context.Background(), validReq)
	if !apierror.IsRateLimit(err) {
		t.Fatalf("expected the rate limit error, got %v", err)
	}
	if limits.checks != 1 {
		t.Fatalf("expected a forced tracker refresh, got %d", limits.checks)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	o := newOrchestrator(&fakeAPI{resp: domain.GenerateResponse{RateLimit: quota}}, &fakeLimits{})
	if _, err := o.Generate(context.Background(), validReq); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_ConcurrentCallRejected(t *testing.T) {
	api := &fakeAPI{resp: singleResponse(), block: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := newOrchestrator(api, &fakeLimits{})

	done := make(chan error, 1)
	go func() {
		_, err := o.Generate(context.Background(), validReq)
		done <- err
	}()
	<-api.entered
	if !o.IsGenerating() {
		t.Fatalf("first call should hold the busy flag")
	}
	if _, err := o.Generate(context.Background(), validReq); !errors.Is(err, ErrGenerationInProgress) {
		t.Fatalf("expected ErrGenerationInProgress, got %v", err)
	}
	if _, err := o.GenerateVariants(context.Background(), validReq, 2); !errors.Is(err, ErrGenerationInProgress) {
		t.Fatalf("variants must share the in-flight guard, got %v", err)
	}
	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if api.count() != 1 {
		t.Fatalf("only the first call may reach the API, got %d", api.count())
	}
}

func TestRegenerate(t *testing.T) {
	api := &fakeAPI{resp: singleResponse()}
	o := newOrchestrator(api, &fakeLimits{})

	if _, err := o.Regenerate(context.Background()); !errors.Is(err, ErrNoPreviousRequest) {
		t.Fatalf("expected ErrNoPreviousRequest, got %v", err)
	}
	if _, err := o.Generate(context.Background(), validReq); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := o.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if api.count() != 2 || api.calls[1].req.RawIdea != validReq.RawIdea {
		t.Fatalf("regenerate should repeat the last request, calls=%+v", api.calls)
	}
}

func TestClear_KeepsTracker(t *testing.T) {
	limits := &fakeLimits{}
	o := newOrchestrator(&fakeAPI{resp: singleResponse()}, limits)
	_, _ = o.Generate(context.Background(), validReq)
	o.Clear()

	if _, ok := o.LastResult(); ok {
		t.Fatalf("Clear should drop the last result")
	}
	if _, err := o.Regenerate(context.Background()); !errors.Is(err, ErrNoPreviousRequest) {
		t.Fatalf("Clear should drop the retained request")
	}
	if len(limits.updates) != 1 {
		t.Fatalf("Clear must not touch the tracker")
	}
}

func TestGenerateVariants_ClampsCount(t *testing.T) {
	cases := []struct{ in, want int }{{-1, 2}, {1, 2}, {2, 2}, {3, 3}, {4, 4}, {10, 4}}
	for _, tc := range cases {
		api := &fakeAPI{resp: domain.GenerateResponse{Data: domain.GenerateData{Variants: []domain.VariantData{{PostID: "p1", VersionID: "v1"}}}}}
		o := newOrchestrator(api, &fakeLimits{})
		if _, err := o.GenerateVariants(context.Background(), validReq, tc.in); err != nil {
			t.Fatalf("GenerateVariants(%d): %v", tc.in, err)
		}
		if api.calls[0].n != tc.want {
			t.Fatalf("count %d sent as %d; want %d", tc.in, api.calls[0].n, tc.want)
		}
	}
}

func TestGenerateVariants_MultiPayloadAutoSelectsFirst(t *testing.T) {
	variants := []domain.VariantData{
		{PostID: "p1", VersionID: "v1", VersionNumber: 1, GeneratedText: "a", Approach: domain.ApproachDirect},
		{PostID: "p1", VersionID: "v2", VersionNumber: 2, GeneratedText: "b", Approach: domain.ApproachStorytelling},
		{PostID: "p1", VersionID: "v3", VersionNumber: 3, GeneratedText: "c", Approach: domain.ApproachDataDriven},
	}
	limits := &fakeLimits{}
	o := newOrchestrator(&fakeAPI{resp: domain.GenerateResponse{Data: domain.GenerateData{Variants: variants}, RateLimit: quota}}, limits)

	got, err := o.GenerateVariants(context.Background(), validReq, 3)
	if err != nil || len(got) != 3 {
		t.Fatalf("GenerateVariants: %v %v", got, err)
	}
	sel, ok := o.SelectedVariant()
	if !ok || sel.VersionID != "v1" {
		t.Fatalf("first variant should be selected, got %+v", sel)
	}
	if err := o.SelectVariant(2); err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	if sel, _ := o.SelectedVariant(); sel.VersionID != "v3" {
		t.Fatalf("selection not updated: %+v", sel)
	}
	if err := o.SelectVariant(3); !errors.Is(err, ErrVariantIndex) {
		t.Fatalf("expected ErrVariantIndex, got %v", err)
	}
	if len(limits.updates) != 1 {
		t.Fatalf("variants quota should reach the tracker")
	}

	// returned slice is a copy
	got[0].GeneratedText = "mutated"
	if o.Variants()[0].GeneratedText != "a" {
		t.Fatalf("caller mutation leaked into orchestrator state")
	}
}

func TestGenerateVariants_SinglePayloadNormalized(t *testing.T) {
	o := newOrchestrator(&fakeAPI{resp: singleResponse()}, &fakeLimits{})
	got, err := o.GenerateVariants(context.Background(), validReq, 2)
	if err != nil {
		t.Fatalf("GenerateVariants: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("single payload should become one variant, got %d", len(got))
	}
	v := got[0]
	if v.PostID != "p1" || v.VersionID != "v1" || v.VersionNumber != 1 || v.GeneratedText != "hello" ||
		v.Approach != domain.ApproachDirect || v.Format != DefaultFormat || v.Usage.TotalTokens != 9 {
		t.Fatalf("unexpected normalized variant %+v", v)
	}
	if sel, ok := o.SelectedVariant(); !ok || sel.VersionID != "v1" {
		t.Fatalf("normalized variant should be selected")
	}
}

func TestGenerateVariants_EmptyPayload(t *testing.T) {
	o := newOrchestrator(&fakeAPI{resp: domain.GenerateResponse{}}, &fakeLimits{})
	if _, err := o.GenerateVariants(context.Background(), validReq, 2); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if _, ok := o.SelectedVariant(); ok {
		t.Fatalf("no selection expected")
	}
}
