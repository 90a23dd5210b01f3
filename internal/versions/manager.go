// Package versions keeps the client-side copy of one post's version history
// in step with the server.
//
// The history is append-only and exactly one version is selected once a
// selection settles. Selection is optimistic: the target is flagged locally
// before the server confirms, and a failed confirmation is reconciled by
// refetching the authoritative list.
package versions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/retry"
)

// API is the subset of the generation API used for version history.
type API interface {
	ListVersions(ctx context.Context, postID string) (domain.VersionList, error)
	Iterate(ctx context.Context, postID string, req domain.IterateRequest, idemKey string) (domain.IterateResponse, error)
	SelectVersion(ctx context.Context, postID, versionID string) error
}

// Limits receives quota reports and forces refreshes. *ratelimit.Tracker
// satisfies it.
type Limits interface {
	Update(domain.RateLimitStatus)
	Check(ctx context.Context)
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetryPolicy overrides the retry policy used for API calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithRateLimits shares the quota tracker: iterations report the quota they
// spent and rate-limited iterations force a refresh.
func WithRateLimits(r Limits) Option {
	return func(m *Manager) { m.limits = r }
}

// WithKeyFunc overrides idempotency key generation.
func WithKeyFunc(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newKey = fn
		}
	}
}

// Manager owns the loaded history of the post currently being edited.
type Manager struct {
	api    API
	policy retry.Policy
	limits Limits
	newKey func() string
	log    zerolog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	postID    string
	versions  []domain.PostVersion
	total     int
	fetchSeq  uint64 // last fetch started
	applied   uint64 // fetches whose result replaced the list
	selecting map[string]bool
}

// New returns an empty Manager.
func New(api API, opts ...Option) *Manager {
	m := &Manager{
		api:       api,
		policy:    retry.DefaultPolicy("versions"),
		newKey:    uuid.NewString,
		log:       log.With().Str("component", "versions").Logger(),
		tracer:    otel.Tracer("versions"),
		selecting: make(map[string]bool),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// FetchVersions replaces the loaded history with the server's list for
// postID. A response that arrives after a later fetch was started is
// discarded. On error the loaded history is left unchanged.
func (m *Manager) FetchVersions(ctx context.Context, postID string) error {
	ctx, span := m.tracer.Start(ctx, "FetchVersions", trace.WithAttributes(attribute.String("post.id", postID)))
	defer span.End()

	m.mu.Lock()
	m.fetchSeq++
	seq := m.fetchSeq
	m.mu.Unlock()

	list, err := retry.Do(ctx, m.policy, func(ctx context.Context) (domain.VersionList, error) {
		return m.api.ListVersions(ctx, postID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	vs := append([]domain.PostVersion(nil), list.Versions...)
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].VersionNumber < vs[j].VersionNumber })

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.fetchSeq {
		m.log.Debug().Str("post_id", postID).Uint64("seq", seq).Msg("discarding superseded version list")
		return nil
	}
	m.postID = postID
	m.versions = vs
	m.total = list.TotalVersions
	if m.total < len(vs) {
		m.total = len(vs)
	}
	m.applied++
	span.SetAttributes(attribute.Int("versions.count", len(vs)))
	return nil
}

// Iterate asks the server for a new version of postID and then refetches
// the history so numbering and selection match the server exactly.
// Rate-limit failures are wrapped in ErrIterationRateLimited, other
// failures in ErrIterationFailed. If the iteration succeeds but the
// refetch fails, the result is returned together with the refetch error.
func (m *Manager) Iterate(ctx context.Context, postID string, req domain.IterateRequest) (domain.IterateResult, error) {
	ctx, span := m.tracer.Start(ctx, "Iterate", trace.WithAttributes(
		attribute.String("post.id", postID),
		attribute.String("iteration.type", string(req.IterationType)),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		return domain.IterateResult{}, err
	}

	key := m.newKey()
	resp, err := retry.Do(ctx, m.policy, func(ctx context.Context) (domain.IterateResponse, error) {
		return m.api.Iterate(ctx, postID, req, key)
	})
	if err != nil {
		span.RecordError(err)
		if apierror.IsRateLimit(err) {
			if m.limits != nil {
				m.limits.Check(ctx)
			}
			return domain.IterateResult{}, fmt.Errorf("%w: %w", ErrIterationRateLimited, err)
		}
		return domain.IterateResult{}, fmt.Errorf("%w: %w", ErrIterationFailed, err)
	}
	if resp.RateLimit != nil && m.limits != nil {
		m.limits.Update(*resp.RateLimit)
	}
	res := resp.Data
	m.log.Info().Str("post_id", postID).Int("version", res.VersionNumber).Msg("post iterated")

	if err := m.FetchVersions(ctx, postID); err != nil {
		return res, fmt.Errorf("refresh versions after iteration: %w", err)
	}
	return res, nil
}

// SelectVersion makes versionID the selected version of postID.
//
// The flag is flipped locally before the server call. If the server
// rejects the selection the history is refetched to restore server truth,
// falling back to the pre-selection snapshot when the refetch also fails.
// The server's error is returned either way. Selecting the version that is
// already selected does nothing; a second select for the same post fails
// with ErrSelectionInProgress until the first one, including any
// reconcile, has finished.
func (m *Manager) SelectVersion(ctx context.Context, postID, versionID string) error {
	ctx, span := m.tracer.Start(ctx, "SelectVersion", trace.WithAttributes(
		attribute.String("post.id", postID),
		attribute.String("version.id", versionID),
	))
	defer span.End()

	// phase 1: optimistic local flip
	snap, err := m.flip(postID, versionID)
	if err != nil || snap == nil {
		return err
	}

	// the guard stays held until the reconcile below has settled
	defer func() {
		m.mu.Lock()
		delete(m.selecting, postID)
		m.mu.Unlock()
	}()

	// phase 2: confirm or reconcile
	err = m.confirm(ctx, postID, versionID)
	if err == nil {
		return nil
	}
	span.RecordError(err)
	m.log.Warn().Err(err).Str("post_id", postID).Str("version_id", versionID).Msg("selection rejected, resynchronizing")

	if ferr := m.FetchVersions(ctx, postID); ferr != nil {
		m.restore(snap)
		m.log.Warn().Err(ferr).Str("post_id", postID).Msg("resync failed, restored previous selection")
	}
	return err
}

// snapshot is the state recorded by phase 1.
type snapshot struct {
	postID   string
	versions []domain.PostVersion
	applied  uint64
}

// flip validates the selection, records the prior list and marks versionID
// as the only selected version. A nil snapshot with nil error means the
// target was already selected.
func (m *Manager) flip(postID, versionID string) (*snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selecting[postID] {
		return nil, ErrSelectionInProgress
	}
	if m.postID != postID {
		return nil, ErrPostNotLoaded
	}
	idx := -1
	for i := range m.versions {
		if m.versions[i].ID == versionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrVersionNotFound
	}
	if m.versions[idx].IsSelected {
		return nil, nil
	}

	snap := &snapshot{
		postID:   postID,
		versions: append([]domain.PostVersion(nil), m.versions...),
		applied:  m.applied,
	}
	next := append([]domain.PostVersion(nil), m.versions...)
	for i := range next {
		next[i].IsSelected = i == idx
	}
	m.versions = next
	m.selecting[postID] = true
	return snap, nil
}

func (m *Manager) confirm(ctx context.Context, postID, versionID string) error {
	_, err := retry.Do(ctx, m.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.api.SelectVersion(ctx, postID, versionID)
	})
	return err
}

// restore puts back the pre-selection list unless a newer fetch has already
// replaced it.
func (m *Manager) restore(s *snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postID != s.postID || m.applied != s.applied {
		return
	}
	m.versions = s.versions
}

// Versions returns a copy of the loaded history, oldest first.
func (m *Manager) Versions() []domain.PostVersion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PostVersion(nil), m.versions...)
}

// Current returns the selected version, if any.
func (m *Manager) Current() (domain.PostVersion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.IsSelected {
			return v, true
		}
	}
	return domain.PostVersion{}, false
}

// PostID returns the post whose history is loaded.
func (m *Manager) PostID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postID
}

// TotalVersions returns the server-reported history length.
func (m *Manager) TotalVersions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
