// Package ratelimit tracks the generation quota reported by the API and
// refreshes it once the quota window resets.
//
// The server is the only source of truth: the tracker replaces its status
// with whatever the server last reported and never counts down locally.
// While the quota is exhausted a single resync timer is kept armed for
// min(resetAt-now+1s, MaxDelay), never in the past. A resync that fails, or
// that finds the quota still exhausted after resetAt has passed, re-arms
// with a doubling backoff starting at one second and capped at MaxDelay.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/clock"
	"github.com/tbourn/go-postgen/internal/domain"
)

const (
	// DefaultMaxDelay caps how long a resync may be deferred.
	DefaultMaxDelay = time.Minute
	// resetMargin is added to resetAt so the refresh lands after the reset.
	resetMargin = time.Second
	// resyncTimeout bounds a timer-driven status query.
	resyncTimeout = 10 * time.Second
)

// StatusSource performs the status query (GET /generate/status).
type StatusSource interface {
	RateLimitStatus(ctx context.Context) (domain.RateLimitStatus, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source for resync scheduling.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clk = c
		}
	}
}

// WithMaxDelay overrides DefaultMaxDelay.
func WithMaxDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.maxDelay = d
		}
	}
}

// Tracker holds the last known RateLimitStatus. It is safe for concurrent
// use and is meant to be shared by every component that generates.
type Tracker struct {
	src      StatusSource
	clk      clock.Clock
	maxDelay time.Duration
	resync   *scheduler
	log      zerolog.Logger

	mu     sync.Mutex
	status *domain.RateLimitStatus
	closed bool
	misses int // consecutive resyncs that did not observe a reset
}

// New returns a Tracker with no known status.
func New(src StatusSource, opts ...Option) *Tracker {
	t := &Tracker{
		src:      src,
		clk:      clock.Real(),
		maxDelay: DefaultMaxDelay,
		log:      log.With().Str("component", "ratelimit").Logger(),
	}
	for _, o := range opts {
		o(t)
	}
	t.resync = newScheduler(t.clk)
	return t
}

// Check queries the server and replaces the held status. Failures are
// logged and leave the previous status untouched.
func (t *Tracker) Check(ctx context.Context) {
	_ = t.check(ctx)
}

func (t *Tracker) check(ctx context.Context) error {
	st, err := t.src.RateLimitStatus(ctx)
	if err != nil {
		checks.WithLabelValues("error").Inc()
		t.log.Warn().Err(err).Msg("rate limit status refresh failed")
		return err
	}
	checks.WithLabelValues("ok").Inc()
	t.Update(st)
	return nil
}

// Update replaces the held status with one reported by the server, for
// example alongside a generation response, and arms or cancels the resync
// timer accordingly.
func (t *Tracker) Update(st domain.RateLimitStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	wasExhausted := t.status != nil && t.status.Exhausted()
	s := st
	t.status = &s
	remaining.Set(float64(st.Remaining))

	if !st.Exhausted() {
		t.misses = 0
		if t.resync.cancelIfArmed() {
			t.log.Debug().Int("remaining", st.Remaining).Msg("rate limit cleared, resync cancelled")
		}
		return
	}
	d := t.resyncDelay(st)
	switch {
	case d > 0:
		t.misses = 0
	case wasExhausted:
		// resetAt already passed and the window has still not rolled
		t.misses++
		d = t.backoff()
	}
	t.resync.arm(d, t.onResync)
	t.log.Info().
		Int("total", st.Total).
		Time("reset_at", st.ResetAt).
		Dur("resync_in", d).
		Msg("rate limit exhausted, resync armed")
}

// Status returns the held status, or false before the first report.
func (t *Tracker) Status() (domain.RateLimitStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == nil {
		return domain.RateLimitStatus{}, false
	}
	return *t.status, true
}

// IsRateLimited reports whether the held status has no remaining quota.
// It is false while no status is known.
func (t *Tracker) IsRateLimited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status != nil && t.status.Exhausted()
}

// ResetIn returns the time until the held status resets, clamped at zero.
func (t *Tracker) ResetIn() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == nil {
		return 0
	}
	if d := t.status.ResetAt.Sub(t.clk.Now()); d > 0 {
		return d
	}
	return 0
}

// NextResync returns the deadline of the armed resync, if any.
func (t *Tracker) NextResync() (time.Time, bool) {
	return t.resync.armed()
}

// Close cancels the resync timer. Later updates are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.resync.cancelIfArmed()
}

// resyncDelay is min(resetAt-now+margin, maxDelay), never negative.
func (t *Tracker) resyncDelay(st domain.RateLimitStatus) time.Duration {
	d := st.ResetAt.Sub(t.clk.Now()) + resetMargin
	if d > t.maxDelay {
		d = t.maxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// backoff is resetMargin doubled per consecutive miss, capped at maxDelay.
// Callers hold t.mu and have already counted the current miss.
func (t *Tracker) backoff() time.Duration {
	n := t.misses - 1
	if n < 0 {
		n = 0
	}
	if n > 16 {
		n = 16
	}
	if d := resetMargin << n; d < t.maxDelay {
		return d
	}
	return t.maxDelay
}

func (t *Tracker) onResync() {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	resyncs.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()
	if err := t.check(ctx); err == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.status == nil || !t.status.Exhausted() {
		return
	}
	if _, armed := t.resync.armed(); armed {
		return
	}
	t.misses++
	d := t.backoff()
	t.resync.arm(d, t.onResync)
	t.log.Info().Int("misses", t.misses).Dur("resync_in", d).Msg("resync failed, retrying")
}
