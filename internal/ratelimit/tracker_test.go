package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-postgen/internal/clock"
	"github.com/tbourn/go-postgen/internal/domain"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeSource replays queued statuses or errors; once drained it keeps
// returning the last one.
type fakeSource struct {
	mu    sync.Mutex
	queue []result
	last  result
	calls int
}

type result struct {
	st  domain.RateLimitStatus
	err error
}

func (f *fakeSource) push(st domain.RateLimitStatus, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, result{st, err})
}

func (f *fakeSource) RateLimitStatus(context.Context) (domain.RateLimitStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.queue) > 0 {
		f.last = f.queue[0]
		f.queue = f.queue[1:]
	}
	return f.last.st, f.last.err
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTracker(src StatusSource) (*Tracker, *clock.Fake) {
	c := clock.NewFake(epoch)
	return New(src, WithClock(c)), c
}

func TestTracker_InitiallyUnknown(t *testing.T) {
	tr, _ := newTracker(&fakeSource{})
	if _, ok := tr.Status(); ok {
		t.Fatalf("status should be unknown before the first query")
	}
	if tr.IsRateLimited() {
		t.Fatalf("unknown status must not count as rate limited")
	}
	if tr.ResetIn() != 0 {
		t.Fatalf("ResetIn should be zero without status")
	}
}

func TestTracker_CheckReplacesStatus(t *testing.T) {
	src := &fakeSource{}
	tr, _ := newTracker(src)
	src.push(domain.RateLimitStatus{Remaining: 5, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	tr.Check(context.Background())

	st, ok := tr.Status()
	if !ok || st.Remaining != 5 || st.Total != 10 {
		t.Fatalf("unexpected status %+v %v", st, ok)
	}
	if tr.IsRateLimited() {
		t.Fatalf("remaining 5 is not rate limited")
	}
	if got := testutil.ToFloat64(remaining); got != 5 {
		t.Fatalf("remaining gauge = %v; want 5", got)
	}
}

func TestTracker_CheckFailureKeepsPreviousStatus(t *testing.T) {
	src := &fakeSource{}
	tr, _ := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 3, Total: 10, ResetAt: epoch.Add(time.Hour)})

	src.push(domain.RateLimitStatus{}, errors.New("connection refused"))
	tr.Check(context.Background())

	st, ok := tr.Status()
	if !ok || st.Remaining != 3 {
		t.Fatalf("failed refresh must leave status untouched, got %+v", st)
	}
}

func TestTracker_ExhaustionArmsResyncAtResetPlusMargin(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)

	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(20 * time.Second)})
	if !tr.IsRateLimited() {
		t.Fatalf("remaining 0 should be rate limited")
	}
	deadline, ok := tr.NextResync()
	if !ok || !deadline.Equal(epoch.Add(21*time.Second)) {
		t.Fatalf("resync deadline = %v,%v; want reset+1s", deadline, ok)
	}

	src.push(domain.RateLimitStatus{Remaining: 10, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	c.Advance(20 * time.Second)
	if src.count() != 0 {
		t.Fatalf("resync fired early")
	}
	c.Advance(time.Second)
	if src.count() != 1 {
		t.Fatalf("resync should query once, got %d", src.count())
	}
	if tr.IsRateLimited() {
		t.Fatalf("status should be refreshed after resync")
	}
	if _, ok := tr.NextResync(); ok {
		t.Fatalf("no resync should remain armed")
	}
}

func TestTracker_ResyncDelayCappedAtMax(t *testing.T) {
	src := &fakeSource{}
	tr, _ := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Hour)})
	deadline, ok := tr.NextResync()
	if !ok || !deadline.Equal(epoch.Add(DefaultMaxDelay)) {
		t.Fatalf("deadline = %v; want now+%v", deadline, DefaultMaxDelay)
	}

	tr2 := New(src, WithClock(clock.NewFake(epoch)), WithMaxDelay(5*time.Second))
	tr2.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Hour)})
	if d, _ := tr2.NextResync(); !d.Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("custom max delay not applied: %v", d)
	}
}

func TestTracker_PastResetRefreshesImmediately(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(-time.Minute)})

	deadline, ok := tr.NextResync()
	if !ok || !deadline.Equal(epoch) {
		t.Fatalf("past reset should schedule now, got %v,%v", deadline, ok)
	}
	src.push(domain.RateLimitStatus{Remaining: 10, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	c.Advance(0)
	if src.count() != 1 || tr.IsRateLimited() {
		t.Fatalf("expected an immediate refresh, calls=%d", src.count())
	}
}

func TestTracker_RearmSupersedesPreviousTimer(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)

	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(10 * time.Second)})
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(30 * time.Second)})
	if c.Pending() != 1 {
		t.Fatalf("only one resync timer may be outstanding, got %d", c.Pending())
	}

	src.push(domain.RateLimitStatus{Remaining: 10, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	c.Advance(11 * time.Second)
	if src.count() != 0 {
		t.Fatalf("superseded timer must not fire")
	}
	c.Advance(20 * time.Second)
	if src.count() != 1 {
		t.Fatalf("replacement timer should fire once, got %d", src.count())
	}
}

func TestTracker_StillExhaustedAfterResyncRearms(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)

	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Second)})
	// server has not rolled the window yet
	src.push(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(5 * time.Second)}, nil)
	c.Advance(2 * time.Second)
	if src.count() != 1 {
		t.Fatalf("first resync should fire, got %d", src.count())
	}
	if _, ok := tr.NextResync(); !ok {
		t.Fatalf("still exhausted: a new resync should be armed")
	}
	src.push(domain.RateLimitStatus{Remaining: 10, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	c.Advance(5 * time.Second)
	if src.count() != 2 || tr.IsRateLimited() {
		t.Fatalf("second resync should clear the limit, calls=%d", src.count())
	}
}

func TestTracker_FailedResyncRetriesWithBackoff(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Second)})

	src.push(domain.RateLimitStatus{}, errors.New("failed to fetch"))
	src.push(domain.RateLimitStatus{}, errors.New("failed to fetch"))
	c.Advance(2 * time.Second)
	if src.count() != 1 {
		t.Fatalf("first resync should fire, got %d", src.count())
	}
	deadline, ok := tr.NextResync()
	if !ok || !deadline.Equal(epoch.Add(3*time.Second)) {
		t.Fatalf("failed resync must re-arm after 1s, got %v,%v", deadline, ok)
	}

	c.Advance(time.Second)
	deadline, ok = tr.NextResync()
	if src.count() != 2 || !ok || !deadline.Equal(epoch.Add(5*time.Second)) {
		t.Fatalf("second failure should double the delay: calls=%d deadline=%v,%v", src.count(), deadline, ok)
	}

	src.push(domain.RateLimitStatus{Remaining: 10, Total: 10, ResetAt: epoch.Add(time.Hour)}, nil)
	c.Advance(2 * time.Second)
	if src.count() != 3 || tr.IsRateLimited() {
		t.Fatalf("tracker should recover once the source answers, calls=%d", src.count())
	}
	if _, ok := tr.NextResync(); ok {
		t.Fatalf("no resync should remain armed after recovery")
	}
}

func TestTracker_FailedResyncBackoffCappedAtMax(t *testing.T) {
	src := &fakeSource{}
	c := clock.NewFake(epoch)
	tr := New(src, WithClock(c), WithMaxDelay(3*time.Second))
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch})

	src.push(domain.RateLimitStatus{}, errors.New("connection reset"))
	c.Advance(time.Minute)
	if src.count() < 15 {
		t.Fatalf("resync should keep retrying at most every 3s, got %d calls", src.count())
	}
	deadline, ok := tr.NextResync()
	if !ok || deadline.Sub(c.Now()) > 3*time.Second {
		t.Fatalf("retry must stay armed within max delay: %v,%v", deadline, ok)
	}
	if !tr.IsRateLimited() {
		t.Fatalf("status must stay exhausted while the source fails")
	}
}

func TestTracker_StaleResetAtBacksOffInsteadOfSpinning(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)
	stale := domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(-5 * time.Second)}
	src.push(stale, nil)
	tr.Update(stale)

	c.Advance(0)
	if src.count() != 1 {
		t.Fatalf("expected one immediate query, got %d", src.count())
	}
	deadline, ok := tr.NextResync()
	if !ok || !deadline.Equal(epoch.Add(time.Second)) {
		t.Fatalf("still-exhausted past reset should wait 1s, got %v,%v", deadline, ok)
	}
	c.Advance(time.Second)
	if d, _ := tr.NextResync(); src.count() != 2 || !d.Equal(epoch.Add(3*time.Second)) {
		t.Fatalf("second miss should wait 2s: calls=%d next=%v", src.count(), d)
	}

	src.push(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Minute)}, nil)
	c.Advance(2 * time.Second)
	if d, _ := tr.NextResync(); !d.Equal(epoch.Add(time.Minute + time.Second)) {
		t.Fatalf("a rolled window should resume reset-based scheduling, got %v", d)
	}
}

func TestTracker_ClearingLimitCancelsResync(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(10 * time.Second)})
	tr.Update(domain.RateLimitStatus{Remaining: 4, Total: 10, ResetAt: epoch.Add(time.Hour)})
	if c.Pending() != 0 {
		t.Fatalf("resync should be cancelled once quota is available")
	}
	c.Advance(time.Minute)
	if src.count() != 0 {
		t.Fatalf("cancelled resync fired")
	}
}

func TestTracker_CloseStopsResync(t *testing.T) {
	src := &fakeSource{}
	tr, c := newTracker(src)
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Second)})
	tr.Close()
	c.Advance(time.Minute)
	if src.count() != 0 {
		t.Fatalf("closed tracker must not resync")
	}
	tr.Update(domain.RateLimitStatus{Remaining: 0, Total: 10, ResetAt: epoch.Add(time.Second)})
	if c.Pending() != 0 {
		t.Fatalf("closed tracker must ignore updates")
	}
}

func TestTracker_ResetIn(t *testing.T) {
	tr, c := newTracker(&fakeSource{})
	tr.Update(domain.RateLimitStatus{Remaining: 2, Total: 10, ResetAt: epoch.Add(90 * time.Second)})
	if got := tr.ResetIn(); got != 90*time.Second {
		t.Fatalf("ResetIn = %v", got)
	}
	c.Advance(2 * time.Minute)
	if got := tr.ResetIn(); got != 0 {
		t.Fatalf("ResetIn after reset = %v; want 0", got)
	}
}

func TestScheduler_CancelIfArmed(t *testing.T) {
	c := clock.NewFake(epoch)
	s := newScheduler(c)
	if s.cancelIfArmed() {
		t.Fatalf("nothing armed yet")
	}
	fired := 0
	s.arm(time.Second, func() { fired++ })
	s.arm(-time.Second, func() { fired += 10 })
	if !s.cancelIfArmed() {
		t.Fatalf("expected an armed timer")
	}
	c.Advance(time.Minute)
	if fired != 0 {
		t.Fatalf("cancelled callbacks ran: %d", fired)
	}
}
