package limiter

import (
	"sync"
	"time"

	"github.com/tbourn/go-postgen/internal/clock"
)

// Throttler runs fn at most once per wait. The first Call of an idle window
// runs immediately; later Calls inside the window collapse into a single
// trailing call, with the latest arguments, at the end of the window.
type Throttler[A any] struct {
	fn   func(A)
	wait time.Duration
	clk  clock.Clock

	mu       sync.Mutex
	ran      bool      // fn has executed since construction or Cancel
	last     time.Time // start of the current window
	timer    clock.Timer
	trailing bool
	args     A
	gen      uint64
}

// NewThrottler wraps fn.
func NewThrottler[A any](fn func(A), wait time.Duration, opts ...Option) *Throttler[A] {
	o := buildOptions(opts)
	return &Throttler[A]{fn: fn, wait: wait, clk: o.clk}
}

// Call runs fn now when the window is idle, otherwise records args for the
// trailing call.
func (t *Throttler[A]) Call(args A) {
	t.mu.Lock()
	now := t.clk.Now()
	if t.timer == nil && (!t.ran || now.Sub(t.last) >= t.wait) {
		t.ran = true
		t.last = now
		t.mu.Unlock()
		t.fn(args)
		return
	}

	t.args = args
	t.trailing = true
	if t.timer == nil {
		t.gen++
		gen := t.gen
		t.timer = t.clk.AfterFunc(t.wait-now.Sub(t.last), func() { t.fire(gen) })
	}
	t.mu.Unlock()
}

// Cancel discards a pending trailing call and resets the throttler, so the
// next Call runs immediately. A call that already ran is unaffected.
func (t *Throttler[A]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.trailing = false
	t.ran = false
	var zero A
	t.args = zero
}

// Pending reports whether a trailing call is scheduled.
func (t *Throttler[A]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trailing
}

func (t *Throttler[A]) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.trailing {
		t.mu.Unlock()
		return
	}
	args := t.args
	var zero A
	t.args = zero
	t.trailing = false
	t.ran = true
	t.last = t.clk.Now()
	t.mu.Unlock()
	t.fn(args)
}
