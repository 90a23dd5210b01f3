package limiter

import (
	"sync"
	"time"

	"github.com/tbourn/go-postgen/internal/clock"
)

// Debouncer delays fn until wait has passed without another Call. Only the
// arguments of the most recent Call are delivered.
type Debouncer[A any] struct {
	fn   func(A)
	wait time.Duration
	clk  clock.Clock

	mu      sync.Mutex
	timer   clock.Timer
	pending bool
	args    A
	gen     uint64 // bumped whenever the scheduled call is replaced or dropped
}

// NewDebouncer wraps fn.
func NewDebouncer[A any](fn func(A), wait time.Duration, opts ...Option) *Debouncer[A] {
	o := buildOptions(opts)
	return &Debouncer[A]{fn: fn, wait: wait, clk: o.clk}
}

// Call replaces any pending call with one carrying args, due wait from now.
func (d *Debouncer[A]) Call(args A) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.args = args
	d.pending = true
	d.timer = d.clk.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Cancel drops the pending call, if any. It is safe to call repeatedly.
func (d *Debouncer[A]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	d.pending = false
	var zero A
	d.args = zero
}

// Flush runs the pending call now, on the caller's goroutine. It does
// nothing when no call is pending.
func (d *Debouncer[A]) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.gen++
	args := d.take()
	d.mu.Unlock()
	d.fn(args)
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[A]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[A]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	args := d.take()
	d.mu.Unlock()
	d.fn(args)
}

// take clears the pending slot and returns its arguments. Caller holds d.mu.
func (d *Debouncer[A]) take() A {
	args := d.args
	var zero A
	d.args = zero
	d.pending = false
	return args
}

func (d *Debouncer[A]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
