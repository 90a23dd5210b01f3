package preview

import (
	"sync/atomic"
	"time"

	"github.com/tbourn/go-postgen/internal/limiter"
)

// DefaultThrottle bounds how often a live preview re-renders.
const DefaultThrottle = 250 * time.Millisecond

// Live re-renders a draft as it changes. The first edit renders at once;
// edits inside the throttle window collapse into one trailing render of the
// latest text.
type Live struct {
	thr       *limiter.Throttler[string]
	maxLength atomic.Int64
	onRender  func(Preview, error)
	renders   atomic.Int64
}

// NewLive returns a Live that delivers each render to onRender. wait <= 0
// means DefaultThrottle.
func NewLive(wait time.Duration, maxLength int, onRender func(Preview, error), opts ...limiter.Option) *Live {
	if wait <= 0 {
		wait = DefaultThrottle
	}
	l := &Live{onRender: onRender}
	l.maxLength.Store(int64(maxLength))
	l.thr = limiter.NewThrottler(l.render, wait, opts...)
	return l
}

// Update records new draft text.
func (l *Live) Update(text string) { l.thr.Call(text) }

// SetMaxLength changes the limit used by subsequent renders, for example
// when the target platform changes.
func (l *Live) SetMaxLength(n int) { l.maxLength.Store(int64(n)) }

// Cancel drops any pending trailing render.
func (l *Live) Cancel() { l.thr.Cancel() }

// Pending reports whether a trailing render is scheduled.
func (l *Live) Pending() bool { return l.thr.Pending() }

// Renders is the number of renders delivered so far.
func (l *Live) Renders() int { return int(l.renders.Load()) }

func (l *Live) render(text string) {
	p, err := Build(text, int(l.maxLength.Load()))
	l.renders.Add(1)
	l.onRender(p, err)
}
