// Package limiter provides debounce and throttle wrappers that bound how
// often a callback runs in response to bursts of calls, such as keystrokes
// in a search box or slider drags that trigger previews.
//
// Callbacks receive the arguments of a Call unmodified. Functions taking
// several arguments are wrapped with a struct type for A.
package limiter

import "github.com/tbourn/go-postgen/internal/clock"

type options struct {
	clk clock.Clock
}

// Option configures a Debouncer or Throttler.
type Option func(*options)

// WithClock sets the time source used to schedule deferred calls.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clk = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clk: clock.Real()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
