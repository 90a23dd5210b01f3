// Package retry re-invokes a fallible operation under a bounded policy.
package retry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/apierror"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts counts the first try; values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// ShouldRetry decides whether a failure is worth another attempt.
	// Nil means apierror.DefaultShouldRetry (transport failures only).
	ShouldRetry func(error) bool
	// Name labels logs and metrics, e.g. "generate".
	Name string
}

// DefaultPolicy is three attempts one second apart, transport failures only.
func DefaultPolicy(name string) Policy {
	return Policy{MaxAttempts: 3, Delay: time.Second, ShouldRetry: apierror.DefaultShouldRetry, Name: name}
}

var attempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postgen_retry_attempts_total",
		Help: "Retries performed after a failed attempt, by operation.",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(attempts)
}

// wait blocks for d or until ctx is done. Replaced in tests.
var wait = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op until it succeeds, the policy gives up, or ctx is done, and
// returns the first success or the last error. A cancelled context stops
// the loop during the wait and returns the last operation error.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	limit := p.MaxAttempts
	if limit < 1 {
		limit = 1
	}
	should := p.ShouldRetry
	if should == nil {
		should = apierror.DefaultShouldRetry
	}
	name := p.Name
	if name == "" {
		name = "op"
	}

	var (
		res T
		err error
	)
	for attempt := 1; attempt <= limit; attempt++ {
		res, err = op(ctx)
		if err == nil {
			return res, nil
		}
		if attempt == limit || !should(err) {
			break
		}
		log.Warn().
			Err(err).
			Str("op", name).
			Int("attempt", attempt).
			Int("max_attempts", limit).
			Dur("retry_in", p.Delay).
			Msg("retrying after failure")
		attempts.WithLabelValues(name).Inc()
		if werr := wait(ctx, p.Delay); werr != nil {
			break
		}
	}
	var zero T
	return zero, err
}
