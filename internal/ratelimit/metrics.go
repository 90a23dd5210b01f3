package ratelimit

import "github.com/prometheus/client_golang/prometheus"

var (
	// remaining mirrors the last reported quota.
	remaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "postgen_rate_limit_remaining",
		Help: "Generations remaining in the current quota window, as last reported by the server.",
	})

	// checks counts status queries by outcome.
	checks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgen_rate_limit_checks_total",
			Help: "Rate limit status queries by result.",
		},
		[]string{"result"},
	)

	// resyncs counts timer-driven refreshes.
	resyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postgen_rate_limit_resyncs_total",
		Help: "Automatic status refreshes fired after a quota reset.",
	})
)

func init() {
	prometheus.MustRegister(remaining, checks, resyncs)
}
