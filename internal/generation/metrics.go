package generation

import "github.com/prometheus/client_golang/prometheus"

// outcomes counts generation attempts by mode ("single" or "variants") and
// outcome ("ok", "rate_limited", "invalid", "empty" or an error kind).
var outcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postgen_generations_total",
		Help: "Client-side generation attempts by mode and outcome.",
	},
	[]string{"mode", "outcome"},
)

func init() {
	prometheus.MustRegister(outcomes)
}
