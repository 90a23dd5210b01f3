package cache

import "github.com/prometheus/client_golang/prometheus"

// lookups counts Get calls by outcome ("hit" or "miss"). Expired entries
// count as misses.
var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postgen_cache_lookups_total",
		Help: "Cache lookups by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

func recordLookup(hit bool) {
	if hit {
		lookups.WithLabelValues("hit").Inc()
		return
	}
	lookups.WithLabelValues("miss").Inc()
}
