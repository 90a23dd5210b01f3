package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// apiReqs counts API calls by endpoint and outcome ("transport" when no
	// response was received, otherwise the status code).
	apiReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgen_client_requests_total",
			Help: "Generation API requests issued by the client.",
		},
		[]string{"endpoint", "status"},
	)

	// apiLat records round-trip time by endpoint. Generation takes seconds,
	// so buckets extend well past the default range.
	apiLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postgen_client_request_duration_seconds",
			Help:    "Generation API round-trip time in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(apiReqs, apiLat)
}

func observe(endpoint, status string, d time.Duration) {
	apiReqs.WithLabelValues(endpoint, status).Inc()
	apiLat.WithLabelValues(endpoint).Observe(d.Seconds())
}
