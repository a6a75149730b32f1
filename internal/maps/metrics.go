package maps

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	estimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftroute_travel_estimates_total",
			Help: "Travel estimates served, by source (oracle, cache, fallback).",
		},
		[]string{"source"},
	)

	oracleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiftroute_oracle_request_duration_seconds",
			Help:    "Latency of routing oracle calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
