package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftroute_routes_total",
			Help: "Route assemblies by algorithm and outcome.",
		},
		[]string{"algorithm", "outcome"},
	)

	routeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftroute_route_assembly_duration_seconds",
			Help:    "Time spent assembling one route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"algorithm"},
	)

	tripsPerRoute = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shiftroute_route_trips",
			Help:    "Completed trips per assembled route.",
			Buckets: prometheus.LinearBuckets(0, 4, 10),
		},
		[]string{"algorithm"},
	)
)
