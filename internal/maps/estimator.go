// README: Travel estimator contracts, the great-circle fallback and parallel candidate evaluation.
package maps

import (
	"context"
	"errors"
	"math"

	"golang.org/x/sync/errgroup"

	"shiftroute/internal/geo"
	"shiftroute/internal/types"
)

// fallbackSecondsPerKm assumes 30 km/h when the oracle cannot answer.
const fallbackSecondsPerKm = 120.0

var ErrNoRoute = errors.New("no route found")

type Source string

const (
	SourceOracle   Source = "oracle"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type Estimate struct {
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
	Geometry        string  `json:"geometry,omitempty"`
	Source          Source  `json:"source,omitempty"`
}

// Reachable is false when the distance is infinite.
func (e Estimate) Reachable() bool {
	return !math.IsInf(e.DistanceMeters, 0) && !math.IsNaN(e.DistanceMeters)
}

func (e Estimate) DistanceKm() float64 {
	return e.DistanceMeters / 1000
}

// Unreachable is the estimate an estimator reports when no path exists.
func Unreachable() Estimate {
	return Estimate{DistanceMeters: math.Inf(1), DurationSeconds: math.Inf(1)}
}

// GreatCircle estimates a trip from the haversine distance at 30 km/h.
func GreatCircle(from, to types.Point) Estimate {
	km := geo.HaversineKm(from, to)
	return Estimate{
		DistanceMeters:  km * 1000,
		DurationSeconds: km * fallbackSecondsPerKm,
		Source:          SourceFallback,
	}
}

// Estimator always returns a usable estimate; failures are absorbed by the
// implementation.
type Estimator interface {
	Estimate(ctx context.Context, from, to types.Point) Estimate
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context, from, to types.Point) Estimate

func (f EstimatorFunc) Estimate(ctx context.Context, from, to types.Point) Estimate {
	return f(ctx, from, to)
}

// Oracle is an external routing service. Unlike Estimator it reports errors.
type Oracle interface {
	Route(ctx context.Context, from, to types.Point) (Estimate, error)
}

// EstimateAll evaluates from against every target concurrently, at most limit
// calls in flight (unbounded when limit <= 0). Results keep target order.
func EstimateAll(ctx context.Context, est Estimator, from types.Point, targets []types.Point, limit int) []Estimate {
	out := make([]Estimate, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, to := range targets {
		g.Go(func() error {
			out[i] = est.Estimate(gctx, from, to)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
