// README: Estimator over a routing oracle with timeout, rate limit, cache and great-circle fallback.
package maps

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"shiftroute/internal/types"
)

const defaultOracleTimeout = 3 * time.Second

// FallbackEstimator never fails: any oracle error, timeout, throttling
// timeout or malformed answer is replaced by GreatCircle.
type FallbackEstimator struct {
	oracle  Oracle
	cache   Cache
	limiter *rate.Limiter
	timeout time.Duration
}

type Option func(*FallbackEstimator)

func WithCache(c Cache) Option {
	return func(e *FallbackEstimator) { e.cache = c }
}

// WithRateLimit throttles oracle calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *FallbackEstimator) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(e *FallbackEstimator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewFallbackEstimator wraps oracle. A nil oracle yields a pure great-circle
// estimator.
func NewFallbackEstimator(oracle Oracle, opts ...Option) *FallbackEstimator {
	e := &FallbackEstimator{oracle: oracle, timeout: defaultOracleTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FallbackEstimator) Estimate(ctx context.Context, from, to types.Point) Estimate {
	if e.oracle == nil {
		return e.fallback(from, to)
	}

	if e.cache != nil {
		est, ok, err := e.cache.Get(ctx, from, to)
		if err != nil {
			log.Warn().Err(err).Msg("travel cache read failed")
		} else if ok {
			estimatesTotal.WithLabelValues(string(SourceCache)).Inc()
			est.Source = SourceCache
			return est
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx); err != nil {
			log.Debug().Err(err).Msg("oracle throttled, using great-circle estimate")
			return e.fallback(from, to)
		}
	}

	start := time.Now()
	est, err := e.oracle.Route(callCtx, from, to)
	oracleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Debug().Err(err).
			Float64("from_lat", from.Lat).Float64("from_lng", from.Lng).
			Float64("to_lat", to.Lat).Float64("to_lng", to.Lng).
			Msg("oracle failed, using great-circle estimate")
		return e.fallback(from, to)
	}
	if !validEstimate(est) {
		log.Debug().Float64("distance", est.DistanceMeters).Float64("duration", est.DurationSeconds).
			Msg("oracle returned malformed estimate, using great-circle estimate")
		return e.fallback(from, to)
	}

	est.Source = SourceOracle
	estimatesTotal.WithLabelValues(string(SourceOracle)).Inc()
	if e.cache != nil {
		if err := e.cache.Set(ctx, from, to, est); err != nil {
			log.Warn().Err(err).Msg("travel cache write failed")
		}
	}
	return est
}

func (e *FallbackEstimator) fallback(from, to types.Point) Estimate {
	estimatesTotal.WithLabelValues(string(SourceFallback)).Inc()
	return GreatCircle(from, to)
}

func validEstimate(est Estimate) bool {
	for _, v := range []float64{est.DistanceMeters, est.DurationSeconds} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}
