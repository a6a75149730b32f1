// README: Planner service: lazily built dispatchers behind the three exposed planning operations.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/greedy"
	"shiftroute/internal/modules/qlearning"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// Recorder stores assembled routes for their owner.
type Recorder interface {
	Record(ctx context.Context, owner types.ID, r route.Route) error
}

type Options struct {
	QLearning qlearning.Options
	Greedy    greedy.Options
	// Parallelism bounds estimator calls for evaluation and recommendation.
	Parallelism int
}

func DefaultOptions() Options {
	return Options{
		QLearning:   qlearning.DefaultOptions(),
		Greedy:      greedy.DefaultOptions(),
		Parallelism: 8,
	}
}

// Service builds each dispatcher at most once per process. The Q-learning
// dispatcher is trained inside that construction, so concurrent first calls
// wait for a single training run. The two dispatchers are guarded separately
// and greedy requests never wait on training.
type Service struct {
	table    *demand.Table
	est      maps.Estimator
	opts     Options
	recorder Recorder

	// qlock is a one-slot semaphore so waiters can give up on ctx.
	qlock chan struct{}
	qd    *qlearning.Dispatcher

	gonce sync.Once
	gd    *greedy.Dispatcher

	nowFn func() time.Time
}

// NewService wires the planner. recorder may be nil.
func NewService(table *demand.Table, est maps.Estimator, opts Options, recorder Recorder) *Service {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultOptions().Parallelism
	}
	return &Service{
		table:    table,
		est:      est,
		opts:     opts,
		recorder: recorder,
		qlock:    make(chan struct{}, 1),
		nowFn:    time.Now,
	}
}

// reinforcement returns the trained Q-learning dispatcher, training it on
// first use. A failed training is not kept; the next caller retries it.
func (s *Service) reinforcement(ctx context.Context) (*qlearning.Dispatcher, error) {
	select {
	case s.qlock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.qlock }()
	if s.qd != nil {
		return s.qd, nil
	}
	d := qlearning.New(s.table, s.est, s.opts.QLearning)
	if err := d.Train(ctx); err != nil {
		return nil, err
	}
	s.qd = d
	return d, nil
}

func (s *Service) greedy() *greedy.Dispatcher {
	s.gonce.Do(func() {
		s.gd = greedy.New(s.table, s.est, s.opts.Greedy)
	})
	return s.gd
}

// Warm trains the Q-learning dispatcher ahead of the first request.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.reinforcement(ctx)
	return err
}

// OptimizeRoute plans a shift with the requested algorithm and assigns the
// route an ID. Storing the route is best-effort.
func (s *Service) OptimizeRoute(ctx context.Context, req OptimizeRequest) (route.Route, error) {
	rr, err := req.routeRequest()
	if err != nil {
		return route.Route{}, err
	}

	start := s.nowFn()
	var r route.Route
	switch req.Algorithm {
	case qlearning.Name:
		d, derr := s.reinforcement(ctx)
		if derr != nil {
			err = derr
			break
		}
		r, err = d.AssembleRoute(ctx, rr)
	case greedy.Name:
		r, err = s.greedy().AssembleRoute(ctx, rr)
	}
	routeDuration.WithLabelValues(req.Algorithm).Observe(s.nowFn().Sub(start).Seconds())
	if err != nil {
		routesTotal.WithLabelValues(req.Algorithm, "error").Inc()
		return route.Route{}, computationError(err)
	}
	routesTotal.WithLabelValues(req.Algorithm, "ok").Inc()
	tripsPerRoute.WithLabelValues(req.Algorithm).Observe(float64(r.TripCount))

	r.ID = types.ID(uuid.NewString())
	if s.recorder != nil && req.Owner != "" {
		if err := s.recorder.Record(ctx, req.Owner, r); err != nil {
			log.Warn().Err(err).Str("route_id", string(r.ID)).Msg("failed to store route")
		}
	}

	log.Info().
		Str("route_id", string(r.ID)).
		Str("algorithm", r.Algorithm).
		Int("trips", r.TripCount).
		Float64("revenue", r.TotalRevenue).
		Msg("route assembled")
	return r, nil
}

func computationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrComputation, err)
}
