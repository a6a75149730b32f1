// README: Simulator cases: route properties per algorithm and seed, determinism, break snapping and concurrent planning.
package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"shiftroute/internal/geo"
	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/greedy"
	"shiftroute/internal/modules/planner"
	"shiftroute/internal/modules/qlearning"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	table *demand.Table
	est   maps.Estimator
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context) Result
}

func NewRunner(cfg Config, table *demand.Table) *Runner {
	return &Runner{
		cfg:   cfg,
		table: table,
		est:   maps.NewFallbackEstimator(nil),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx)
		res.Name = tc.Name
		if res.Latency == 0 {
			res.Latency = time.Since(start).Round(time.Millisecond)
		}
		results = append(results, res)

		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) request() route.Request {
	return route.Request{
		Start:     types.Point{Lat: r.cfg.StartLat, Lng: r.cfg.StartLng},
		StartHour: r.cfg.StartHour,
		EndHour:   r.cfg.EndHour,
		Break:     route.Window{Start: r.cfg.BreakStart, End: r.cfg.BreakEnd},
	}
}

func (r *Runner) cases() []TestCase {
	var out []TestCase
	for seed := 1; seed <= r.cfg.Seeds; seed++ {
		s := int64(seed)
		out = append(out,
			TestCase{Name: fmt.Sprintf("reinforcement route properties (seed %d)", s), Run: func(ctx context.Context) Result {
				return r.checkRoute(ctx, qlearning.Name, s)
			}},
			TestCase{Name: fmt.Sprintf("greedy route properties (seed %d)", s), Run: func(ctx context.Context) Result {
				return r.checkRoute(ctx, greedy.Name, s)
			}},
		)
	}
	out = append(out,
		TestCase{Name: "same seed gives the same route", Run: r.checkDeterminism},
		TestCase{Name: "grid discretizer is deterministic", Run: r.checkGrid},
		TestCase{Name: "greedy with every target unreachable keeps only the seed", Run: r.checkUnreachable},
		TestCase{Name: "clock snaps carries into the break", Run: r.checkBreakSnap},
		TestCase{Name: "concurrent planner requests produce valid routes", Run: r.checkConcurrentPlanner},
	)
	return out
}

func (r *Runner) assemble(ctx context.Context, algorithm string, seed int64, est maps.Estimator) (route.Route, error) {
	switch algorithm {
	case qlearning.Name:
		opts := qlearning.DefaultOptions()
		opts.Seed = seed
		d := qlearning.New(r.table, est, opts)
		if err := d.Train(ctx); err != nil {
			return route.Route{}, err
		}
		return d.AssembleRoute(ctx, r.request())
	case greedy.Name:
		opts := greedy.DefaultOptions()
		opts.Seed = seed
		return greedy.New(r.table, est, opts).AssembleRoute(ctx, r.request())
	}
	return route.Route{}, fmt.Errorf("unknown algorithm %q", algorithm)
}

func (r *Runner) checkRoute(ctx context.Context, algorithm string, seed int64) Result {
	rt, err := r.assemble(ctx, algorithm, seed, r.est)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if err := route.Verify(rt, r.request().Break); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("trips=%d revenue=%.2f driving=%.1fh", rt.TripCount, rt.TotalRevenue, rt.TotalDrivingTime)}
}

func (r *Runner) checkDeterminism(ctx context.Context) Result {
	for _, algorithm := range []string{qlearning.Name, greedy.Name} {
		a, err := r.assemble(ctx, algorithm, 42, r.est)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		b, err := r.assemble(ctx, algorithm, 42, r.est)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !reflect.DeepEqual(a, b) {
			return Result{Status: statusFail, Note: algorithm + " routes differ"}
		}
	}
	return Result{Status: statusPass}
}

func (r *Runner) checkGrid(context.Context) Result {
	g := geo.DefaultGrid()
	for _, h := range r.table.Hours() {
		for _, rec := range r.table.AtHour(h) {
			p := rec.Position()
			a, b := g.CellOf(p), g.CellOf(p)
			if a != b || a.X < 0 || a.Y < 0 || a.X >= g.Size || a.Y >= g.Size {
				return Result{Status: statusFail, Note: fmt.Sprintf("cell %v for %v", a, p)}
			}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("records=%d", r.table.Len())}
}

func (r *Runner) checkUnreachable(ctx context.Context) Result {
	unreachable := maps.EstimatorFunc(func(context.Context, types.Point, types.Point) maps.Estimate {
		return maps.Unreachable()
	})
	rt, err := r.assemble(ctx, greedy.Name, 1, unreachable)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(rt.Locations) != 1 || rt.TripCount != 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("expected the seed only, got %d events", len(rt.Locations))}
	}
	return Result{Status: statusPass}
}

func (r *Runner) checkBreakSnap(context.Context) Result {
	w := r.request().Break
	if w.Hours() == 0 || w.Start == 0 {
		return Result{Status: statusSkip, Note: "no break window"}
	}
	got := route.Clock{Hour: w.Start - 1, Minute: 45}.Advance(30, w)
	if got != route.At(w.End) {
		return Result{Status: statusFail, Note: "landed at " + got.String()}
	}
	return Result{Status: statusPass, Note: "snapped to " + got.String()}
}

func (r *Runner) checkConcurrentPlanner(ctx context.Context) Result {
	opts := planner.DefaultOptions()
	opts.QLearning.Seed = 7
	svc := planner.NewService(r.table, r.est, opts, nil)
	req := planner.OptimizeRequest{
		Start:     types.Point{Lat: r.cfg.StartLat, Lng: r.cfg.StartLng},
		StartHour: r.cfg.StartHour,
		EndHour:   r.cfg.EndHour,
		Algorithm: qlearning.Name,
		Break:     &route.Window{Start: r.cfg.BreakStart, End: r.cfg.BreakEnd},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency*2; i++ {
		g.Go(func() error {
			rt, err := svc.OptimizeRoute(gctx, req)
			if err != nil {
				return err
			}
			return route.Verify(rt, *req.Break)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Status: statusSkip, Note: "timed out"}
		}
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("requests=%d", r.cfg.Concurrency*2)}
}
