// README: Q-learning route policy: demand-weighted drop-offs, learned pickups, stop when unreachable.
package qlearning

import (
	"context"
	"math"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// AssembleRoute plans a full shift. An unreachable pickup ends the shift
// early; the partial route is returned without error.
func (d *Dispatcher) AssembleRoute(ctx context.Context, req route.Request) (route.Route, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trained {
		return route.Route{}, ErrNotTrained
	}

	r, err := route.Assembler{Policy: policy{d}, OnNoPickup: route.StopRoute}.Assemble(ctx, req)
	if err != nil {
		return route.Route{}, err
	}
	r.Algorithm = Name
	return r, nil
}

// policy runs under the dispatcher lock held by AssembleRoute.
type policy struct {
	d *Dispatcher
}

// NextDropoff scores the suggested points of the record at the current
// location by fare * (1 + max(0, gap at the point)).
func (p policy) NextDropoff(ctx context.Context, from types.Point, hour int) (route.Leg, bool, error) {
	rec, ok := p.d.table.Lookup(hour, from)
	if !ok || !rec.HasDropoffs() {
		return route.Leg{}, false, nil
	}

	estimates := maps.EstimateAll(ctx, p.d.est, from, rec.Dropoffs, p.d.opts.Parallelism)
	best := -1
	var bestScore, bestRevenue float64
	for i, est := range estimates {
		if !est.Reachable() {
			continue
		}
		revenue := pricing.Fare(est.DistanceKm())
		score := revenue * (1 + math.Max(0, p.d.table.GapAt(hour, rec.Dropoffs[i])))
		if best < 0 || score > bestScore {
			best, bestScore, bestRevenue = i, score, revenue
		}
	}
	if best < 0 {
		return route.Leg{}, false, nil
	}
	return route.Leg{To: rec.Dropoffs[best], Estimate: estimates[best], Revenue: bestRevenue}, true, nil
}

func (p policy) NextPickup(ctx context.Context, from types.Point, hour int) (route.Leg, bool, error) {
	target := p.d.recommend(from, hour)
	return route.Leg{To: target, Estimate: p.d.est.Estimate(ctx, from, target)}, true, nil
}
