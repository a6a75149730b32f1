package planner

import (
	"context"
	"slices"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// EvaluateDropoffs scores caller-supplied drop-off points from Start at Hour.
// A candidate scores demandFactor - 0.3*km, or the break penalty when it is
// unreachable or its arrival falls inside the break. Results are ordered by
// score, ties kept in input order.
func (s *Service) EvaluateDropoffs(ctx context.Context, req EvaluateRequest) ([]DropoffEvaluation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	w := breakOrDefault(req.Break)

	estimates := maps.EstimateAll(ctx, s.est, req.Start, req.Candidates, s.opts.Parallelism)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]DropoffEvaluation, len(req.Candidates))
	for i, p := range req.Candidates {
		out[i] = s.scoreDropoff(p, req.Hour, w, estimates[i])
	}
	slices.SortStableFunc(out, func(a, b DropoffEvaluation) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Service) scoreDropoff(p types.Point, hour int, w route.Window, est maps.Estimate) DropoffEvaluation {
	ev := DropoffEvaluation{Location: p, Score: pricing.BreakPenalty}
	if rec, ok := s.table.Lookup(hour, p); ok {
		ev.Gap = rec.Gap
	}
	if !est.Reachable() {
		return ev
	}

	arrival := arrivalAt(hour, est)
	ev.Reachable = true
	ev.DistanceKm = est.DistanceKm()
	ev.DurationMinutes = route.TravelMinutes(est.DurationSeconds)
	ev.Arrival = arrival.String()
	if w.Contains(arrival.Hour % 24) {
		ev.InBreak = true
		return ev
	}

	factor := pricing.NeutralDemandFactor
	if _, ok := s.table.Lookup(hour, p); ok {
		factor = pricing.DemandFactor(ev.Gap)
	}
	ev.Score = pricing.Reward(factor, ev.DistanceKm)
	return ev
}

// arrivalAt is hour:00 plus the travel time, without break snapping.
func arrivalAt(hour int, est maps.Estimate) route.Clock {
	return route.At(hour).Advance(route.TravelMinutes(est.DurationSeconds), route.Window{})
}
