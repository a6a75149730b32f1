package planner

import (
	"context"
	"fmt"
	"slices"

	"shiftroute/internal/geo"
	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// RecommendPickups asks the Q-learning dispatcher where to look for the next
// passenger after a drop-off. A primary pickup whose arrival falls in the
// break is retried once; the retry is kept only if it avoids the break.
func (s *Service) RecommendPickups(ctx context.Context, req RecommendRequest) (PickupRecommendation, error) {
	if err := req.validate(); err != nil {
		return PickupRecommendation{}, err
	}
	w := breakOrDefault(req.Break)

	d, err := s.reinforcement(ctx)
	if err != nil {
		return PickupRecommendation{}, computationError(err)
	}

	primary, err := s.recommendOption(ctx, d.Recommend, req.Dropoff, req.Hour)
	if err != nil {
		return PickupRecommendation{}, err
	}
	var rec PickupRecommendation
	if inBreak(primary, w) {
		rec.Retried = true
		retry, err := s.recommendOption(ctx, d.Recommend, req.Dropoff, req.Hour)
		if err != nil {
			return PickupRecommendation{}, err
		}
		if !inBreak(retry, w) {
			primary = retry
		}
	}
	rec.Primary = primary
	rec.InBreak = inBreak(primary, w)
	rec.Alternates = s.alternates(ctx, req.Dropoff, req.Hour, primary.Location)
	if err := ctx.Err(); err != nil {
		return PickupRecommendation{}, err
	}
	return rec, nil
}

type recommendFunc func(ctx context.Context, pos types.Point, hour int) (types.Point, error)

func (s *Service) recommendOption(ctx context.Context, recommend recommendFunc, from types.Point, hour int) (PickupOption, error) {
	p, err := recommend(ctx, from, hour)
	if err != nil {
		return PickupOption{}, computationError(fmt.Errorf("recommend pickup: %w", err))
	}
	return s.option(p, hour, s.est.Estimate(ctx, from, p)), nil
}

func (s *Service) option(p types.Point, hour int, est maps.Estimate) PickupOption {
	opt := PickupOption{Location: p, Gap: s.table.GapAt(hour, p)}
	if !est.Reachable() {
		return opt
	}
	opt.Reachable = true
	opt.DistanceKm = est.DistanceKm()
	opt.DurationMinutes = route.TravelMinutes(est.DurationSeconds)
	arrival := arrivalAt(hour, est)
	opt.Arrival = arrival.String()
	opt.arrivalHour = arrival.Hour % 24
	return opt
}

func inBreak(opt PickupOption, w route.Window) bool {
	return opt.Reachable && w.Contains(opt.arrivalHour)
}

// alternates returns up to MaxAlternates distinct undersupplied spots of the
// hour, by descending gap, within the travel budget and away from the primary.
func (s *Service) alternates(ctx context.Context, from types.Point, hour int, primary types.Point) []PickupOption {
	var records []demand.Record
	for _, r := range s.table.DistinctAtHour(hour) {
		if r.Gap > 0 && geo.HaversineKm(r.Position(), primary) > AlternateMinSeparationKm {
			records = append(records, r)
		}
	}
	slices.SortStableFunc(records, func(a, b demand.Record) int {
		switch {
		case a.Gap > b.Gap:
			return -1
		case a.Gap < b.Gap:
			return 1
		}
		return 0
	})

	points := make([]types.Point, len(records))
	for i, r := range records {
		points[i] = r.Position()
	}
	estimates := maps.EstimateAll(ctx, s.est, from, points, s.opts.Parallelism)

	out := make([]PickupOption, 0, MaxAlternates)
	for i, est := range estimates {
		if !est.Reachable() || est.DurationSeconds > AlternateTravelBudget {
			continue
		}
		out = append(out, s.option(points[i], hour, est))
		if len(out) == MaxAlternates {
			break
		}
	}
	return out
}
