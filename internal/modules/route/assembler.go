// README: Shared shift loop alternating drop-off and pickup decisions of a dispatch policy.
package route

import (
	"context"

	"github.com/rs/zerolog/log"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/types"
)

// Leg is a move chosen by a policy.
type Leg struct {
	To       types.Point
	Estimate maps.Estimate
	Revenue  float64
}

// Policy chooses where the vehicle goes next.
type Policy interface {
	// NextDropoff picks where to drop the passenger on board. ok=false
	// means stay put and record nothing.
	NextDropoff(ctx context.Context, from types.Point, hour int) (leg Leg, ok bool, err error)
	// NextPickup picks the next passenger. ok=false means no candidate.
	NextPickup(ctx context.Context, from types.Point, hour int) (leg Leg, ok bool, err error)
}

// NoPickupPolicy decides what happens when no reachable pickup exists.
type NoPickupPolicy int

const (
	// StopRoute ends the shift and returns the route built so far.
	StopRoute NoPickupPolicy = iota
	// WaitAnHour advances the cursor one hour and tries again.
	WaitAnHour
)

type Assembler struct {
	Policy     Policy
	OnNoPickup NoPickupPolicy
}

// Assemble runs the shift loop until the cursor reaches req.EndHour, or a
// pickup is unreachable under StopRoute.
func (a Assembler) Assemble(ctx context.Context, req Request) (Route, error) {
	if err := req.Validate(); err != nil {
		return Route{}, err
	}

	clock, _ := At(req.StartHour).SkipBreak(req.Break)
	pos := req.Start
	b := newBuilder(req.Break)
	b.pickup(pos, clock, 0, "")

	tripID := 0
	onBoard := false
	for clock.Before(req.EndHour) {
		if err := ctx.Err(); err != nil {
			return Route{}, err
		}
		if next, skipped := clock.SkipBreak(req.Break); skipped {
			clock = next
			continue
		}
		iterStart := clock

		if onBoard {
			leg, ok, err := a.Policy.NextDropoff(ctx, pos, clock.Hour)
			if err != nil {
				return Route{}, err
			}
			if ok && leg.Estimate.Reachable() && leg.Estimate.DistanceMeters > 0 {
				clock = clock.Advance(TravelMinutes(leg.Estimate.DurationSeconds), req.Break)
				b.dropoff(leg, clock, tripID)
				pos = leg.To
				onBoard = false
			}
			if !clock.Before(req.EndHour) {
				break
			}
		}

		leg, ok, err := a.Policy.NextPickup(ctx, pos, clock.Hour)
		if err != nil {
			return Route{}, err
		}
		if !ok || !leg.Estimate.Reachable() {
			if a.OnNoPickup == StopRoute {
				log.Debug().Str("time", clock.String()).Msg("no reachable pickup, ending shift")
				break
			}
			clock = clock.Advance(60, req.Break)
			continue
		}

		clock = clock.Advance(TravelMinutes(leg.Estimate.DurationSeconds), req.Break)
		tripID++
		b.pickup(leg.To, clock, tripID, leg.Estimate.Geometry)
		pos = leg.To
		onBoard = true

		// a zero-length iteration would repeat forever
		if clock == iterStart {
			clock = clock.Advance(60, req.Break)
		}
	}
	return b.finish(), nil
}

type builder struct {
	route Route
	total float64
}

func newBuilder(w Window) *builder {
	return &builder{route: Route{BreakTime: float64(w.Hours())}}
}

func (b *builder) pickup(p types.Point, at Clock, tripID int, geometry string) {
	b.route.Locations = append(b.route.Locations, Location{
		Lat:      p.Lat,
		Lng:      p.Lng,
		Type:     Pickup,
		Time:     at.String(),
		TripID:   tripID,
		Geometry: geometry,
	})
}

func (b *builder) dropoff(leg Leg, at Clock, tripID int) {
	revenue := pricing.Round2(max(0, leg.Revenue))
	b.route.Locations = append(b.route.Locations, Location{
		Lat:      leg.To.Lat,
		Lng:      leg.To.Lng,
		Type:     Dropoff,
		Time:     at.String(),
		TripID:   tripID,
		Revenue:  revenue,
		Geometry: leg.Estimate.Geometry,
	})
	b.total += revenue
	b.route.TripCount++
}

func (b *builder) finish() Route {
	b.route.TotalRevenue = pricing.Round2(b.total)
	hours, err := TotalDrivingTime(b.route.Locations)
	if err != nil {
		log.Warn().Err(err).Msg("cannot compute driving time")
	}
	b.route.TotalDrivingTime = hours
	return b.route
}
