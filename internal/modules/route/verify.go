package route

import (
	"errors"
	"fmt"
	"math"
)

// Verify checks the structural guarantees of an assembled route: ordered
// timestamps, no event inside the break, dropoffs paired with earlier
// pickups, non-negative revenue adding up to the total.
func Verify(r Route, w Window) error {
	var errs []error
	if len(r.Locations) == 0 {
		return errors.New("route has no events")
	}
	if seed := r.Locations[0]; seed.Type != Pickup || seed.TripID != 0 {
		errs = append(errs, fmt.Errorf("first event must be the seed pickup, got %s trip %d", seed.Type, seed.TripID))
	}

	pickups := make(map[int]bool)
	paired := make(map[int]bool)
	prev := -1
	dropoffs, sum := 0, 0.0
	for i, loc := range r.Locations {
		c, err := ParseClock(loc.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		m := c.MinuteOfDay()
		// only a wrap past midnight may go backwards
		if prev >= 0 && m < prev && prev-m < 12*60 {
			errs = append(errs, fmt.Errorf("event %d at %s precedes %s", i, loc.Time, r.Locations[i-1].Time))
		}
		prev = m
		if w.Start < w.End && m >= w.Start*60 && m < w.End*60 {
			errs = append(errs, fmt.Errorf("event %d at %s falls inside the break", i, loc.Time))
		}
		if loc.Revenue < 0 {
			errs = append(errs, fmt.Errorf("event %d has negative revenue", i))
		}

		switch loc.Type {
		case Pickup:
			if loc.Revenue != 0 {
				errs = append(errs, fmt.Errorf("pickup %d carries revenue", i))
			}
			pickups[loc.TripID] = true
		case Dropoff:
			dropoffs++
			sum += loc.Revenue
			switch {
			case loc.TripID == 0:
				errs = append(errs, fmt.Errorf("dropoff %d paired with the seed", i))
			case !pickups[loc.TripID]:
				errs = append(errs, fmt.Errorf("dropoff %d has no earlier pickup for trip %d", i, loc.TripID))
			case paired[loc.TripID]:
				errs = append(errs, fmt.Errorf("trip %d dropped off twice", loc.TripID))
			}
			paired[loc.TripID] = true
		default:
			errs = append(errs, fmt.Errorf("event %d has unknown type %q", i, loc.Type))
		}
	}

	if dropoffs != r.TripCount {
		errs = append(errs, fmt.Errorf("tripCount %d but %d dropoffs", r.TripCount, dropoffs))
	}
	if math.Abs(sum-r.TotalRevenue) > 0.01 {
		errs = append(errs, fmt.Errorf("totalRevenue %.2f but dropoffs sum to %.2f", r.TotalRevenue, sum))
	}
	return errors.Join(errs...)
}
