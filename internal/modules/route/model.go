// README: Route model: timestamped pickup/drop-off events, shift request and break window.
package route

import (
	"errors"
	"fmt"
	"math"

	"shiftroute/internal/types"
)

var ErrInvalidRequest = errors.New("invalid route request")

type EventType string

const (
	Pickup  EventType = "pickup"
	Dropoff EventType = "dropoff"
)

// Location is one event of a route. TripID 0 marks the shift's starting
// position; pickups always carry zero revenue.
type Location struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Type     EventType `json:"type"`
	Time     string    `json:"time"`
	TripID   int       `json:"tripId"`
	Revenue  float64   `json:"revenue"`
	Geometry string    `json:"geometry,omitempty"`
}

func (l Location) Point() types.Point {
	return types.Point{Lat: l.Lat, Lng: l.Lng}
}

type Route struct {
	ID               types.ID   `json:"id,omitempty"`
	Algorithm        string     `json:"algorithm,omitempty"`
	Locations        []Location `json:"locations"`
	TotalRevenue     float64    `json:"totalRevenue"`
	TotalDrivingTime float64    `json:"totalDrivingTime"`
	BreakTime        float64    `json:"breakTime"`
	TripCount        int        `json:"tripCount"`
}

// Window is a break expressed in whole hours, [Start, End).
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func DefaultBreak() Window {
	return Window{Start: 12, End: 13}
}

func (w Window) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

func (w Window) Hours() int {
	return w.End - w.Start
}

// Request describes one shift to plan.
type Request struct {
	Start     types.Point
	StartHour int
	EndHour   int
	Break     Window
}

func (r Request) Validate() error {
	switch {
	case r.Start.IsZero():
		return fmt.Errorf("%w: start location is required", ErrInvalidRequest)
	case !validCoord(r.Start.Lat, 90) || !validCoord(r.Start.Lng, 180):
		return fmt.Errorf("%w: start location out of range", ErrInvalidRequest)
	case r.StartHour < 0 || r.StartHour > 23:
		return fmt.Errorf("%w: start hour must be within 0-23", ErrInvalidRequest)
	case r.EndHour <= r.StartHour || r.EndHour > 24:
		return fmt.Errorf("%w: end hour must be after start hour and at most 24", ErrInvalidRequest)
	case r.Break.Start < 0 || r.Break.End > 24 || r.Break.Start > r.Break.End:
		return fmt.Errorf("%w: break window must satisfy 0 <= start <= end <= 24", ErrInvalidRequest)
	}
	return nil
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}
