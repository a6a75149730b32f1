// README: Demand record model; one observed/predicted demand-supply sample per (hour, location).
package demand

import "shiftroute/internal/types"

// MaxDropoffs caps the suggested drop-off points carried by a record.
const MaxDropoffs = 5

type Record struct {
	Week       int
	DayOfWeek  int
	TimeWindow string
	Hour       int
	Lat        float64
	Lng        float64
	Demand     float64
	Supply     float64
	// Gap is the signed demand-supply gap. Negative means oversupply of
	// drivers (good place to drop off), positive means undersupply.
	Gap      float64
	Dropoffs []types.Point
}

func (r Record) Position() types.Point {
	return types.Point{Lat: r.Lat, Lng: r.Lng}
}

func (r Record) HasDropoffs() bool {
	return len(r.Dropoffs) > 0
}
