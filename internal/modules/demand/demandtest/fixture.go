// Package demandtest provides a small deterministic demand table for
// dispatcher tests.
package demandtest

import (
	"context"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/types"
)

var (
	Tanjong  = types.Point{Lat: 1.3000, Lng: 103.8000} // oversupplied, two suggestions
	Novena   = types.Point{Lat: 1.3200, Lng: 103.8200} // undersupplied
	Bishan   = types.Point{Lat: 1.3500, Lng: 103.8500} // undersupplied
	Tampines = types.Point{Lat: 1.4000, Lng: 103.9000} // mildly oversupplied, one suggestion
	Marina   = types.Point{Lat: 1.2900, Lng: 103.8500} // undersupplied
)

// Records returns the same five locations for every hour in [fromHour, toHour].
func Records(fromHour, toHour int) []demand.Record {
	var out []demand.Record
	for h := fromHour; h <= toHour; h++ {
		out = append(out,
			demand.Record{Hour: h, Lat: Tanjong.Lat, Lng: Tanjong.Lng, Gap: -2.0, Dropoffs: []types.Point{Novena, Bishan}},
			demand.Record{Hour: h, Lat: Novena.Lat, Lng: Novena.Lng, Gap: 1.5},
			demand.Record{Hour: h, Lat: Bishan.Lat, Lng: Bishan.Lng, Gap: 2.5},
			demand.Record{Hour: h, Lat: Tampines.Lat, Lng: Tampines.Lng, Gap: -0.5, Dropoffs: []types.Point{Novena}},
			demand.Record{Hour: h, Lat: Marina.Lat, Lng: Marina.Lng, Gap: 0.8},
		)
	}
	return out
}

// Table covers hours 6 to 21.
func Table() *demand.Table {
	return demand.NewTable(Records(6, 21))
}

// GreatCircle is a deterministic estimator with no oracle behind it.
func GreatCircle() maps.Estimator {
	return maps.EstimatorFunc(func(_ context.Context, from, to types.Point) maps.Estimate {
		return maps.GreatCircle(from, to)
	})
}

// Unreachable reports every destination as unreachable.
func Unreachable() maps.Estimator {
	return maps.EstimatorFunc(func(context.Context, types.Point, types.Point) maps.Estimate {
		return maps.Unreachable()
	})
}
