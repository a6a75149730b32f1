// README: Great-circle distance and 2-decimal coordinate keys.
package geo

import (
	"math"

	"shiftroute/internal/types"
)

const earthRadiusKm = 6371.0

// CoordPrecision is the number of decimal places used when matching a
// coordinate against dataset records and claimed pickups.
const CoordPrecision = 2

var coordScale = math.Pow10(CoordPrecision)

// HaversineKm returns the great-circle distance in kilometres between a and b.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// CoordKey is a coordinate rounded to CoordPrecision decimals, stored as
// scaled integers so it can be used as a map key without float drift.
type CoordKey struct {
	Lat int64
	Lng int64
}

func KeyOf(p types.Point) CoordKey {
	return CoordKey{
		Lat: int64(math.Round(p.Lat * coordScale)),
		Lng: int64(math.Round(p.Lng * coordScale)),
	}
}

func (k CoordKey) Point() types.Point {
	return types.Point{Lat: float64(k.Lat) / coordScale, Lng: float64(k.Lng) / coordScale}
}
