// README: Grid discretizer mapping coordinates onto a fixed-resolution cell grid.
package geo

import (
	"math"

	"shiftroute/internal/types"
)

// Bounds is the geographic box covered by a Grid.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Cell is a grid bucket. X follows latitude, Y follows longitude.
type Cell struct {
	X int
	Y int
}

type Grid struct {
	Bounds Bounds
	Size   int
}

// DefaultGrid covers Singapore with 20x20 cells.
func DefaultGrid() Grid {
	return Grid{
		Bounds: Bounds{MinLat: 1.2, MaxLat: 1.5, MinLng: 103.6, MaxLng: 104.1},
		Size:   20,
	}
}

// CellOf clamps p into the bounds and maps it onto [0, Size-1] on each axis.
func (g Grid) CellOf(p types.Point) Cell {
	return Cell{
		X: bucket(p.Lat, g.Bounds.MinLat, g.Bounds.MaxLat, g.Size),
		Y: bucket(p.Lng, g.Bounds.MinLng, g.Bounds.MaxLng, g.Size),
	}
}

func bucket(v, lo, hi float64, size int) int {
	if size <= 1 || hi <= lo {
		return 0
	}
	v = math.Max(lo, math.Min(hi, v))
	return min(size-1, int(math.Floor((v-lo)/(hi-lo)*float64(size-1))))
}
