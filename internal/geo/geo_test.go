package geo

import (
	"math"
	"testing"

	"shiftroute/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 1.3521, Lng: 103.8198},
			b:         types.Point{Lat: 1.3521, Lng: 103.8198},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Changi Airport to Marina Bay (~17km)",
			a:         types.Point{Lat: 1.3644, Lng: 103.9915},
			b:         types.Point{Lat: 1.2834, Lng: 103.8607},
			wantKm:    17.1,
			tolerance: 1.0,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 1.30, Lng: 103.80}
	b := types.Point{Lat: 1.40, Lng: 103.95}
	if d1, d2 := HaversineKm(a, b), HaversineKm(b, a); math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestKeyOf_RoundsToTwoDecimals(t *testing.T) {
	a := KeyOf(types.Point{Lat: 1.3521, Lng: 103.8198})
	b := KeyOf(types.Point{Lat: 1.349, Lng: 103.821})
	if a != b {
		t.Errorf("expected equal keys, got %v and %v", a, b)
	}
	if a.Lat != 135 || a.Lng != 10382 {
		t.Errorf("unexpected key %v", a)
	}
	c := KeyOf(types.Point{Lat: 1.36, Lng: 103.82})
	if a == c {
		t.Errorf("expected distinct keys for 1.35 and 1.36")
	}
}

// ---------------------------------------------------------------------------
// Grid
// ---------------------------------------------------------------------------

func TestGrid_CellOf(t *testing.T) {
	g := DefaultGrid()
	tests := []struct {
		name string
		p    types.Point
		want Cell
	}{
		{"south-west corner", types.Point{Lat: 1.2, Lng: 103.6}, Cell{0, 0}},
		{"north-east corner", types.Point{Lat: 1.5, Lng: 104.1}, Cell{19, 19}},
		{"clamped below", types.Point{Lat: 0.5, Lng: 100}, Cell{0, 0}},
		{"clamped above", types.Point{Lat: 2.0, Lng: 105}, Cell{19, 19}},
		// (1.35-1.2)/0.3*19 = 9.5 ; (103.85-103.6)/0.5*19 = 9.5
		{"centre", types.Point{Lat: 1.35, Lng: 103.85}, Cell{9, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CellOf(tt.p); got != tt.want {
				t.Errorf("CellOf(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestGrid_CellOfIsDeterministic(t *testing.T) {
	g := DefaultGrid()
	for lat := 1.2; lat <= 1.5; lat += 0.0137 {
		for lng := 103.6; lng <= 104.1; lng += 0.0211 {
			p := types.Point{Lat: lat, Lng: lng}
			first := g.CellOf(p)
			for i := 0; i < 3; i++ {
				if got := g.CellOf(p); got != first {
					t.Fatalf("CellOf(%v) changed between calls: %v vs %v", p, first, got)
				}
			}
			if first.X < 0 || first.X >= g.Size || first.Y < 0 || first.Y >= g.Size {
				t.Fatalf("cell %v out of range", first)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Sorting
// ---------------------------------------------------------------------------

type candidate struct {
	name string
	km   float64
}

func TestSortByDistance_StableOrder(t *testing.T) {
	items := []candidate{{"c", 5}, {"a", 1}, {"b", 3}, {"a2", 1}}
	SortByDistance(items, func(c candidate) float64 { return c.km })
	got := []string{items[0].name, items[1].name, items[2].name, items[3].name}
	want := []string{"a", "a2", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v", got)
		}
	}
}

func TestNearest(t *testing.T) {
	items := []candidate{{"c", 5}, {"a", 1}, {"b", 3}}
	got := Nearest(items, 2, func(c candidate) float64 { return c.km })
	if len(got) != 2 || got[0].name != "a" || got[1].name != "b" {
		t.Errorf("unexpected nearest %v", got)
	}
	if items[0].name != "c" {
		t.Errorf("input was mutated: %v", items)
	}
	if Nearest(items, 0, func(c candidate) float64 { return c.km }) != nil {
		t.Errorf("expected nil for n=0")
	}
}
