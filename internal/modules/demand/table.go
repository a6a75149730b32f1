// README: Immutable demand table indexed by hour and by rounded coordinate.
package demand

import (
	"slices"

	"shiftroute/internal/geo"
	"shiftroute/internal/types"
)

type hourKey struct {
	hour int
	key  geo.CoordKey
}

// Table is built once at load time and only read afterwards, so it is safe
// for concurrent use by any number of dispatchers.
type Table struct {
	records []Record
	byHour  map[int][]Record
	unique  map[int][]Record
	byCoord map[hourKey]int
	hours   []int
}

func NewTable(records []Record) *Table {
	t := &Table{
		records: slices.Clone(records),
		byHour:  make(map[int][]Record),
		unique:  make(map[int][]Record),
		byCoord: make(map[hourKey]int),
	}
	for i, r := range t.records {
		t.byHour[r.Hour] = append(t.byHour[r.Hour], r)
		k := hourKey{hour: r.Hour, key: geo.KeyOf(r.Position())}
		// first record wins for a rounded coordinate
		if _, ok := t.byCoord[k]; !ok {
			t.byCoord[k] = i
			t.unique[r.Hour] = append(t.unique[r.Hour], r)
		}
	}
	for h := range t.byHour {
		t.hours = append(t.hours, h)
	}
	slices.Sort(t.hours)
	return t
}

func (t *Table) Len() int {
	return len(t.records)
}

// AtHour returns the records observed at hour in load order. Callers must
// not modify the returned slice.
func (t *Table) AtHour(hour int) []Record {
	return t.byHour[hour]
}

// DistinctAtHour is AtHour with one record per rounded coordinate, the same
// record Lookup returns. Rows repeated across weeks or days collapse into it.
func (t *Table) DistinctAtHour(hour int) []Record {
	return t.unique[hour]
}

// Lookup finds the record at hour whose coordinate matches p after rounding
// to geo.CoordPrecision decimals.
func (t *Table) Lookup(hour int, p types.Point) (Record, bool) {
	i, ok := t.byCoord[hourKey{hour: hour, key: geo.KeyOf(p)}]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

// GapAt returns the demand-supply gap at (hour, p), or 0 when no record matches.
func (t *Table) GapAt(hour int, p types.Point) float64 {
	if r, ok := t.Lookup(hour, p); ok {
		return r.Gap
	}
	return 0
}

// Hours lists the hours that have at least one record, ascending.
func (t *Table) Hours() []int {
	return slices.Clone(t.hours)
}

func (t *Table) MinHour() int {
	if len(t.hours) == 0 {
		return 0
	}
	return t.hours[0]
}

func (t *Table) MaxHour() int {
	if len(t.hours) == 0 {
		return 0
	}
	return t.hours[len(t.hours)-1]
}
