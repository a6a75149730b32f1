// README: Per-hour registry of pickup coordinates already handed out.
package greedy

import (
	"shiftroute/internal/geo"
	"shiftroute/internal/types"
)

// Registry remembers claimed pickups per hour for the lifetime of its
// dispatcher. It is never pruned and is guarded by the dispatcher lock.
type Registry struct {
	byHour map[int]map[geo.CoordKey]struct{}
}

func NewRegistry() *Registry {
	return &Registry{byHour: make(map[int]map[geo.CoordKey]struct{})}
}

func (r *Registry) Claim(hour int, p types.Point) {
	set, ok := r.byHour[hour]
	if !ok {
		set = make(map[geo.CoordKey]struct{})
		r.byHour[hour] = set
	}
	set[geo.KeyOf(p)] = struct{}{}
}

func (r *Registry) Claimed(hour int, p types.Point) bool {
	_, ok := r.byHour[hour][geo.KeyOf(p)]
	return ok
}

func (r *Registry) Len(hour int) int {
	return len(r.byHour[hour])
}
