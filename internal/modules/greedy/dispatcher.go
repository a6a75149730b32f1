// README: Greedy dispatcher: highest-fare drop-offs and nearest unclaimed undersupplied pickups.
package greedy

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"shiftroute/internal/geo"
	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

const Name = "greedy"

type Options struct {
	// Seed feeds the random source; 0 picks a time-based seed.
	Seed int64
	// Parallelism bounds concurrent estimator calls per decision.
	Parallelism int
	// DropoffPool and PickupPool size the nearest-candidate pools the
	// random fallbacks draw from.
	DropoffPool int
	PickupPool  int
}

func DefaultOptions() Options {
	return Options{Parallelism: 8, DropoffPool: 20, PickupPool: 7}
}

type Dropoff struct {
	Location types.Point   `json:"location"`
	Revenue  float64       `json:"revenue"`
	Estimate maps.Estimate `json:"estimate"`
}

// Moved is false for the stay-put answer.
func (d Dropoff) Moved() bool {
	return d.Estimate.Reachable() && d.Estimate.DistanceMeters > 0
}

type Pickup struct {
	Location types.Point   `json:"location"`
	Estimate maps.Estimate `json:"estimate"`
}

// Dispatcher owns the claimed-pickup registry and its random source; exported
// methods run one at a time.
type Dispatcher struct {
	table *demand.Table
	est   maps.Estimator
	opts  Options

	mu      sync.Mutex
	rng     *rand.Rand
	claimed *Registry
}

func New(table *demand.Table, est maps.Estimator, opts Options) *Dispatcher {
	def := DefaultOptions()
	if opts.DropoffPool <= 0 {
		opts.DropoffPool = def.DropoffPool
	}
	if opts.PickupPool <= 0 {
		opts.PickupPool = def.PickupPool
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Dispatcher{
		table:   table,
		est:     est,
		opts:    opts,
		rng:     rand.New(rand.NewSource(seed)),
		claimed: NewRegistry(),
	}
}

// BestDropoff picks where to drop a passenger picked up at from.
func (d *Dispatcher) BestDropoff(ctx context.Context, from types.Point, hour int) (Dropoff, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Dropoff{}, err
	}
	return d.bestDropoff(ctx, from, hour), nil
}

// BestPickup claims the next pickup after a drop-off at from. It returns nil
// when no reachable unclaimed candidate exists for the hour.
func (d *Dispatcher) BestPickup(ctx context.Context, from types.Point, hour int) (*Pickup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.bestPickup(ctx, from, hour), nil
}

// ClaimedCount reports how many pickups were handed out for hour.
func (d *Dispatcher) ClaimedCount(hour int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimed.Len(hour)
}

type candidate struct {
	point types.Point
	gap   float64
	est   maps.Estimate
}

func byDistance(c candidate) float64 {
	return c.est.DistanceMeters
}

func (d *Dispatcher) evaluate(ctx context.Context, from types.Point, points []types.Point, gaps []float64) []candidate {
	estimates := maps.EstimateAll(ctx, d.est, from, points, d.opts.Parallelism)
	out := make([]candidate, 0, len(points))
	for i, est := range estimates {
		if !est.Reachable() {
			continue
		}
		c := candidate{point: points[i], est: est}
		if gaps != nil {
			c.gap = gaps[i]
		}
		out = append(out, c)
	}
	return out
}

func (d *Dispatcher) bestDropoff(ctx context.Context, from types.Point, hour int) Dropoff {
	suggestions := d.suggestionsFor(from, hour)
	if len(suggestions) > 0 {
		cands := d.evaluate(ctx, from, suggestions, nil)
		best := -1
		var bestRevenue float64
		for i, c := range cands {
			if revenue := pricing.Fare(c.est.DistanceKm()); best < 0 || revenue > bestRevenue {
				best, bestRevenue = i, revenue
			}
		}
		if best >= 0 {
			return Dropoff{Location: cands[best].point, Revenue: bestRevenue, Estimate: cands[best].est}
		}
	}
	return d.randomUndersupplied(ctx, from, hour)
}

// suggestionsFor looks for suggested drop-offs at the same rounded
// coordinate: the current hour first, then later hours, then earlier ones.
func (d *Dispatcher) suggestionsFor(from types.Point, hour int) []types.Point {
	lookup := func(h int) []types.Point {
		if rec, ok := d.table.Lookup(h, from); ok && rec.HasDropoffs() {
			return rec.Dropoffs
		}
		return nil
	}
	if pts := lookup(hour); pts != nil {
		return pts
	}
	for h := hour + 1; h <= d.table.MaxHour(); h++ {
		if pts := lookup(h); pts != nil {
			return pts
		}
	}
	for h := hour - 1; h >= d.table.MinHour(); h-- {
		if pts := lookup(h); pts != nil {
			return pts
		}
	}
	return nil
}

// randomUndersupplied draws among the nearest reachable positive-gap spots
// of the hour, or stays put when there are none. Each coordinate enters the
// pool once however many rows the dataset holds for it.
func (d *Dispatcher) randomUndersupplied(ctx context.Context, from types.Point, hour int) Dropoff {
	var points []types.Point
	for _, r := range d.table.DistinctAtHour(hour) {
		if r.Gap > 0 {
			points = append(points, r.Position())
		}
	}
	pool := geo.Nearest(d.evaluate(ctx, from, points, nil), d.opts.DropoffPool, byDistance)
	if len(pool) == 0 {
		return Dropoff{Location: from}
	}
	c := pool[d.rng.Intn(len(pool))]
	return Dropoff{Location: c.point, Revenue: pricing.Fare(c.est.DistanceKm()), Estimate: c.est}
}

func (d *Dispatcher) bestPickup(ctx context.Context, from types.Point, hour int) *Pickup {
	fromKey := geo.KeyOf(from)
	var points []types.Point
	var gaps []float64
	for _, r := range d.table.DistinctAtHour(hour) {
		p := r.Position()
		if geo.KeyOf(p) == fromKey || d.claimed.Claimed(hour, p) {
			continue
		}
		points = append(points, p)
		gaps = append(gaps, r.Gap)
	}
	if len(points) == 0 {
		return nil
	}

	reachable := d.evaluate(ctx, from, points, gaps)
	var undersupplied []candidate
	for _, c := range reachable {
		if c.gap > 0 {
			undersupplied = append(undersupplied, c)
		}
	}
	pool := undersupplied
	if len(pool) == 0 {
		pool = reachable
	}
	pool = geo.Nearest(pool, d.opts.PickupPool, byDistance)
	if len(pool) == 0 {
		return nil
	}

	c := pool[d.rng.Intn(len(pool))]
	d.claimed.Claim(hour, c.point)
	return &Pickup{Location: c.point, Estimate: c.est}
}

// AssembleRoute plans a full shift. When no pickup is available the cursor
// waits an hour instead of ending the shift.
func (d *Dispatcher) AssembleRoute(ctx context.Context, req route.Request) (route.Route, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := route.Assembler{Policy: policy{d}, OnNoPickup: route.WaitAnHour}.Assemble(ctx, req)
	if err != nil {
		return route.Route{}, err
	}
	r.Algorithm = Name
	return r, nil
}

// policy runs under the dispatcher lock held by AssembleRoute.
type policy struct {
	d *Dispatcher
}

func (p policy) NextDropoff(ctx context.Context, from types.Point, hour int) (route.Leg, bool, error) {
	drop := p.d.bestDropoff(ctx, from, hour)
	if !drop.Moved() {
		return route.Leg{}, false, nil
	}
	return route.Leg{To: drop.Location, Estimate: drop.Estimate, Revenue: drop.Revenue}, true, nil
}

func (p policy) NextPickup(ctx context.Context, from types.Point, hour int) (route.Leg, bool, error) {
	pick := p.d.bestPickup(ctx, from, hour)
	if pick == nil {
		return route.Leg{}, false, nil
	}
	return route.Leg{To: pick.Location, Estimate: pick.Estimate}, true, nil
}
