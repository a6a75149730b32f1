// README: Q-learning dispatcher: offline episode training and pickup recommendation.
package qlearning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/types"
)

// Name identifies the policy in requests and stored routes.
const Name = "reinforcement"

var (
	ErrNotTrained = errors.New("dispatcher is not trained")
	ErrNoData     = errors.New("demand table is empty")
)

// Dispatcher owns its Q-table, action coordinates and random source. All
// exported methods are safe for concurrent use; they run one at a time.
type Dispatcher struct {
	table *demand.Table
	est   maps.Estimator
	opts  Options

	mu            sync.Mutex
	rng           *rand.Rand
	q             *QTable
	locations     map[Action]types.Point
	actionsByHour map[int][]Action
	trained       bool
}

// New creates an untrained dispatcher. Call Train before serving.
func New(table *demand.Table, est maps.Estimator, opts Options) *Dispatcher {
	if opts.Grid.Size <= 0 {
		opts.Grid = DefaultOptions().Grid
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Dispatcher{
		table:         table,
		est:           est,
		opts:          opts,
		rng:           rand.New(rand.NewSource(seed)),
		q:             NewQTable(),
		locations:     make(map[Action]types.Point),
		actionsByHour: make(map[int][]Action),
	}
}

// Train runs the configured episodes. It ignores cancellation of ctx so a
// started warm-up always completes; a second call is a no-op.
func (d *Dispatcher) Train(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trained {
		return nil
	}
	hours := d.table.Hours()
	if len(hours) == 0 {
		return ErrNoData
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	for i := 0; i < d.opts.Episodes; i++ {
		d.runEpisode(ctx, hours)
	}
	d.trained = true

	log.Info().
		Int("episodes", d.opts.Episodes).
		Int("q_entries", d.q.Len()).
		Int("actions", len(d.locations)).
		Dur("took", time.Since(start)).
		Msg("q-learning dispatcher trained")
	return nil
}

func (d *Dispatcher) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trained
}

func (d *Dispatcher) runEpisode(ctx context.Context, hours []int) {
	hour := hours[d.rng.Intn(len(hours))]
	records := d.table.AtHour(hour)
	pos := records[d.rng.Intn(len(records))].Position()

	for step := 0; step < d.opts.MaxSteps; step++ {
		state := d.stateOf(pos, hour)
		actions := d.possibleActions(hour)
		if len(actions) == 0 {
			return
		}

		var action Action
		if d.rng.Float64() < d.opts.TrainExplore {
			action = actions[d.rng.Intn(len(actions))]
		} else {
			action = d.q.Best(state, actions)
		}
		target := d.locations[action]

		est := d.est.Estimate(ctx, pos, target)
		if !est.Reachable() {
			continue
		}

		reward := d.reward(action, hour, est.DistanceKm())
		nextHour := (hour + int(math.Floor(est.DurationSeconds/3600))) % 24
		next := d.stateOf(target, nextHour)
		maxNext := d.q.Max(next, d.possibleActions(nextHour))

		old := d.q.Get(state, action)
		d.q.Set(state, action, old+d.opts.Alpha*(reward+d.opts.Gamma*maxNext-old))

		pos, hour = target, nextHour
	}
}

func (d *Dispatcher) stateOf(p types.Point, hour int) State {
	return State{Cell: d.opts.Grid.CellOf(p), Hour: hour}
}

// possibleActions lists the distinct cells of records at hour that carry
// drop-off suggestions, or of all records at hour when none do. Coordinates
// of newly seen actions are recorded before the list is returned.
func (d *Dispatcher) possibleActions(hour int) []Action {
	if actions, ok := d.actionsByHour[hour]; ok {
		return actions
	}

	records := d.table.AtHour(hour)
	candidates := make([]demand.Record, 0, len(records))
	for _, r := range records {
		if r.HasDropoffs() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		candidates = records
	}

	seen := make(map[Action]bool, len(candidates))
	var actions []Action
	for _, r := range candidates {
		a := Action(d.opts.Grid.CellOf(r.Position()))
		if seen[a] {
			continue
		}
		seen[a] = true
		actions = append(actions, a)
		if _, ok := d.locations[a]; !ok {
			d.locations[a] = r.Position()
		}
	}
	d.actionsByHour[hour] = actions
	return actions
}

func (d *Dispatcher) reward(a Action, hour int, distanceKm float64) float64 {
	coords, ok := d.locations[a]
	if !ok {
		return pricing.UnmappedPenalty
	}
	factor := pricing.NeutralDemandFactor
	if rec, ok := d.table.Lookup(hour, coords); ok {
		factor = pricing.DemandFactor(rec.Gap)
	}
	return pricing.Reward(factor, distanceKm)
}

// Recommend picks the next pickup location from pos at hour. The input is
// returned unchanged when the hour offers no action.
func (d *Dispatcher) Recommend(ctx context.Context, pos types.Point, hour int) (types.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trained {
		return types.Point{}, ErrNotTrained
	}
	return d.recommend(pos, hour), nil
}

func (d *Dispatcher) recommend(pos types.Point, hour int) types.Point {
	state := d.stateOf(pos, hour)
	actions := d.possibleActions(hour)
	if len(actions) == 0 {
		return pos
	}

	var chosen Action
	switch {
	case d.rng.Float64() < d.opts.Explore:
		chosen = actions[d.rng.Intn(len(actions))]
	case d.allNonPositive(state, actions):
		chosen = d.demandWeighted(state, hour, actions)
	default:
		chosen = d.q.Best(state, actions)
	}

	if p, ok := d.locations[chosen]; ok {
		return p
	}
	return pos
}

func (d *Dispatcher) allNonPositive(s State, actions []Action) bool {
	for _, a := range actions {
		if d.q.Get(s, a) > 0 {
			return false
		}
	}
	return true
}

// demandWeighted favours oversupplied spots when the table has nothing
// positive to offer: Q + 0.5*max(0, -gap).
func (d *Dispatcher) demandWeighted(s State, hour int, actions []Action) Action {
	var chosen Action
	found := false
	best := math.Inf(-1)
	for _, a := range actions {
		gap := 0.0
		if coords, ok := d.locations[a]; ok {
			gap = d.table.GapAt(hour, coords)
		}
		score := d.q.Get(s, a) + 0.5*math.Max(0, -gap)
		if score > best {
			chosen, best, found = a, score, true
		}
	}
	if !found {
		return actions[d.rng.Intn(len(actions))]
	}
	return chosen
}

// QValue reads the learned value of a pair, DefaultQ when never updated.
func (d *Dispatcher) QValue(s State, a Action) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Get(s, a)
}

// MaxQ is the best value reachable from s, as used for the update target.
func (d *Dispatcher) MaxQ(s State) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Max(s, d.possibleActions(s.Hour))
}

// Snapshot reports the size of the learned policy.
func (d *Dispatcher) Snapshot() (entries, actions int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Len(), len(d.locations)
}
