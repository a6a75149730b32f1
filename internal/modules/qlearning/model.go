// README: Q-learning state/action keys, action-value table and tuning options.
package qlearning

import (
	"math"

	"shiftroute/internal/geo"
)

// DefaultQ is the value of any state/action pair not yet updated.
const DefaultQ = 0.1

// State is a decision point: where the vehicle is and at which hour.
type State struct {
	Cell geo.Cell
	Hour int
}

// Action is a destination cell.
type Action geo.Cell

type QTable struct {
	values map[State]map[Action]float64
}

func NewQTable() *QTable {
	return &QTable{values: make(map[State]map[Action]float64)}
}

func (t *QTable) Get(s State, a Action) float64 {
	if v, ok := t.values[s][a]; ok {
		return v
	}
	return DefaultQ
}

func (t *QTable) Set(s State, a Action, v float64) {
	row, ok := t.values[s]
	if !ok {
		row = make(map[Action]float64)
		t.values[s] = row
	}
	row[a] = v
}

// Best returns the first action holding the maximum value. actions must not
// be empty.
func (t *QTable) Best(s State, actions []Action) Action {
	best, bestV := actions[0], math.Inf(-1)
	for _, a := range actions {
		if v := t.Get(s, a); v > bestV {
			best, bestV = a, v
		}
	}
	return best
}

// Max is the highest value among actions, 0 when there are none.
func (t *QTable) Max(s State, actions []Action) float64 {
	if len(actions) == 0 {
		return 0
	}
	return t.Get(s, t.Best(s, actions))
}

// Len counts the stored state/action pairs.
func (t *QTable) Len() int {
	n := 0
	for _, row := range t.values {
		n += len(row)
	}
	return n
}

func (t *QTable) each(fn func(State, Action, float64)) {
	for s, row := range t.values {
		for a, v := range row {
			fn(s, a, v)
		}
	}
}

type Options struct {
	Grid geo.Grid
	// Episodes and MaxSteps bound offline training.
	Episodes int
	MaxSteps int
	Alpha    float64
	Gamma    float64
	// TrainExplore is the exploration rate during training, Explore the
	// rate when serving recommendations.
	TrainExplore float64
	Explore      float64
	// Seed feeds the random source; 0 picks a time-based seed.
	Seed int64
	// Parallelism bounds concurrent estimator calls per decision.
	Parallelism int
}

func DefaultOptions() Options {
	return Options{
		Grid:         geo.DefaultGrid(),
		Episodes:     50,
		MaxSteps:     10,
		Alpha:        0.1,
		Gamma:        0.9,
		TrainExplore: 0.5,
		Explore:      0.1,
		Parallelism:  8,
	}
}
