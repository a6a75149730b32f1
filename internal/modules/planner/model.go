// README: Planner request/response models for route optimization, drop-off evaluation and pickup recommendation.
package planner

import (
	"errors"
	"fmt"

	"shiftroute/internal/modules/greedy"
	"shiftroute/internal/modules/qlearning"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

var (
	ErrBadRequest  = errors.New("bad request")
	ErrComputation = errors.New("computation failed")
)

const (
	// MaxCandidates bounds one EvaluateDropoffs call.
	MaxCandidates = 50
	// MaxAlternates is the number of extra pickups RecommendPickups returns.
	MaxAlternates = 3
	// AlternateTravelBudget is the longest drive to an alternate pickup, in seconds.
	AlternateTravelBudget = 15 * 60
	// AlternateMinSeparationKm keeps alternates away from the primary pickup.
	AlternateMinSeparationKm = 0.5
)

type OptimizeRequest struct {
	Start     types.Point   `json:"start"`
	StartHour int           `json:"startHour"`
	EndHour   int           `json:"endHour"`
	Algorithm string        `json:"algorithm"`
	Break     *route.Window `json:"break,omitempty"`
	// Owner is the caller the route is stored for; empty skips history.
	Owner types.ID `json:"-"`
}

func (r OptimizeRequest) routeRequest() (route.Request, error) {
	switch r.Algorithm {
	case qlearning.Name, greedy.Name:
	default:
		return route.Request{}, fmt.Errorf("%w: algorithm must be %q or %q", ErrBadRequest, qlearning.Name, greedy.Name)
	}
	req := route.Request{
		Start:     r.Start,
		StartHour: r.StartHour,
		EndHour:   r.EndHour,
		Break:     breakOrDefault(r.Break),
	}
	if err := req.Validate(); err != nil {
		return route.Request{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return req, nil
}

type EvaluateRequest struct {
	Start      types.Point   `json:"start"`
	Candidates []types.Point `json:"candidates"`
	Hour       int           `json:"hour"`
	Break      *route.Window `json:"break,omitempty"`
}

func (r EvaluateRequest) validate() error {
	switch {
	case r.Start.IsZero():
		return fmt.Errorf("%w: start location is required", ErrBadRequest)
	case len(r.Candidates) == 0:
		return fmt.Errorf("%w: at least one candidate is required", ErrBadRequest)
	case len(r.Candidates) > MaxCandidates:
		return fmt.Errorf("%w: at most %d candidates", ErrBadRequest, MaxCandidates)
	}
	return validHourAndBreak(r.Hour, r.Break)
}

// DropoffEvaluation is one scored candidate. Distance and duration are zero
// when the candidate is unreachable.
type DropoffEvaluation struct {
	Location        types.Point `json:"location"`
	Score           float64     `json:"score"`
	Gap             float64     `json:"gap"`
	DistanceKm      float64     `json:"distanceKm"`
	DurationMinutes int         `json:"durationMinutes"`
	Arrival         string      `json:"arrival,omitempty"`
	InBreak         bool        `json:"inBreak"`
	Reachable       bool        `json:"reachable"`
}

type RecommendRequest struct {
	Dropoff types.Point   `json:"dropoff"`
	Hour    int           `json:"hour"`
	Break   *route.Window `json:"break,omitempty"`
}

func (r RecommendRequest) validate() error {
	if r.Dropoff.IsZero() {
		return fmt.Errorf("%w: drop-off location is required", ErrBadRequest)
	}
	return validHourAndBreak(r.Hour, r.Break)
}

type PickupOption struct {
	Location        types.Point `json:"location"`
	Gap             float64     `json:"gap"`
	DistanceKm      float64     `json:"distanceKm"`
	DurationMinutes int         `json:"durationMinutes"`
	Arrival         string      `json:"arrival,omitempty"`
	Reachable       bool        `json:"reachable"`

	arrivalHour int
}

type PickupRecommendation struct {
	Primary    PickupOption   `json:"primary"`
	Alternates []PickupOption `json:"alternates"`
	// Retried is set when the first recommendation arrived during the break.
	Retried bool `json:"retried"`
	InBreak bool `json:"inBreak"`
}

func breakOrDefault(w *route.Window) route.Window {
	if w == nil {
		return route.DefaultBreak()
	}
	return *w
}

func validHourAndBreak(hour int, w *route.Window) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour must be within 0-23", ErrBadRequest)
	}
	if w != nil && (w.Start < 0 || w.End > 24 || w.Start > w.End) {
		return fmt.Errorf("%w: break window must satisfy 0 <= start <= end <= 24", ErrBadRequest)
	}
	return nil
}
