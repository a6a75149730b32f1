// README: Fare, moving-cost and demand-factor formulas shared by both dispatchers.
package pricing

import "math"

// Rate is a flat metered fare: base plus a per-kilometre charge.
type Rate struct {
	BaseFare float64
	PerKm    float64
}

// DefaultRate is the fare both dispatchers quote for a drop-off leg.
var DefaultRate = Rate{BaseFare: 4.5, PerKm: 0.70}

func (r Rate) Fare(distanceKm float64) float64 {
	return r.BaseFare + r.PerKm*distanceKm
}

// Fare prices a leg with DefaultRate.
func Fare(distanceKm float64) float64 {
	return DefaultRate.Fare(distanceKm)
}

const (
	// MovingCostPerKm is charged against the reward of every move.
	MovingCostPerKm = 0.3
	// NeutralDemandFactor applies when no demand record matches a location.
	NeutralDemandFactor = 1.0
	// UnmappedPenalty is the reward of an action with no known coordinate.
	UnmappedPenalty = -10.0
	// BreakPenalty scores a candidate whose arrival falls in the break window.
	BreakPenalty = -10.0
)

func MovingCost(distanceKm float64) float64 {
	return distanceKm * MovingCostPerKm
}

// DemandFactor converts a demand-supply gap into a reward multiplier.
// Undersupplied spots (gap > 0) score 2 plus the gap capped at 3.
func DemandFactor(gap float64) float64 {
	if gap > 0 {
		return 2.0 + math.Min(math.Abs(gap), 3.0)
	}
	return math.Max(0.5, 1.0-math.Min(gap, 0.5))
}

// Reward is the demand factor net of the moving cost.
func Reward(factor, distanceKm float64) float64 {
	return factor - MovingCost(distanceKm)
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
