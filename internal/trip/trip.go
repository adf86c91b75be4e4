// Package trip models the spawn rules that inject new vehicles at birth
// cells: a Bernoulli trial per step for Random trips, or an unconditional
// fire every N steps for Fixed trips, both gated by an optional active
// window.
package trip

import (
	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// ID identifies a trip definition.
type ID int64

// Type distinguishes probabilistic spawning from fixed-interval spawning.
type Type int

const (
	Random Type = iota
	Fixed
)

func (t Type) String() string {
	if t == Fixed {
		return "fixed"
	}
	return "random"
}

// Trip declares a recurring vehicle-spawn rule at an origin cell, routed
// toward a destination, active for vehicles of a given agent type and
// behaviour.
type Trip struct {
	ID          ID
	Origin      grid.CellID
	Destination grid.CellID
	Agent       vehicle.AgentType
	Behaviour   behaviour.Type

	Kind Type
	// Probability is the per-step Bernoulli parameter for Random trips.
	Probability float64
	// Interval is the step count between unconditional spawns for Fixed
	// trips; a spawn fires when step mod Interval == 0.
	Interval int

	// StartStep and EndStep bound the trip's active window. A zero EndStep
	// means unbounded. Outside [StartStep, EndStep) the trip never fires.
	StartStep int
	EndStep   int
}

// Active reports whether the trip's window covers the given step.
func (t Trip) Active(step int) bool {
	if step < t.StartStep {
		return false
	}
	if t.EndStep > 0 && step >= t.EndStep {
		return false
	}
	return true
}

// ShouldFire decides whether this trip spawns a vehicle on the given step,
// consuming draw() exactly once for a Random trip whose window covers step
// (and not at all outside it) so RNG consumption stays deterministic in
// trip-ID order regardless of outcome.
func (t Trip) ShouldFire(step int, draw func() float64) bool {
	if !t.Active(step) {
		return false
	}
	switch t.Kind {
	case Fixed:
		if t.Interval <= 0 {
			return false
		}
		return step%t.Interval == 0
	default:
		return draw() < t.Probability
	}
}
