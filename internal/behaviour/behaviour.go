// Package behaviour assigns NaSch tuning parameters (slowdown
// probability, speed ceiling, minimum safe gap) to a closed set of driver
// archetypes. No politeness or aggressiveness value is carried.
package behaviour

import "github.com/samber/lo"

// Type names a driver archetype.
type Type int

const (
	Undefined Type = iota
	Block
	Aggressive
	Cooperative
	LimitSpeedByTrip
)

func (t Type) String() string {
	switch t {
	case Block:
		return "block"
	case Aggressive:
		return "aggressive"
	case Cooperative:
		return "cooperative"
	case LimitSpeedByTrip:
		return "limit_speed_by_trip"
	default:
		return "undefined"
	}
}

// Parameters is the closed set of tunables a Type maps to.
type Parameters struct {
	// SlowdownProbability is p_slow in the NaSch randomisation step.
	SlowdownProbability float64
	// SpeedLimit caps a vehicle's speed in cells/step, independent of
	// any cell speed limit. 0 means no archetype-level cap.
	SpeedLimit int
	// MinSafeDistance is the minimum distance, in cells, a vehicle of this
	// archetype keeps between its head and an occupied cell ahead: 1 lets
	// it stop directly behind that cell, 0 adds no check beyond never
	// entering an occupied cell.
	MinSafeDistance int
}

// table mirrors the archetype tuning used by the originating simulator,
// adjusted for this project's own slowdown constants (cooperative 0.3,
// aggressive 0.1) rather than the source values. Conflict-arbitration
// priority is not archetype-dependent: spec.md §4.4 orders tie-breaks as
// signals, declared zone rule, lane role, intention path length, then
// vehicle ID, with no behaviour-based bias.
var table = map[Type]Parameters{
	Block:            {SlowdownProbability: 1.0, SpeedLimit: 0, MinSafeDistance: 0},
	Aggressive:       {SlowdownProbability: 0.1, SpeedLimit: 5, MinSafeDistance: 0},
	Cooperative:      {SlowdownProbability: 0.3, SpeedLimit: 4, MinSafeDistance: 1},
	LimitSpeedByTrip: {SlowdownProbability: 0.2, SpeedLimit: 3, MinSafeDistance: 1},
	Undefined:        {SlowdownProbability: 0.3, SpeedLimit: 2, MinSafeDistance: 0},
}

// ParametersFor returns the tuning for a driver archetype.
func ParametersFor(t Type) Parameters {
	if p, ok := table[t]; ok {
		return p
	}
	return table[Undefined]
}

// EffectiveSpeedLimit clamps a candidate speed to this archetype's cap
// (when one is set) and to the cell's own speed limit.
func (p Parameters) EffectiveSpeedLimit(candidate, cellLimit int) int {
	max := cellLimit
	if p.SpeedLimit > 0 && (max <= 0 || p.SpeedLimit < max) {
		max = p.SpeedLimit
	}
	if max <= 0 {
		return candidate
	}
	return lo.Clamp(candidate, 0, max)
}

// RandomType draws Cooperative with probability ratioCooperative,
// Aggressive with probability ratioAggressive, and Block otherwise,
// using the session's seeded RNG via draw.
func RandomType(draw func() float64, ratioCooperative, ratioAggressive float64) Type {
	r := draw()
	switch {
	case r < ratioCooperative:
		return Cooperative
	case r < ratioCooperative+ratioAggressive:
		return Aggressive
	default:
		return Block
	}
}
