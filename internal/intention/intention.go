// Package intention runs the Nagel-Schreckenberg accelerate / choose-
// direction / brake / randomise pipeline that turns a vehicle's current
// state into a proposed next cell, without yet committing it.
package intention

import (
	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// Intention is a vehicle's proposed move for the current step. It is not
// yet safe to apply: the resolve package may still veto or redirect it
// before movement commits anything.
type Intention struct {
	VehicleID vehicle.ID
	FromCell  grid.CellID
	ToCell    grid.CellID
	// Maneuver is the direction taken out of FromCell's successor slots
	// on the first hop, used by resolve to classify lane changes.
	Maneuver grid.Direction
	// Hops is the sequence of path vertices the vehicle intends to cross
	// this step, FromCell excluded, ToCell last. Movement needs every
	// intermediate cell to shift the vehicle's tail through correctly.
	Hops        []grid.CellID
	TargetSpeed int
	// Braked records whether the brake or randomise stage reduced the
	// candidate speed below what acceleration alone proposed.
	Braked bool
}

// World is the read-only context the intention stage needs: the road
// network, per-cell occupancy, and a way to ask whether a cell's signal
// currently permits entry.
type World struct {
	Roads     *grid.Roads
	Occupied  map[grid.CellID]vehicle.ID
	SignalFor func(cell grid.CellID) (signal.Type, bool)
}

// Build runs the four-stage pipeline for one vehicle and returns its
// intention. draw supplies the session's seeded random source for the
// randomise stage.
func Build(v *vehicle.Vehicle, w World, draw func() float64) (Intention, error) {
	cell, ok := w.Roads.GetCell(v.HeadCell)
	if !ok {
		return Intention{}, grid.ErrUnknownCell
	}

	// A bus still relaxing at a transit stop proposes no movement; the
	// countdown itself is decremented by movement on commit.
	if v.Agent == vehicle.Bus && v.RelaxCountdown > 0 {
		return Intention{VehicleID: v.ID, FromCell: v.HeadCell, ToCell: v.HeadCell}, nil
	}

	params := behaviour.ParametersFor(v.Behaviour)

	// 1. Accelerate: speed grows by one, capped by the archetype and the
	// head cell's own speed limit.
	candidate := v.Speed + 1
	candidate = params.EffectiveSpeedLimit(candidate, cell.SpeedLimit())

	// 2 & 3. Choose direction and brake, fused into a single forward
	// walk: the vehicle advances one path hop at a time, up to
	// `candidate` hops, stopping the instant a hop would enter a banned,
	// occupied, or signal-closed cell, or would close the archetype's
	// minimum safe gap to whatever it finds ahead.
	hops, maneuver, speed, braked := walkPath(v, w, candidate, params)

	// 4. Randomise: with probability p_slow, shed one unit of speed.
	if speed > 0 && draw() < params.SlowdownProbability {
		speed--
		hops = hops[:speed]
		braked = true
	}

	toCell := v.HeadCell
	if len(hops) > 0 {
		toCell = hops[len(hops)-1]
	}

	return Intention{
		VehicleID:   v.ID,
		FromCell:    v.HeadCell,
		ToCell:      toCell,
		Maneuver:    maneuver,
		Hops:        hops,
		TargetSpeed: speed,
		Braked:      braked,
	}, nil
}

// walkPath advances up to maxHops cells along v's remaining path,
// stopping at the first hazard or once the archetype's minimum safe
// distance to an occupied cell would be violated.
func walkPath(v *vehicle.Vehicle, w World, maxHops int, params behaviour.Parameters) ([]grid.CellID, grid.Direction, int, bool) {
	hops := make([]grid.CellID, 0, maxHops)
	maneuver := grid.Forward
	braked := false
	cur, _ := w.Roads.GetCell(v.HeadCell)
	remainingToHazard := -1

	for len(hops) < maxHops {
		next, ok := peekAhead(v, len(hops))
		if !ok {
			break
		}
		nextCell, ok := w.Roads.GetCell(next)
		if !ok {
			break
		}
		if nextCell.State() == grid.StateBanned {
			braked = true
			break
		}
		if occupant, taken := w.Occupied[next]; taken && occupant != v.ID {
			remainingToHazard = len(hops)
			braked = true
			break
		}
		if aspect, gated := w.SignalFor(next); gated && !aspect.Permits() {
			braked = true
			break
		}
		if len(hops) == 0 {
			if d, ok := successorDirection(cur, next); ok {
				maneuver = d
			}
		}
		hops = append(hops, next)
		cur = nextCell
	}

	if remainingToHazard >= 0 && remainingToHazard < params.MinSafeDistance {
		trim := params.MinSafeDistance - remainingToHazard
		if trim >= len(hops) {
			hops = hops[:0]
		} else {
			hops = hops[:len(hops)-trim]
		}
		braked = true
	}

	return hops, maneuver, len(hops), braked
}

// peekAhead returns the path vertex hopsFromHead positions past the
// vehicle's current head cell, or false once the path runs out.
func peekAhead(v *vehicle.Vehicle, hopsFromHead int) (grid.CellID, bool) {
	base := -1
	for i, id := range v.Path.Vertices {
		if id == v.HeadCell {
			base = i
			break
		}
	}
	if base < 0 {
		return 0, false
	}
	idx := base + 1 + hopsFromHead
	if idx >= len(v.Path.Vertices) {
		return 0, false
	}
	return v.Path.Vertices[idx], true
}

func successorDirection(c grid.Cell, target grid.CellID) (grid.Direction, bool) {
	for _, d := range []grid.Direction{grid.Forward, grid.Left, grid.Right} {
		if c.Successor(d) == target {
			return d, true
		}
	}
	return grid.Forward, false
}
