// Package movement commits resolved intentions: it shifts each vehicle's
// body along its taken hops, recomputes the occupancy delta, handles bus
// relaxation stops, and flags vehicles that reached a death cell for
// removal after the commit sweep.
package movement

import (
	"github.com/pkg/errors"

	"github.com/lukaslovas/microtrafficsim/internal/geom"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/intention"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// ErrInvariantViolation is the spec.md §7 InvariantViolation sentinel: a
// commit would have claimed a cell another committed vehicle still holds.
// Seeing this is a bug, never an expected outcome of valid input.
var ErrInvariantViolation = errors.New("movement: invariant violation")

// Result is the occupancy delta and bookkeeping produced by committing one
// vehicle's intention.
type Result struct {
	VehicleID vehicle.ID
	Freed     []grid.CellID
	Claimed   []grid.CellID
	Despawn   bool
}

// Commit applies a single accepted (possibly truncated) intention to v,
// mutating its head/tail/speed/stuck-counter/relax state in place, and
// reports which cells were freed and newly claimed. roads supplies cell
// zone types (for death detection) and points (for the bearing
// recomputation feeding LastAngle); bus relax stops come from the
// vehicle's own TransitCells.
func Commit(v *vehicle.Vehicle, in intention.Intention, roads *grid.Roads) (Result, error) {
	if in.VehicleID != 0 && in.VehicleID != v.ID {
		return Result{}, errors.Errorf("movement: intention for vehicle %d applied to vehicle %d", in.VehicleID, v.ID)
	}

	oldCells := v.Cells()
	v.TravelTime++

	if v.Agent == vehicle.Bus && v.RelaxCountdown > 0 {
		v.RelaxCountdown--
		return Result{VehicleID: v.ID}, nil
	}

	fromCell, haveFrom := roads.GetCell(v.HeadCell)

	for _, hop := range in.Hops {
		v.ShiftTail(hop)
		v.AdvancePathCursor()
	}
	if len(in.Hops) > 0 {
		v.LastDirection = in.Maneuver
		if toCell, ok := roads.GetCell(v.HeadCell); ok && haveFrom {
			v.LastAngle = geom.Bearing(fromCell.Point(), toCell.Point())
		}
	}
	v.Speed = in.TargetSpeed

	if in.TargetSpeed == 0 {
		v.Stuck++
	} else {
		v.Stuck = 0
	}

	if v.Agent == vehicle.Bus && v.RelaxDuration > 0 && v.IsTransitStop(v.HeadCell) && len(in.Hops) > 0 {
		v.RelaxCountdown = v.RelaxDuration
	}

	newCells := v.Cells()
	freed := difference(oldCells, newCells)
	claimed := difference(newCells, oldCells)

	despawn := false
	if headCell, ok := roads.GetCell(v.HeadCell); ok && headCell.ZoneType() == grid.ZoneDeath {
		despawn = true
	}

	return Result{VehicleID: v.ID, Freed: freed, Claimed: claimed, Despawn: despawn}, nil
}

// Apply folds a Result into a shared occupancy index, returning
// ErrInvariantViolation if a claimed cell is already held by a different
// vehicle than the one releasing it this same step.
func Apply(occupancy map[grid.CellID]vehicle.ID, r Result) error {
	for _, cell := range r.Freed {
		if occupancy[cell] == r.VehicleID {
			delete(occupancy, cell)
		}
	}
	for _, cell := range r.Claimed {
		if holder, taken := occupancy[cell]; taken && holder != r.VehicleID {
			return errors.Wrapf(ErrInvariantViolation, "cell %d already held by vehicle %d, cannot assign to %d", cell, holder, r.VehicleID)
		}
		occupancy[cell] = r.VehicleID
	}
	return nil
}

func difference(a, b []grid.CellID) []grid.CellID {
	inB := make(map[grid.CellID]bool, len(b))
	for _, c := range b {
		inB[c] = true
	}
	var out []grid.CellID
	for _, c := range a {
		if !inB[c] {
			out = append(out, c)
		}
	}
	return out
}
