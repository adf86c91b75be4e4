// Package vehicle models a simulated vehicle's static identity and
// mutable per-step state: the cells it occupies, its speed, its route,
// and the countdown that gates bus relaxation stops.
package vehicle

import (
	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/router"
)

// ID identifies a vehicle.
type ID int64

// AgentType distinguishes ordinary cars from transit vehicles, which
// additionally relax at the transit cells listed in their TransitCells.
type AgentType int

const (
	Car AgentType = iota
	Bus
)

func (a AgentType) String() string {
	if a == Bus {
		return "bus"
	}
	return "car"
}

// Vehicle is a single simulated agent. HeadCell is the cell occupied by
// the vehicle's front; TailCells lists the cells occupied by its body,
// ordered from the cell immediately behind the head to the rearmost.
type Vehicle struct {
	ID        ID
	Agent     AgentType
	Behaviour behaviour.Type

	HeadCell  grid.CellID
	TailCells []grid.CellID

	Speed int

	Destination grid.CellID
	Path        router.Path
	pathIdx     int

	// RelaxCountdown counts steps remaining at a transit stop before a
	// bus may depart for its next transit cell.
	RelaxCountdown int
	// TransitCells lists the cells at which a Bus pauses for RelaxDuration
	// steps before resuming. Unused by Car agents.
	TransitCells  []grid.CellID
	RelaxDuration int

	// LastDirection is the successor slot taken on the most recent move,
	// kept for snapshot logging.
	LastDirection grid.Direction
	// LastAngle is the heading, in radians, toward the cell last entered.
	LastAngle float64

	// IsConflictParticipant is set by Session.Step, from the resolver's
	// conflicts, for every step in which
	// this vehicle appeared on either side of a detected conflict, cleared
	// otherwise; purely observational, consulted only by snapshot/logging
	// consumers, never by the pipeline itself.
	IsConflictParticipant bool
	// TravelTime counts the number of committed steps this vehicle has
	// existed for, accumulated the way the teacher's TrafficManager sums
	// per-vehicle travel time for its benchmark metrics.
	TravelTime int
	Stuck      int
}

// IsTransitStop reports whether cell is one of the vehicle's configured
// transit stops.
func (v *Vehicle) IsTransitStop(cell grid.CellID) bool {
	for _, c := range v.TransitCells {
		if c == cell {
			return true
		}
	}
	return false
}

// IsStuckBeyond reports whether the vehicle has held at speed zero for more
// than maxSteps consecutive steps. maxSteps <= 0 disables the report.
func (v *Vehicle) IsStuckBeyond(maxSteps int) bool {
	return maxSteps > 0 && v.Stuck > maxSteps
}

// BodyLength is the number of cells the vehicle occupies, head included.
func (v *Vehicle) BodyLength() int { return 1 + len(v.TailCells) }

// Cells returns every cell the vehicle currently occupies, head first.
func (v *Vehicle) Cells() []grid.CellID {
	out := make([]grid.CellID, 0, v.BodyLength())
	out = append(out, v.HeadCell)
	out = append(out, v.TailCells...)
	return out
}

// NextOnPath returns the next cell along the vehicle's current path after
// its head, and whether one remains.
func (v *Vehicle) NextOnPath() (grid.CellID, bool) {
	if v.pathIdx+1 >= len(v.Path.Vertices) {
		return 0, false
	}
	return v.Path.Vertices[v.pathIdx+1], true
}

// AdvancePathCursor moves the path cursor forward when the vehicle's head
// has actually entered the next path vertex.
func (v *Vehicle) AdvancePathCursor() {
	if v.pathIdx+1 < len(v.Path.Vertices) {
		v.pathIdx++
	}
}

// SetPath installs a freshly computed route, resetting the path cursor to
// wherever the vehicle's current head cell falls within it (0 if the head
// is, unexpectedly, absent from the new path).
func (v *Vehicle) SetPath(p router.Path) {
	v.Path = p
	v.pathIdx = 0
	for i, id := range p.Vertices {
		if id == v.HeadCell {
			v.pathIdx = i
			break
		}
	}
}

// HasValidPath reports whether the vehicle's current path still contains
// its head cell, i.e. whether it can keep following it without rerouting.
func (v *Vehicle) HasValidPath() bool {
	for _, id := range v.Path.Vertices {
		if id == v.HeadCell {
			return true
		}
	}
	return false
}

// ReachedDestination reports whether the vehicle's head cell is its
// declared destination.
func (v *Vehicle) ReachedDestination() bool {
	return v.HeadCell == v.Destination
}

// ShiftTail pushes newHead onto the front of the body: the old head
// becomes the first tail cell and the rearmost cell is dropped, so the
// body length never changes. A vehicle with no tail only moves its head.
func (v *Vehicle) ShiftTail(newHead grid.CellID) {
	oldHead := v.HeadCell
	v.HeadCell = newHead
	if len(v.TailCells) == 0 {
		return
	}
	v.TailCells = append([]grid.CellID{oldHead}, v.TailCells[:len(v.TailCells)-1]...)
}
