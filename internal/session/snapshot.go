package session

import (
	"sort"

	"github.com/lukaslovas/microtrafficsim/internal/geom"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// VehicleRow is one vehicle's state at the end of a committed step, in the
// shape spec.md §6 names for the CSV-friendly vehicle record.
type VehicleRow struct {
	Step      int
	ID        vehicle.ID
	Type      vehicle.AgentType
	LastSpeed int
	LastAngle float64
	LastCell  grid.CellID
}

// LightRow is one signal group's state at the end of a committed step, in
// the shape spec.md §6 names for the CSV-friendly light record.
type LightRow struct {
	PhaseStep int
	Step      int
	LightID   signal.ID
	GroupID   signal.GroupID
	X, Y      float64
	Signal    signal.Type
}

// Snapshot is the full result of one committed Session.Step call.
type Snapshot struct {
	Step     int
	Vehicles []VehicleRow
	Lights   []LightRow
}

func (s *Session) buildSnapshot() Snapshot {
	ids := s.sortedVehicleIDs()
	vehicles := make([]VehicleRow, 0, len(ids))
	for _, id := range ids {
		v := s.vehicles[id]
		vehicles = append(vehicles, VehicleRow{
			Step:      s.step,
			ID:        id,
			Type:      v.Agent,
			LastSpeed: v.Speed,
			LastAngle: v.LastAngle,
			LastCell:  v.HeadCell,
		})
	}

	var lights []LightRow
	for _, lid := range s.sortedLightIDs() {
		l := s.lights[lid]
		groups := l.Groups()
		gids := make([]signal.GroupID, 0, len(groups))
		for gid := range groups {
			gids = append(gids, gid)
		}
		sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
		for _, gid := range gids {
			g := groups[gid]
			pt := s.firstCellPoint(g.CellIDs)
			lights = append(lights, LightRow{
				PhaseStep: l.ActivePhase(),
				Step:      s.step,
				LightID:   lid,
				GroupID:   gid,
				X:         pt.X,
				Y:         pt.Y,
				Signal:    g.Aspect(),
			})
		}
	}

	return Snapshot{Step: s.step, Vehicles: vehicles, Lights: lights}
}

func (s *Session) firstCellPoint(cells []grid.CellID) geom.Point {
	for _, id := range cells {
		if c, ok := s.roads.GetCell(id); ok {
			return c.Point()
		}
	}
	return geom.Point{}
}
