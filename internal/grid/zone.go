package grid

// ZoneType gives meaning to a cell in terms of its role in the network.
type ZoneType int

const (
	ZoneUndefined ZoneType = iota
	// ZoneBirth cells spawn vehicles (trip spawner origins).
	ZoneBirth
	// ZoneDeath cells despawn vehicles once reached.
	ZoneDeath
	// ZoneCoordination cells require traffic-light/conflict-zone arbitration.
	ZoneCoordination
	// ZoneCommon is a regular road segment.
	ZoneCommon
	// ZoneIsolated cells are disconnected from the routable network.
	ZoneIsolated
	// ZoneBusLane is a dedicated bus lane.
	ZoneBusLane
	// ZoneTransit cells are relaxation stops for transit vehicles (buses).
	ZoneTransit
	// ZoneCrosswalk marks a pedestrian crossing area.
	ZoneCrosswalk
)

func (z ZoneType) String() string {
	switch z {
	case ZoneBirth:
		return "birth"
	case ZoneDeath:
		return "death"
	case ZoneCoordination:
		return "coordination"
	case ZoneCommon:
		return "common"
	case ZoneIsolated:
		return "isolated"
	case ZoneBusLane:
		return "bus_lane"
	case ZoneTransit:
		return "transit"
	case ZoneCrosswalk:
		return "crosswalk"
	default:
		return "undefined"
	}
}

// CellState indicates whether a cell is currently usable.
type CellState int

const (
	// StateFree cells are available for routing/occupancy.
	StateFree CellState = iota
	// StateBanned cells are withdrawn from the network: the router will
	// never route through them and the brake rule treats them as
	// permanently occupied.
	StateBanned
)

func (s CellState) String() string {
	if s == StateBanned {
		return "banned"
	}
	return "free"
}
