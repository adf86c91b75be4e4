// Package resolve arbitrates conflicting intentions before movement
// commits anything: two vehicles proposing the same cell, crossing paths
// at a shared conflict zone, or one following too closely behind
// another.
package resolve

import (
	"sort"

	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/conflictzone"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/intention"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// kind classifies a detected conflict for tracing. The public taxonomy
// (spec.md §4.4) only distinguishes same-target, crossing, merge, and
// follow conflicts; this finer breakdown exists purely so log lines can
// say exactly what happened.
type kind int

const (
	sameTarget kind = iota
	mergeAtCell
	crossAtZone
	tailgate
	crossing
)

func (k kind) String() string {
	switch k {
	case sameTarget:
		return "same_target"
	case mergeAtCell:
		return "merge"
	case crossAtZone:
		return "cross_zone"
	case tailgate:
		return "tailgate"
	case crossing:
		return "crossing"
	default:
		return "unknown"
	}
}

// Conflict records one detected collision between two (or more)
// intentions and which vehicle ID the arbitration decided wins. Under a
// zone's Equal rule Winner matches none of the parties, so all of them
// are clamped.
type Conflict struct {
	Kind     kind
	Cell     grid.CellID
	Parties  []vehicle.ID
	Winner   vehicle.ID
}

// Context supplies what arbitration needs beyond the intentions
// themselves: each vehicle's static data (its behaviour, read for the
// minimum-safe-distance check) and the declared conflict zones keyed by the
// cell where they apply.
type Context struct {
	Vehicles      map[vehicle.ID]*vehicle.Vehicle
	ZonesByCell   map[grid.CellID]*conflictzone.Zone
}

// Resolve takes the full set of proposed intentions and returns every
// intention, with each loser's clamped down to a shorter (possibly
// zero-length) move and the rest unmodified, together with the conflicts
// that were found, for tracing. It iterates to a fixpoint: clamping one vehicle can
// free up a cell another vehicle was waiting on, or can turn a
// same-target conflict into a tailgate conflict one step removed. The
// fixpoint is bounded by the vehicle count since each pass strictly
// shrinks at least one intention or makes no changes at all.
func Resolve(intentions map[vehicle.ID]intention.Intention, ctx Context) (map[vehicle.ID]intention.Intention, []Conflict) {
	current := make(map[vehicle.ID]intention.Intention, len(intentions))
	for id, in := range intentions {
		current[id] = in
	}

	var allConflicts []Conflict
	limit := len(intentions)
	for pass := 0; pass <= limit; pass++ {
		conflicts := detect(current, ctx)
		if len(conflicts) == 0 {
			break
		}
		changed := false
		for _, c := range conflicts {
			for _, id := range c.Parties {
				if id == c.Winner {
					continue
				}
				in := current[id]
				if len(in.Hops) == 0 {
					continue
				}
				clamped := clampOneHopShort(in)
				if clamped.TargetSpeed != in.TargetSpeed || clamped.ToCell != in.ToCell {
					current[id] = clamped
					changed = true
				}
			}
		}
		allConflicts = append(allConflicts, conflicts...)
		if !changed {
			break
		}
	}
	return current, allConflicts
}

// clampOneHopShort drops the intention's last hop, the conflict-minimal
// response: stop one cell earlier than proposed rather than refusing the
// whole move.
func clampOneHopShort(in intention.Intention) intention.Intention {
	if len(in.Hops) == 0 {
		return in
	}
	in.Hops = in.Hops[:len(in.Hops)-1]
	in.TargetSpeed = len(in.Hops)
	if len(in.Hops) > 0 {
		in.ToCell = in.Hops[len(in.Hops)-1]
	} else {
		in.ToCell = in.FromCell
	}
	in.Braked = true
	return in
}

func detect(intentions map[vehicle.ID]intention.Intention, ctx Context) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, detectSameTarget(intentions, ctx)...)
	conflicts = append(conflicts, detectZoneCrossings(intentions, ctx)...)
	conflicts = append(conflicts, detectGeneralCrossings(intentions, ctx)...)
	conflicts = append(conflicts, detectTailgating(intentions, ctx)...)
	return conflicts
}

// detectSameTarget finds every cell two or more vehicles intend to come
// to rest on at the end of this step, and picks a winner per spec.md
// §4.4's tie-break order: lane role, then longest intention path
// proposed this step, then ascending vehicle ID. Only the final landing
// cell matters here; detectGeneralCrossings covers overlaps on
// intermediate hops.
func detectSameTarget(intentions map[vehicle.ID]intention.Intention, ctx Context) []Conflict {
	claimants := map[grid.CellID][]vehicle.ID{}
	for id, in := range intentions {
		if len(in.Hops) == 0 {
			continue
		}
		if _, governed := ctx.ZonesByCell[in.ToCell]; governed {
			// A declared conflict zone takes precedence over the
			// generic path-length heuristic; detectZoneCrossings
			// arbitrates these instead.
			continue
		}
		claimants[in.ToCell] = append(claimants[in.ToCell], id)
	}
	var out []Conflict
	for _, cell := range sortedCellKeys(claimants) {
		ids := claimants[cell]
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		winner := pickWinner(ids, intentions)
		out = append(out, Conflict{Kind: sameTarget, Cell: cell, Parties: ids, Winner: winner})
	}
	return out
}

// detectGeneralCrossings finds a cell that is a non-final hop of one
// intention and any hop (intermediate or terminal) of another's, so an
// overlap that only detectSameTarget's final-cell check or
// detectZoneCrossings' first-hop check would miss still gets caught.
// spec.md §4.4 bullet 2 defines a crossing by any intermediate cell
// coinciding with another intention's terminal or intermediate cell, not
// just the first or last hop. Cells already governed by a declared
// conflict zone are left to detectZoneCrossings.
func detectGeneralCrossings(intentions map[vehicle.ID]intention.Intention, ctx Context) []Conflict {
	type occurrence struct {
		id    vehicle.ID
		final bool
	}
	byCell := map[grid.CellID][]occurrence{}
	for id, in := range intentions {
		for i, cell := range in.Hops {
			if _, governed := ctx.ZonesByCell[cell]; governed {
				continue
			}
			byCell[cell] = append(byCell[cell], occurrence{id: id, final: i == len(in.Hops)-1})
		}
	}

	keys := make([]grid.CellID, 0, len(byCell))
	for cell := range byCell {
		keys = append(keys, cell)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []Conflict
	for _, cell := range keys {
		parties := map[vehicle.ID]bool{}
		allFinal := true
		for _, o := range byCell[cell] {
			parties[o.id] = true
			if !o.final {
				allFinal = false
			}
		}
		if len(parties) < 2 || allFinal {
			// A cell every party only reaches as its own landing spot
			// is detectSameTarget's conflict to report, not this one.
			continue
		}
		ids := make([]vehicle.ID, 0, len(parties))
		for id := range parties {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		winner := pickWinner(ids, intentions)
		out = append(out, Conflict{Kind: crossing, Cell: cell, Parties: ids, Winner: winner})
	}
	return out
}

func sortedCellKeys(m map[grid.CellID][]vehicle.ID) []grid.CellID {
	keys := make([]grid.CellID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// detectZoneCrossings finds pairs of vehicles whose first hop enters a
// cell gated by a declared conflict zone, and resolves the winner via the
// zone's declared rule rather than path length or ID. Under an Equal rule
// no entrant wins and all are clamped; a pair the zone has no usable rule
// for leaves the lowest vehicle ID as the winner.
func detectZoneCrossings(intentions map[vehicle.ID]intention.Intention, ctx Context) []Conflict {
	type entry struct {
		id   vehicle.ID
		edge conflictzone.Edge
	}
	byZoneCell := map[grid.CellID][]entry{}
	for id, in := range intentions {
		if len(in.Hops) == 0 {
			continue
		}
		target := in.Hops[0]
		if _, ok := ctx.ZonesByCell[target]; !ok {
			continue
		}
		byZoneCell[target] = append(byZoneCell[target], entry{id: id, edge: conflictzone.Edge{Source: in.FromCell, Target: target}})
	}
	zoneCells := make([]grid.CellID, 0, len(byZoneCell))
	for cell := range byZoneCell {
		zoneCells = append(zoneCells, cell)
	}
	sort.Slice(zoneCells, func(i, j int) bool { return zoneCells[i] < zoneCells[j] })

	var out []Conflict
	for _, cell := range zoneCells {
		entries := byZoneCell[cell]
		if len(entries) < 2 {
			continue
		}
		zone := ctx.ZonesByCell[cell]
		sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
		winner := entries[0].id
		equal := false
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				w, err := zone.Resolve(entries[i].edge, entries[j].edge)
				if err != nil {
					continue
				}
				switch w {
				case conflictzone.WinnerSecond:
					winner = entries[j].id
				case conflictzone.WinnerFirst:
					winner = entries[i].id
				case conflictzone.WinnerEqual:
					equal = true
				}
			}
		}
		if equal {
			// No entrant has the right of way: an ID below every party's
			// (entries are sorted ascending) makes Resolve clamp them all.
			winner = entries[0].id - 1
		}
		ids := make([]vehicle.ID, len(entries))
		for i, e := range entries {
			ids[i] = e.id
		}
		out = append(out, Conflict{Kind: crossAtZone, Cell: cell, Parties: ids, Winner: winner})
	}
	return out
}

// detectTailgating finds a vehicle whose proposed move would close the
// gap to the vehicle ahead of it on the same cell sequence below its
// archetype's minimum safe distance. intention.Build already enforces
// this against occupancy at the start of the step; this second pass
// checks each intention against the cells where other vehicles come to
// rest this step, including vehicles whose move arbitration has cut to
// zero.
func detectTailgating(intentions map[vehicle.ID]intention.Intention, ctx Context) []Conflict {
	ids := make([]vehicle.ID, 0, len(intentions))
	for id := range intentions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Only vehicles that rest this step (TargetSpeed 0, including those
	// simply staying put) count as something to keep a gap from; two
	// movers converging on the same cell is a same-target conflict,
	// handled by detectSameTarget instead. Lowest ID wins ties.
	headTo := map[grid.CellID]vehicle.ID{}
	for _, id := range ids {
		in := intentions[id]
		if in.TargetSpeed != 0 {
			continue
		}
		if _, taken := headTo[in.ToCell]; !taken {
			headTo[in.ToCell] = id
		}
	}

	var out []Conflict
	for _, id := range ids {
		in := intentions[id]
		v := ctx.Vehicles[id]
		if v == nil || len(in.Hops) == 0 {
			continue
		}
		params := behaviour.ParametersFor(v.Behaviour)
		if params.MinSafeDistance == 0 {
			continue
		}
		for i, hop := range in.Hops {
			ahead, ok := headTo[hop]
			if !ok || ahead == id {
				continue
			}
			remaining := len(in.Hops) - 1 - i
			if remaining < params.MinSafeDistance {
				out = append(out, Conflict{Kind: tailgate, Cell: hop, Parties: []vehicle.ID{id, ahead}, Winner: ahead})
			}
		}
	}
	return out
}

// pickWinner chooses among same-cell claimants per spec.md §4.4's order
// after the zone rule: a vehicle entering on a forward hop beats one
// entering by a turn (a mixed forward/turn field narrows the candidates
// to the forward movers); among what's left, the longer intention path
// proposed this step wins; ties fall through to the smaller vehicle ID.
func pickWinner(ids []vehicle.ID, intentions map[vehicle.ID]intention.Intention) vehicle.ID {
	candidates := ids
	var forward []vehicle.ID
	for _, id := range ids {
		if intentions[id].Maneuver == grid.Forward {
			forward = append(forward, id)
		}
	}
	if len(forward) > 0 && len(forward) < len(ids) {
		candidates = forward
	}

	best := candidates[0]
	bestHops := len(intentions[best].Hops)
	for _, id := range candidates[1:] {
		h := len(intentions[id].Hops)
		if h > bestHops {
			best = id
			bestHops = h
		}
	}
	return best
}
