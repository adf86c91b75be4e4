// Package conflictzone models declared right-of-way rules for pairs of
// directed cell-to-cell edges; the resolver applies a rule when two
// vehicles enter the same cell over declared edges in one step.
package conflictzone

import (
	"github.com/pkg/errors"

	"github.com/lukaslovas/microtrafficsim/internal/grid"
)

// ErrUndefinedWinner is returned when a zone declares an edge pair with no
// explicit winner. The original dataset breaks this tie with a coin flip;
// Resolve reports this error instead, since a winner chosen outside the
// session's seeded RNG would make the session's outcome depend on
// something other than its seed. Declare and Session.AddConflictZone do
// not reject such a pair.
var ErrUndefinedWinner = errors.New("conflict zone: undefined winner for edge pair")

// ID identifies a conflict zone.
type ID int32

// Winner names which of the two declared edges has the right of way.
type Winner int

const (
	WinnerUndefined Winner = iota
	WinnerFirst
	WinnerSecond
	WinnerEqual
)

// Edge is a directed cell-to-cell movement: a vehicle leaving Source and
// entering Target.
type Edge struct {
	Source, Target grid.CellID
}

// Zone declares the right-of-way winner for every pair of edges that cross
// or merge within it.
type Zone struct {
	id    ID
	rules map[edgePairKey]Winner
}

type edgePairKey struct{ a, b Edge }

// NewZone creates an empty zone.
func NewZone(id ID) *Zone {
	return &Zone{id: id, rules: make(map[edgePairKey]Winner)}
}

// ID returns the zone's identifier.
func (z *Zone) ID() ID { return z.id }

// Declare records the winner for an (edgeA, edgeB) pair. The rule applies
// regardless of which edge is queried first or second.
func (z *Zone) Declare(a, b Edge, winner Winner) {
	z.rules[edgePairKey{a, b}] = winner
	z.rules[edgePairKey{b, a}] = flip(winner)
}

func flip(w Winner) Winner {
	switch w {
	case WinnerFirst:
		return WinnerSecond
	case WinnerSecond:
		return WinnerFirst
	default:
		return w
	}
}

// Edges returns the distinct edges this zone declares rules over, in no
// particular order. Used by session wiring to index zones by the cell(s)
// their governed edges target.
func (z *Zone) Edges() []Edge {
	seen := make(map[Edge]bool)
	var out []Edge
	for k := range z.rules {
		for _, e := range [2]Edge{k.a, k.b} {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// Resolve returns which of a or b has the right of way. WinnerUndefined
// comes back as ErrUndefinedWinner rather than silently picking a side.
func (z *Zone) Resolve(a, b Edge) (Winner, error) {
	w, ok := z.rules[edgePairKey{a, b}]
	if !ok {
		return WinnerUndefined, errors.Wrapf(ErrUndefinedWinner, "zone %d: no rule for (%v, %v)", z.id, a, b)
	}
	if w == WinnerUndefined {
		return WinnerUndefined, errors.Wrapf(ErrUndefinedWinner, "zone %d: (%v, %v)", z.id, a, b)
	}
	return w, nil
}
