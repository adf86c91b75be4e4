package grid

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownCell is returned when a cell ID does not resolve in the grid.
var ErrUnknownCell = errors.New("unknown cell")

// ErrCellExists is returned by AddCell when the ID is already present;
// re-adding an existing ID is a ConfigError, not a silent no-op, per
// spec.md §8's round-trip property.
var ErrCellExists = errors.New("cell already exists")

// ErrInvalidGraph is returned by Validate when links are malformed.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrNegativeSpeedLimit is returned by Validate when a cell's speed limit
// is negative; spec.md §3 requires speed_limit >= 0, and §7 classifies
// this as a ConfigError rather than an InvalidGraph.
var ErrNegativeSpeedLimit = errors.New("negative speed limit")

// Roads is a dense, ID-indexed road network of cells.
type Roads struct {
	cells map[CellID]Cell
}

// NewRoads creates an empty road network.
func NewRoads() *Roads {
	return &Roads{cells: make(map[CellID]Cell)}
}

// AddCell inserts a new cell. Re-adding an existing ID fails with
// ErrCellExists rather than overwriting.
func (r *Roads) AddCell(c Cell) error {
	if _, exists := r.cells[c.ID()]; exists {
		return errors.Wrapf(ErrCellExists, "cell %d", c.ID())
	}
	r.cells[c.ID()] = c
	return nil
}

// PutCell inserts or replaces a cell unconditionally. Used by grid
// construction helpers that build a network top-down (successors may
// reference cells not yet built).
func (r *Roads) PutCell(c Cell) {
	r.cells[c.ID()] = c
}

// GetCell returns the cell for id, if present.
func (r *Roads) GetCell(id CellID) (Cell, bool) {
	c, ok := r.cells[id]
	return c, ok
}

// SetState updates the CellState of an existing cell in place.
func (r *Roads) SetState(id CellID, s CellState) error {
	c, ok := r.cells[id]
	if !ok {
		return errors.Wrapf(ErrUnknownCell, "cell %d", id)
	}
	c.state = s
	r.cells[id] = c
	return nil
}

// Len returns the number of cells in the network.
func (r *Roads) Len() int { return len(r.cells) }

// IDs returns every cell ID in ascending order. The simulation's
// deterministic iteration order (spec.md §5) is built on top of this.
func (r *Roads) IDs() []CellID {
	ids := make([]CellID, 0, len(r.cells))
	for id := range r.cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the invariants from spec.md §3: every non-sentinel
// successor resolves, every cell's speed limit is non-negative (spec.md
// §7's ConfigError case), and (trivially, by construction) a cell has at
// most one successor per direction since the Cell type only has one slot
// for each.
func (r *Roads) Validate() error {
	for id, c := range r.cells {
		if c.SpeedLimit() < 0 {
			return errors.Wrapf(ErrNegativeSpeedLimit, "cell %d: speed limit %d", id, c.SpeedLimit())
		}
		for _, d := range []Direction{Forward, Left, Right} {
			succ := c.Successor(d)
			if succ == NoSuccessor {
				continue
			}
			if _, ok := r.cells[succ]; !ok {
				return errors.Wrapf(ErrInvalidGraph, "cell %d: %s successor %d does not exist", id, d, succ)
			}
		}
	}
	return nil
}
