// Package router computes shortest paths over a grid.Roads network using
// A*, tie-broken by cell ID so that route choice is deterministic.
package router

import (
	"container/heap"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lukaslovas/microtrafficsim/internal/grid"
)

// ErrPathNotFound is returned when no route exists between two cells.
var ErrPathNotFound = errors.New("path not found")

// Maneuver names the successor direction taken to reach a path vertex from
// its predecessor.
type Maneuver = grid.Direction

// Path is a sequence of cells and the maneuvers linking them. len(Maneuvers)
// is always len(Vertices)-1.
type Path struct {
	Vertices  []grid.CellID
	Maneuvers []Maneuver
	Cost      float64
}

// Options bounds the search. A zero MaxExpansions means unbounded. A zero
// MaxSpeed means the heuristic derives its divisor from the network's own
// highest per-cell speed limit instead of a caller-supplied value.
type Options struct {
	MaxExpansions int
	MaxSpeed      int
}

type openEntry struct {
	id  grid.CellID
	f   float64
	g   float64
	idx int
}

type openQueue []*openEntry

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	// Tie-break on smaller cell ID keeps route choice deterministic
	// when two candidates reach the frontier with equal cost.
	return q[i].id < q[j].id
}

func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].idx, q[j].idx = i, j
}

func (q *openQueue) Push(x interface{}) {
	e := x.(*openEntry)
	e.idx = len(*q)
	*q = append(*q, e)
}

func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// heuristic returns the admissible A* estimate from a to b: straight-line
// distance divided by the fastest hop the network allows, so it never
// overestimates the number of remaining hops a g-score measured in hops
// can actually incur.
func heuristic(roads *grid.Roads, a, b grid.CellID, maxSpeed float64) float64 {
	ca, _ := roads.GetCell(a)
	cb, _ := roads.GetCell(b)
	return ca.DistanceTo(cb) / maxSpeed
}

// networkMaxSpeed returns the highest per-cell speed limit in roads, or 1
// if the network declares none (every cell at the zero-value "no limit"
// speed), so the heuristic always has a positive divisor.
func networkMaxSpeed(roads *grid.Roads) float64 {
	max := 1
	for _, id := range roads.IDs() {
		c, _ := roads.GetCell(id)
		if c.SpeedLimit() > max {
			max = c.SpeedLimit()
		}
	}
	return float64(max)
}

// ShortestPath runs A* from start to end over roads. The heuristic is
// straight-line distance divided by the network's top speed (see
// heuristic) and the edge cost is a uniform one hop, so the
// search favours fewer cell transitions among routes of equal distance.
func ShortestPath(roads *grid.Roads, start, end grid.CellID, opts Options) (Path, error) {
	if _, ok := roads.GetCell(start); !ok {
		return Path{}, errors.Wrapf(grid.ErrUnknownCell, "start cell %d", start)
	}
	if _, ok := roads.GetCell(end); !ok {
		return Path{}, errors.Wrapf(grid.ErrUnknownCell, "end cell %d", end)
	}
	if start == end {
		return Path{Vertices: []grid.CellID{start}, Cost: 0}, nil
	}

	maxSpeed := float64(opts.MaxSpeed)
	if maxSpeed <= 0 {
		maxSpeed = networkMaxSpeed(roads)
	}

	gScore := map[grid.CellID]float64{start: 0}
	cameFrom := map[grid.CellID]grid.CellID{}
	cameVia := map[grid.CellID]Maneuver{}
	visited := map[grid.CellID]bool{}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, &openEntry{id: start, f: heuristic(roads, start, end, maxSpeed), g: 0})

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*openEntry)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		if cur.id == end {
			return reconstruct(cameFrom, cameVia, start, end, gScore[end]), nil
		}

		expansions++
		if opts.MaxExpansions > 0 && expansions > opts.MaxExpansions {
			break
		}

		cell, _ := roads.GetCell(cur.id)
		for _, dir := range []grid.Direction{grid.Forward, grid.Left, grid.Right} {
			next := cell.Successor(dir)
			if next == grid.NoSuccessor {
				continue
			}
			nextCell, ok := roads.GetCell(next)
			if !ok || nextCell.State() == grid.StateBanned {
				continue
			}
			tentativeG := gScore[cur.id] + 1
			if existing, ok := gScore[next]; ok && tentativeG >= existing {
				continue
			}
			gScore[next] = tentativeG
			cameFrom[next] = cur.id
			cameVia[next] = dir
			heap.Push(open, &openEntry{id: next, f: tentativeG + heuristic(roads, next, end, maxSpeed), g: tentativeG})
		}
	}

	return Path{}, errors.Wrapf(ErrPathNotFound, "from %d to %d", start, end)
}

func reconstruct(cameFrom map[grid.CellID]grid.CellID, cameVia map[grid.CellID]Maneuver, start, end grid.CellID, cost float64) Path {
	vertices := []grid.CellID{end}
	maneuvers := []Maneuver{}
	cur := end
	for cur != start {
		maneuvers = append(maneuvers, cameVia[cur])
		cur = cameFrom[cur]
		vertices = append(vertices, cur)
	}
	// vertices/maneuvers were built walking end->start; reverse in place.
	for i, j := 0, len(vertices)-1; i < j; i, j = i+1, j-1 {
		vertices[i], vertices[j] = vertices[j], vertices[i]
	}
	for i, j := 0, len(maneuvers)-1; i < j; i, j = i+1, j-1 {
		maneuvers[i], maneuvers[j] = maneuvers[j], maneuvers[i]
	}
	return Path{Vertices: vertices, Maneuvers: maneuvers, Cost: cost}
}

func (p Path) String() string {
	return fmt.Sprintf("Path(%d hops, cost=%.2f)", len(p.Vertices)-1, p.Cost)
}
