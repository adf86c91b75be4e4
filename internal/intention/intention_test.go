package intention

import (
	"testing"

	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/router"
	"github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

func neverSlows() float64 { return 1.0 }
func alwaysSlows() float64 { return 0.0 }

func freeRoad() *grid.Roads {
	r := grid.NewRoads()
	for i := grid.CellID(0); i < 5; i++ {
		b := grid.NewCell(i)
		if i < 4 {
			b.WithForward(i + 1)
		}
		r.PutCell(b.Build())
	}
	return r
}

func noSignal(grid.CellID) (signal.Type, bool) { return signal.Undefined, false }

func TestBuildAcceleratesOnFreeRoad(t *testing.T) {
	roads := freeRoad()
	v := &vehicle.Vehicle{
		ID:        1,
		Behaviour: behaviour.Aggressive,
		HeadCell:  0,
		Speed:     1,
		Path:      router.Path{Vertices: []grid.CellID{0, 1, 2, 3, 4}},
	}
	w := World{Roads: roads, Occupied: map[grid.CellID]vehicle.ID{}, SignalFor: noSignal}
	in, err := Build(v, w, neverSlows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if in.TargetSpeed != 2 {
		t.Fatalf("TargetSpeed = %d, want 2", in.TargetSpeed)
	}
	if in.ToCell != 2 {
		t.Fatalf("ToCell = %d, want 2", in.ToCell)
	}
}

func TestBuildBrakesForOccupiedCell(t *testing.T) {
	roads := freeRoad()
	v := &vehicle.Vehicle{
		ID:        1,
		Behaviour: behaviour.Cooperative,
		HeadCell:  0,
		Speed:     1,
		Path:      router.Path{Vertices: []grid.CellID{0, 1, 2}},
	}
	w := World{Roads: roads, Occupied: map[grid.CellID]vehicle.ID{1: 99}, SignalFor: noSignal}
	in, err := Build(v, w, neverSlows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if in.ToCell != 0 || in.TargetSpeed != 0 {
		t.Fatalf("Intention = %+v, want hold at cell 0 speed 0", in)
	}
	if !in.Braked {
		t.Fatal("Braked = false, want true")
	}
}

func TestBuildBrakesForRedSignal(t *testing.T) {
	roads := freeRoad()
	v := &vehicle.Vehicle{
		ID:       1,
		HeadCell: 0,
		Speed:    1,
		Path:     router.Path{Vertices: []grid.CellID{0, 1, 2}},
	}
	redAt1 := func(c grid.CellID) (signal.Type, bool) {
		if c == 1 {
			return signal.Red, true
		}
		return signal.Undefined, false
	}
	w := World{Roads: roads, Occupied: map[grid.CellID]vehicle.ID{}, SignalFor: redAt1}
	in, err := Build(v, w, neverSlows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if in.ToCell != 0 {
		t.Fatalf("ToCell = %d, want 0 (held by red signal)", in.ToCell)
	}
}

func TestBuildRandomiseSlowsDown(t *testing.T) {
	roads := freeRoad()
	v := &vehicle.Vehicle{
		ID:       1,
		HeadCell: 0,
		Speed:    2,
		Path:     router.Path{Vertices: []grid.CellID{0, 1, 2, 3, 4}},
	}
	w := World{Roads: roads, Occupied: map[grid.CellID]vehicle.ID{}, SignalFor: noSignal}
	in, err := Build(v, w, alwaysSlows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !in.Braked {
		t.Fatal("Braked = false, want true under always-slow draw")
	}
}

func TestBuildUnknownHeadCell(t *testing.T) {
	roads := grid.NewRoads()
	v := &vehicle.Vehicle{ID: 1, HeadCell: 42}
	w := World{Roads: roads, Occupied: map[grid.CellID]vehicle.ID{}, SignalFor: noSignal}
	if _, err := Build(v, w, neverSlows); err == nil {
		t.Fatal("Build: want error for unknown head cell")
	}
}
