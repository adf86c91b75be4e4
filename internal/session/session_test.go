package session

import (
	"testing"

	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/conflictzone"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/trip"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
)

// chain builds n forward-linked cells with the given speed limit, cell 0 as
// Birth and the last cell as Death, matching spec.md §8 scenario 1's shape.
func chain(t *testing.T, n, speedLimit int) *grid.Roads {
	t.Helper()
	r := grid.NewRoads()
	for i := 0; i < n; i++ {
		id := grid.CellID(i)
		b := grid.NewCell(id).WithSpeedLimit(speedLimit)
		switch i {
		case 0:
			b = b.WithZoneType(grid.ZoneBirth)
		case n - 1:
			b = b.WithZoneType(grid.ZoneDeath)
		default:
			b = b.WithZoneType(grid.ZoneCommon)
		}
		if i+1 < n {
			b = b.WithForward(grid.CellID(i + 1))
		}
		if err := r.AddCell(b.Build()); err != nil {
			t.Fatalf("AddCell(%d): %v", i, err)
		}
	}
	return r
}

func TestNewRejectsInvalidGrid(t *testing.T) {
	r := grid.NewRoads()
	r.PutCell(grid.NewCell(0).WithForward(99).Build())
	if _, err := New(r, Config{}); err == nil {
		t.Fatal("New: want error for a grid with a dangling successor")
	}
}

func TestAddVehicleDuplicateIDFails(t *testing.T) {
	r := chain(t, 5, 2)
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v1 := &vehicle.Vehicle{ID: 1, HeadCell: 0, Destination: 4}
	if err := s.AddVehicle(v1); err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	v2 := &vehicle.Vehicle{ID: 1, HeadCell: 1, Destination: 4}
	if err := s.AddVehicle(v2); err == nil {
		t.Fatal("AddVehicle: want error for duplicate vehicle ID")
	}
}

func TestAddVehicleUnknownCellFails(t *testing.T) {
	r := chain(t, 5, 2)
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := &vehicle.Vehicle{ID: 1, HeadCell: 99, Destination: 4}
	if err := s.AddVehicle(v); err == nil {
		t.Fatal("AddVehicle: want error for unknown head cell")
	}
}

func TestAddTripRejectsBadProbability(t *testing.T) {
	r := chain(t, 5, 2)
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddTrip(trip.Trip{ID: 1, Origin: 0, Destination: 4, Probability: 1.5}); err == nil {
		t.Fatal("AddTrip: want error for probability outside [0,1]")
	}
}

func buildScenario(t *testing.T, seed int64) *Session {
	t.Helper()
	r := chain(t, 20, 3)
	s, err := New(r, Config{Seed: seed, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := &vehicle.Vehicle{ID: 1, Behaviour: behaviour.Cooperative, HeadCell: 2, Destination: 19}
	if err := s.AddVehicle(v); err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}
	return s
}

func TestStepIsDeterministicUnderSameSeed(t *testing.T) {
	s1 := buildScenario(t, 42)
	s2 := buildScenario(t, 42)

	for i := 0; i < 10; i++ {
		snap1, err := s1.Step()
		if err != nil {
			t.Fatalf("s1.Step() at %d: %v", i, err)
		}
		snap2, err := s2.Step()
		if err != nil {
			t.Fatalf("s2.Step() at %d: %v", i, err)
		}
		if len(snap1.Vehicles) != len(snap2.Vehicles) {
			t.Fatalf("step %d: vehicle count diverged: %d vs %d", i, len(snap1.Vehicles), len(snap2.Vehicles))
		}
		for j := range snap1.Vehicles {
			a, b := snap1.Vehicles[j], snap2.Vehicles[j]
			if a != b {
				t.Fatalf("step %d: vehicle row diverged: %+v vs %+v", i, a, b)
			}
		}
	}
}

func TestStepPreservesSingleOccupancyInvariant(t *testing.T) {
	s := buildScenario(t, 7)
	for i := 0; i < 25; i++ {
		if _, err := s.Step(); err != nil {
			t.Fatalf("Step() at %d: %v", i, err)
		}
		seen := map[grid.CellID]vehicle.ID{}
		for _, v := range s.vehicles {
			for _, c := range v.Cells() {
				if other, taken := seen[c]; taken {
					t.Fatalf("step %d: cell %d claimed by both vehicle %d and %d", i, c, other, v.ID)
				}
				seen[c] = v.ID
			}
		}
	}
}

func TestVehicleDespawnsAtDeathCell(t *testing.T) {
	s := buildScenario(t, 3)
	for i := 0; i < 60; i++ {
		snap, err := s.Step()
		if err != nil {
			t.Fatalf("Step() at %d: %v", i, err)
		}
		if len(snap.Vehicles) == 0 {
			return
		}
	}
	t.Fatal("vehicle never reached the death cell within 60 steps")
}

func TestTripSpawnsVehicleAtBirthCell(t *testing.T) {
	r := chain(t, 10, 2)
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddTrip(trip.Trip{ID: 1, Origin: 0, Destination: 9, Kind: trip.Fixed, Interval: 1}); err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	snap, err := s.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(snap.Vehicles) != 1 {
		t.Fatalf("len(Vehicles) = %d, want 1 after a Fixed trip fires", len(snap.Vehicles))
	}
}

func TestSignalHoldsVehicleAtRedThenReleases(t *testing.T) {
	r := chain(t, 10, 3)
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	group := signal.NewGroup(1).WithCells(3).Build()
	light := signal.NewLight(1).
		WithGroup(group).
		WithPhases(
			signal.Phase{Aspects: map[signal.GroupID]signal.Type{1: signal.Red}, Duration: 5},
			signal.Phase{Aspects: map[signal.GroupID]signal.Type{1: signal.Green}, Duration: 100},
		).
		Build()
	if err := s.AddTrafficLight(light); err != nil {
		t.Fatalf("AddTrafficLight: %v", err)
	}
	v := &vehicle.Vehicle{ID: 1, Behaviour: behaviour.Cooperative, HeadCell: 0, Destination: 9}
	if err := s.AddVehicle(v); err != nil {
		t.Fatalf("AddVehicle: %v", err)
	}

	for i := 0; i < 4; i++ {
		snap, err := s.Step()
		if err != nil {
			t.Fatalf("Step() at %d: %v", i, err)
		}
		if snap.Vehicles[0].LastCell >= 3 {
			t.Fatalf("step %d: vehicle passed cell 3 while its light was red", i)
		}
	}

	released := false
	for i := 4; i < 10 && !released; i++ {
		snap, err := s.Step()
		if err != nil {
			t.Fatalf("Step() at %d: %v", i, err)
		}
		released = snap.Vehicles[0].LastCell >= 3
	}
	if !released {
		t.Fatal("vehicle never passed cell 3 after its light turned green")
	}
}

func TestConflictZoneBreaksMergeTie(t *testing.T) {
	r := grid.NewRoads()
	cells := map[grid.CellID]*grid.CellBuilder{
		0: grid.NewCell(0).WithZoneType(grid.ZoneBirth).WithSpeedLimit(1).WithForward(2),
		1: grid.NewCell(1).WithZoneType(grid.ZoneBirth).WithSpeedLimit(1).WithForward(2),
		2: grid.NewCell(2).WithZoneType(grid.ZoneCoordination).WithSpeedLimit(1).WithForward(3),
		3: grid.NewCell(3).WithZoneType(grid.ZoneDeath).WithSpeedLimit(1),
	}
	for id, b := range cells {
		if err := r.AddCell(b.Build()); err != nil {
			t.Fatalf("AddCell(%d): %v", id, err)
		}
	}
	s, err := New(r, Config{Seed: 1, HasSeed: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	zone := conflictzone.NewZone(1)
	edgeA := conflictzone.Edge{Source: 0, Target: 2}
	edgeB := conflictzone.Edge{Source: 1, Target: 2}
	zone.Declare(edgeA, edgeB, conflictzone.WinnerSecond)
	if err := s.AddConflictZone(zone); err != nil {
		t.Fatalf("AddConflictZone: %v", err)
	}

	va := &vehicle.Vehicle{ID: 1, Behaviour: behaviour.Aggressive, HeadCell: 0, Destination: 3}
	vb := &vehicle.Vehicle{ID: 2, Behaviour: behaviour.Aggressive, HeadCell: 1, Destination: 3}
	if err := s.AddVehicle(va); err != nil {
		t.Fatalf("AddVehicle a: %v", err)
	}
	if err := s.AddVehicle(vb); err != nil {
		t.Fatalf("AddVehicle b: %v", err)
	}

	if _, err := s.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if holder, ok := s.occupancy[2]; !ok || holder != 2 {
		t.Fatalf("occupancy[2] = %v, %v; want vehicle 2 (declared Second/winner)", holder, ok)
	}
	if holder, ok := s.occupancy[0]; !ok || holder != 1 {
		t.Fatalf("vehicle 1 (declared loser) should still hold cell 0, got %v, %v", holder, ok)
	}
}
