package vehicle

import (
	"testing"

	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/router"
)

func TestBodyLength(t *testing.T) {
	v := &Vehicle{HeadCell: 1, TailCells: []grid.CellID{0, -1}}
	if got := v.BodyLength(); got != 3 {
		t.Fatalf("BodyLength() = %d, want 3", got)
	}
}

func TestShiftTailShiftsBody(t *testing.T) {
	v := &Vehicle{HeadCell: 1, TailCells: []grid.CellID{0, -1}}
	v.ShiftTail(2)
	if v.HeadCell != 2 {
		t.Fatalf("HeadCell = %d, want 2", v.HeadCell)
	}
	want := []grid.CellID{1, 0}
	for i := range want {
		if v.TailCells[i] != want[i] {
			t.Fatalf("TailCells = %v, want %v", v.TailCells, want)
		}
	}
}

func TestShiftTailNoBody(t *testing.T) {
	v := &Vehicle{HeadCell: 1}
	v.ShiftTail(2)
	if v.HeadCell != 2 || len(v.TailCells) != 0 {
		t.Fatalf("ShiftTail on bodiless vehicle: HeadCell=%d TailCells=%v", v.HeadCell, v.TailCells)
	}
}

func TestNextOnPathAndAdvance(t *testing.T) {
	v := &Vehicle{Path: router.Path{Vertices: []grid.CellID{0, 1, 2}}}
	next, ok := v.NextOnPath()
	if !ok || next != 1 {
		t.Fatalf("NextOnPath() = %v, %v; want 1, true", next, ok)
	}
	v.AdvancePathCursor()
	next, ok = v.NextOnPath()
	if !ok || next != 2 {
		t.Fatalf("NextOnPath() = %v, %v; want 2, true", next, ok)
	}
	v.AdvancePathCursor()
	if _, ok := v.NextOnPath(); ok {
		t.Fatal("NextOnPath(): want ok=false at end of path")
	}
}

func TestReachedDestination(t *testing.T) {
	v := &Vehicle{HeadCell: 5, Destination: 5}
	if !v.ReachedDestination() {
		t.Fatal("ReachedDestination(): want true")
	}
}
