package signal

import (
	"testing"

	"github.com/lukaslovas/microtrafficsim/internal/grid"
)

func twoPhaseLight() *Light {
	groupA := NewGroup(1).WithCells(10, 11).Build()
	groupB := NewGroup(2).WithCells(20, 21).Build()
	return NewLight(100).
		WithGroup(groupA).
		WithGroup(groupB).
		WithPhases(
			Phase{Aspects: map[GroupID]Type{1: Green, 2: Red}, Duration: 3},
			Phase{Aspects: map[GroupID]Type{1: Red, 2: Green}, Duration: 2},
		).
		Build()
}

func TestLightStartsAtFirstPhase(t *testing.T) {
	l := twoPhaseLight()
	if a, _ := l.AspectForCell(10); a != Green {
		t.Fatalf("group 1 aspect = %v, want Green", a)
	}
	if a, _ := l.AspectForCell(20); a != Red {
		t.Fatalf("group 2 aspect = %v, want Red", a)
	}
}

func TestLightAdvancesAfterDuration(t *testing.T) {
	l := twoPhaseLight()
	for i := 0; i < 2; i++ {
		l.Step()
		if l.ActivePhase() != 0 {
			t.Fatalf("after step %d: phase = %d, want 0", i+1, l.ActivePhase())
		}
	}
	l.Step()
	if l.ActivePhase() != 1 {
		t.Fatalf("after 3rd step: phase = %d, want 1", l.ActivePhase())
	}
	if a, _ := l.AspectForCell(10); a != Red {
		t.Fatalf("group 1 aspect = %v, want Red", a)
	}
}

func TestLightWrapsAround(t *testing.T) {
	l := twoPhaseLight()
	for i := 0; i < 5; i++ {
		l.Step()
	}
	if l.ActivePhase() != 0 {
		t.Fatalf("after full cycle: phase = %d, want 0", l.ActivePhase())
	}
}

func TestLightResetReturnsToFirstPhase(t *testing.T) {
	l := twoPhaseLight()
	l.Step()
	l.Step()
	l.Step()
	l.Reset()
	if l.ActivePhase() != 0 {
		t.Fatalf("after Reset: phase = %d, want 0", l.ActivePhase())
	}
	if a, _ := l.AspectForCell(10); a != Green {
		t.Fatalf("group 1 aspect after Reset = %v, want Green", a)
	}
}

func TestAspectForCellUnknown(t *testing.T) {
	l := twoPhaseLight()
	if _, ok := l.AspectForCell(grid.CellID(999)); ok {
		t.Fatal("AspectForCell: want ok=false for ungated cell")
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	for code, want := range fromCode {
		if got := ParseType(code); got != want {
			t.Fatalf("ParseType(%q) = %v, want %v", code, got, want)
		}
	}
}
