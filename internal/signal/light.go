package signal

import "github.com/lukaslovas/microtrafficsim/internal/grid"

// GroupID identifies a traffic-light group: a set of cells sharing one
// signal head.
type GroupID int64

// Group is a collection of cells gated by the same signal aspect.
type Group struct {
	ID      GroupID
	CellIDs []grid.CellID
	Label   string
	aspect  Type
}

// Aspect returns the group's currently active signal type.
func (g Group) Aspect() Type { return g.aspect }

// GroupBuilder builds an immutable Group.
type GroupBuilder struct {
	group Group
}

// NewGroup starts a GroupBuilder for the given ID.
func NewGroup(id GroupID) *GroupBuilder {
	return &GroupBuilder{group: Group{ID: id, aspect: Undefined}}
}

func (b *GroupBuilder) WithCells(ids ...grid.CellID) *GroupBuilder {
	b.group.CellIDs = append(b.group.CellIDs, ids...)
	return b
}

func (b *GroupBuilder) WithLabel(label string) *GroupBuilder {
	b.group.Label = label
	return b
}

func (b *GroupBuilder) Build() Group {
	return b.group
}

// ID identifies a traffic light.
type ID int64

// Phase is one step of a light's cycle: the aspect shown by each group and
// how many simulation steps it is held for.
type Phase struct {
	Aspects  map[GroupID]Type
	Duration int
}

// Light cycles a fixed sequence of phases across its groups, advancing one
// step at a time.
type Light struct {
	id             ID
	groups         map[GroupID]*Group
	phases         []Phase
	timer          int
	activePhaseIdx int
}

// LightBuilder builds a Light.
type LightBuilder struct {
	light Light
}

// NewLight starts a LightBuilder for the given ID.
func NewLight(id ID) *LightBuilder {
	return &LightBuilder{light: Light{id: id, groups: make(map[GroupID]*Group)}}
}

func (b *LightBuilder) WithGroup(g Group) *LightBuilder {
	b.light.groups[g.ID] = &g
	return b
}

func (b *LightBuilder) WithPhases(phases ...Phase) *LightBuilder {
	b.light.phases = append(b.light.phases, phases...)
	return b
}

func (b *LightBuilder) Build() *Light {
	l := b.light
	l.applyPhase(0)
	return &l
}

// ID returns the light's identifier.
func (l *Light) ID() ID { return l.id }

// Groups returns the light's groups, keyed by group ID.
func (l *Light) Groups() map[GroupID]*Group { return l.groups }

// ActivePhase returns the index of the currently active phase.
func (l *Light) ActivePhase() int { return l.activePhaseIdx }

func (l *Light) applyPhase(idx int) {
	if len(l.phases) == 0 {
		return
	}
	l.activePhaseIdx = idx
	aspects := l.phases[idx].Aspects
	for id, g := range l.groups {
		if a, ok := aspects[id]; ok {
			g.aspect = a
		} else {
			g.aspect = Undefined
		}
	}
}

// Step advances the light's phase timer by one simulation step, rolling
// over to the next phase (wrapping around) once the active phase's
// duration is reached.
func (l *Light) Step() {
	if len(l.phases) == 0 {
		return
	}
	l.timer++
	if l.timer >= l.phases[l.activePhaseIdx].Duration {
		l.timer = 0
		l.applyPhase((l.activePhaseIdx + 1) % len(l.phases))
	}
}

// Reset returns the light to its first phase with a zeroed timer.
func (l *Light) Reset() {
	l.timer = 0
	l.applyPhase(0)
}

// AspectForCell returns the aspect currently shown to a given cell, and
// whether that cell is gated by any group on this light.
func (l *Light) AspectForCell(id grid.CellID) (Type, bool) {
	for _, g := range l.groups {
		for _, c := range g.CellIDs {
			if c == id {
				return g.aspect, true
			}
		}
	}
	return Undefined, false
}
