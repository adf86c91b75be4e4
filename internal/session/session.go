// Package session orchestrates one simulation step end to end: it owns the
// road network, occupancy index, vehicle table, traffic lights, conflict
// zones, trips, and the single seeded RNG, and wires the intention,
// resolve, and movement packages together in the fixed pipeline order
// spec.md §4.7 describes.
package session

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lukaslovas/microtrafficsim/internal/conflictzone"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/intention"
	"github.com/lukaslovas/microtrafficsim/internal/movement"
	"github.com/lukaslovas/microtrafficsim/internal/resolve"
	"github.com/lukaslovas/microtrafficsim/internal/router"
	"github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/trip"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
	"github.com/lukaslovas/microtrafficsim/internal/verbose"
)

// ErrUnknownVehicle is returned for operations naming a vehicle ID the
// session has no record of.
var ErrUnknownVehicle = errors.New("session: unknown vehicle")

// ErrConfigError is the spec.md §7 ConfigError sentinel: negative speed
// limits, probabilities outside [0,1], a negative MaxStuckSteps, an
// occupied head cell, or a duplicate ID where the contract requires
// uniqueness. Traffic-light phases are not checked.
var ErrConfigError = errors.New("session: invalid configuration")

// Config configures a new Session. A zero Config is valid: Seed defaults to
// a time-derived value and MaxStuckSteps to 0 (stuck-vehicle reporting
// disabled).
type Config struct {
	Seed          int64
	HasSeed       bool
	MaxStuckSteps int
	Verbose       verbose.Level
}

// Session is the stateful engine driving one simulated road network.
type Session struct {
	id    uuid.UUID
	roads *grid.Roads

	occupancy     map[grid.CellID]vehicle.ID
	vehicles      map[vehicle.ID]*vehicle.Vehicle
	nextVehicleID vehicle.ID

	lights      map[signal.ID]*signal.Light
	zonesByCell map[grid.CellID]*conflictzone.Zone
	trips       map[trip.ID]trip.Trip

	rng  *rand.Rand
	seed int64
	step int

	maxStuckSteps int
	logger        *verbose.Logger
	observers     []func(Snapshot)
}

// New builds a Session over roads, which must already satisfy grid.Roads'
// Validate invariants; a malformed grid fails construction immediately
// rather than surfacing later as a per-step error.
func New(roads *grid.Roads, cfg Config) (*Session, error) {
	if roads == nil {
		return nil, errors.Wrap(ErrConfigError, "session: nil road network")
	}
	if err := roads.Validate(); err != nil {
		if errors.Is(err, grid.ErrNegativeSpeedLimit) {
			return nil, errors.Wrap(ErrConfigError, err.Error())
		}
		return nil, errors.Wrap(err, "session: invalid grid")
	}
	if cfg.MaxStuckSteps < 0 {
		return nil, errors.Wrap(ErrConfigError, "session: MaxStuckSteps must be >= 0")
	}

	seed := cfg.Seed
	if !cfg.HasSeed {
		seed = time.Now().UnixNano()
	}

	return &Session{
		id:            uuid.New(),
		roads:         roads,
		occupancy:     make(map[grid.CellID]vehicle.ID),
		vehicles:      make(map[vehicle.ID]*vehicle.Vehicle),
		lights:        make(map[signal.ID]*signal.Light),
		zonesByCell:   make(map[grid.CellID]*conflictzone.Zone),
		trips:         make(map[trip.ID]trip.Trip),
		rng:           rand.New(rand.NewSource(seed)),
		seed:          seed,
		maxStuckSteps: cfg.MaxStuckSteps,
		logger:        verbose.NewLogger(cfg.Verbose),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Seed returns the RNG seed the session was constructed with (explicit or
// time-derived), so a caller can reproduce the run exactly.
func (s *Session) Seed() int64 { return s.seed }

// StepCount returns the number of steps committed so far.
func (s *Session) StepCount() int { return s.step }

// SetVerboseLevel toggles internal tracing without affecting simulation
// outcomes: nothing it controls is consulted by the pipeline itself.
func (s *Session) SetVerboseLevel(level verbose.Level) { s.logger.SetLevel(level) }

// Observe registers fn to be called with every committed step's Snapshot,
// after the step has fully committed. Used by external collaborators (a
// live dashboard, a CSV recorder) that must never influence outcomes.
func (s *Session) Observe(fn func(Snapshot)) { s.observers = append(s.observers, fn) }

// Roads exposes the underlying road network read-only access relies on.
func (s *Session) Roads() *grid.Roads { return s.roads }

// Vehicle returns the live vehicle record for id, if the session still
// tracks it.
func (s *Session) Vehicle(id vehicle.ID) (*vehicle.Vehicle, bool) {
	v, ok := s.vehicles[id]
	return v, ok
}

// draw consumes the next uniform [0,1) value from the session's seeded
// source. All call sites walk vehicles/trips in ascending ID order, so a
// reseed reproduces a run's random decisions bit for bit.
func (s *Session) draw() float64 { return s.rng.Float64() }

// AddVehicle registers a vehicle at its configured head cell. The cell and
// destination must already exist in the road network and the head cell
// must be unoccupied; a best-effort initial route is computed immediately,
// but a vehicle whose destination is unreachable at add-time is not
// rejected (spec.md's router failures are recovered, not fatal) — it will
// simply hold until reachability changes or forever.
func (s *Session) AddVehicle(v *vehicle.Vehicle) error {
	if _, ok := s.roads.GetCell(v.HeadCell); !ok {
		return errors.Wrapf(grid.ErrUnknownCell, "vehicle %d head cell %d", v.ID, v.HeadCell)
	}
	if _, ok := s.roads.GetCell(v.Destination); !ok {
		return errors.Wrapf(grid.ErrUnknownCell, "vehicle %d destination %d", v.ID, v.Destination)
	}
	if _, exists := s.vehicles[v.ID]; exists {
		return errors.Wrapf(ErrConfigError, "vehicle %d already exists", v.ID)
	}
	if holder, taken := s.occupancy[v.HeadCell]; taken {
		return errors.Wrapf(ErrConfigError, "cell %d already occupied by vehicle %d", v.HeadCell, holder)
	}

	if path, err := router.ShortestPath(s.roads, v.HeadCell, v.Destination, router.Options{}); err == nil {
		v.SetPath(path)
	}

	s.vehicles[v.ID] = v
	s.occupancy[v.HeadCell] = v.ID
	for _, c := range v.TailCells {
		s.occupancy[c] = v.ID
	}
	if v.ID >= s.nextVehicleID {
		s.nextVehicleID = v.ID + 1
	}
	return nil
}

// AddTrip registers a spawn rule. Probabilities outside [0,1] and
// unresolvable endpoints are ConfigErrors, surfaced immediately.
func (s *Session) AddTrip(t trip.Trip) error {
	if t.Probability < 0 || t.Probability > 1 {
		return errors.Wrapf(ErrConfigError, "trip %d: probability %v outside [0,1]", t.ID, t.Probability)
	}
	if _, ok := s.roads.GetCell(t.Origin); !ok {
		return errors.Wrapf(grid.ErrUnknownCell, "trip %d origin %d", t.ID, t.Origin)
	}
	if _, ok := s.roads.GetCell(t.Destination); !ok {
		return errors.Wrapf(grid.ErrUnknownCell, "trip %d destination %d", t.ID, t.Destination)
	}
	if _, exists := s.trips[t.ID]; exists {
		return errors.Wrapf(ErrConfigError, "trip %d already exists", t.ID)
	}
	s.trips[t.ID] = t
	return nil
}

// AddTrafficLight registers a traffic light, rejecting only a duplicate
// ID. Neither it nor Light.Build checks the light's phases or groups.
func (s *Session) AddTrafficLight(l *signal.Light) error {
	if _, exists := s.lights[l.ID()]; exists {
		return errors.Wrapf(ErrConfigError, "traffic light %d already exists", l.ID())
	}
	s.lights[l.ID()] = l
	return nil
}

// AddConflictZone registers z, indexing it by every cell its declared
// edges target so the resolver can find it during arbitration.
func (s *Session) AddConflictZone(z *conflictzone.Zone) error {
	edges := z.Edges()
	if len(edges) == 0 {
		return errors.Wrapf(ErrConfigError, "conflict zone %d declares no edges", z.ID())
	}
	for _, e := range edges {
		if _, ok := s.roads.GetCell(e.Source); !ok {
			return errors.Wrapf(grid.ErrUnknownCell, "zone %d edge source %d", z.ID(), e.Source)
		}
		if _, ok := s.roads.GetCell(e.Target); !ok {
			return errors.Wrapf(grid.ErrUnknownCell, "zone %d edge target %d", z.ID(), e.Target)
		}
		s.zonesByCell[e.Target] = z
	}
	return nil
}

// Step runs the full pipeline once: advance signals, spawn trips, build
// intentions, resolve conflicts, commit movement, and return a snapshot.
// If the commit phase fails (for example with InvariantViolation), the
// occupancy index and the vehicles present at that point are restored to
// their pre-commit state and the step counter is not advanced; the signal
// advance, vehicles spawned by trips, and random draws already made by
// this call are not rolled back.
func (s *Session) Step() (Snapshot, error) {
	for _, lid := range s.sortedLightIDs() {
		s.lights[lid].Step()
	}

	s.spawnTrips()

	// Vehicles spawned this step also propose an intention this same step.
	ids := s.sortedVehicleIDs()

	world := intention.World{Roads: s.roads, Occupied: s.occupancy, SignalFor: s.signalFor}
	intentions := make(map[vehicle.ID]intention.Intention, len(ids))
	for _, id := range ids {
		v := s.vehicles[id]
		if !v.ReachedDestination() && !v.HasValidPath() {
			if path, err := router.ShortestPath(s.roads, v.HeadCell, v.Destination, router.Options{}); err == nil {
				v.SetPath(path)
			} else {
				s.logger.Detailed("vehicle stuck: no path to destination", logFields(v))
				intentions[id] = intention.Intention{VehicleID: id, FromCell: v.HeadCell, ToCell: v.HeadCell}
				continue
			}
		}
		in, err := intention.Build(v, world, s.draw)
		if err != nil {
			return Snapshot{}, errors.Wrapf(err, "building intention for vehicle %d", id)
		}
		intentions[id] = in
	}

	ctx := resolve.Context{Vehicles: s.vehicles, ZonesByCell: s.zonesByCell}
	resolved, conflicts := resolve.Resolve(intentions, ctx)
	for _, id := range ids {
		s.vehicles[id].IsConflictParticipant = false
	}
	for _, c := range conflicts {
		s.logger.Detailed("conflict resolved", map[string]interface{}{"kind": c.Kind.String(), "cell": c.Cell, "parties": c.Parties, "winner": c.Winner})
		for _, id := range c.Parties {
			if v, ok := s.vehicles[id]; ok {
				v.IsConflictParticipant = true
			}
		}
	}

	backupOccupancy := cloneOccupancy(s.occupancy)
	backupVehicles := make(map[vehicle.ID]vehicle.Vehicle, len(ids))
	for _, id := range ids {
		backupVehicles[id] = *s.vehicles[id]
	}

	var despawning []vehicle.ID
	for _, id := range ids {
		v := s.vehicles[id]
		res, err := movement.Commit(v, resolved[id], s.roads)
		if err != nil {
			s.restore(backupOccupancy, backupVehicles)
			return Snapshot{}, err
		}
		if v.IsStuckBeyond(s.maxStuckSteps) {
			s.logger.Main("vehicle permanently stuck", logFields(v))
		}
		if err := movement.Apply(s.occupancy, res); err != nil {
			s.restore(backupOccupancy, backupVehicles)
			return Snapshot{}, err
		}
		if res.Despawn {
			despawning = append(despawning, id)
		}
	}

	for _, id := range despawning {
		v := s.vehicles[id]
		for _, c := range v.Cells() {
			if holder, ok := s.occupancy[c]; ok && holder == id {
				delete(s.occupancy, c)
			}
		}
		delete(s.vehicles, id)
		s.logger.Main("vehicle reached death cell", map[string]interface{}{"vehicle_id": id})
	}

	s.step++
	snap := s.buildSnapshot()
	for _, obs := range s.observers {
		obs(snap)
	}
	return snap, nil
}

func (s *Session) restore(occupancy map[grid.CellID]vehicle.ID, vehicles map[vehicle.ID]vehicle.Vehicle) {
	s.occupancy = occupancy
	for id, snap := range vehicles {
		if v, ok := s.vehicles[id]; ok {
			*v = snap
		}
	}
}

// spawnTrips runs the Bernoulli/fixed-interval spawn check for every trip
// in ascending trip-ID order, consuming the RNG once per Random trip whose
// window covers the current step, regardless of outcome.
func (s *Session) spawnTrips() {
	ids := make([]trip.ID, 0, len(s.trips))
	for id := range s.trips {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		t := s.trips[id]
		if !t.ShouldFire(s.step, s.draw) {
			continue
		}
		if _, occupied := s.occupancy[t.Origin]; occupied {
			continue
		}
		path, err := router.ShortestPath(s.roads, t.Origin, t.Destination, router.Options{})
		if err != nil {
			continue
		}
		nv := &vehicle.Vehicle{
			ID:          s.nextVehicleID,
			Agent:       t.Agent,
			Behaviour:   t.Behaviour,
			HeadCell:    t.Origin,
			Destination: t.Destination,
		}
		nv.SetPath(path)
		s.nextVehicleID++
		s.vehicles[nv.ID] = nv
		s.occupancy[nv.HeadCell] = nv.ID
		s.logger.Additional("trip spawned vehicle", map[string]interface{}{"trip_id": id, "vehicle_id": nv.ID, "origin": t.Origin})
	}
}

func (s *Session) signalFor(cell grid.CellID) (signal.Type, bool) {
	for _, lid := range s.sortedLightIDs() {
		if aspect, ok := s.lights[lid].AspectForCell(cell); ok {
			return aspect, true
		}
	}
	return signal.Undefined, false
}

func (s *Session) sortedVehicleIDs() []vehicle.ID {
	ids := make([]vehicle.ID, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Session) sortedLightIDs() []signal.ID {
	ids := make([]signal.ID, 0, len(s.lights))
	for id := range s.lights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneOccupancy(m map[grid.CellID]vehicle.ID) map[grid.CellID]vehicle.ID {
	out := make(map[grid.CellID]vehicle.ID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func logFields(v *vehicle.Vehicle) map[string]interface{} {
	return map[string]interface{}{"vehicle_id": v.ID, "head_cell": v.HeadCell, "speed": v.Speed, "stuck_steps": v.Stuck}
}
