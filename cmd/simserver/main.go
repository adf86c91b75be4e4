// Command simserver runs a demo cellular-automata traffic simulation and
// serves its live step-by-step snapshots over a websocket dashboard,
// mirroring the teacher's main.go shape (flag-driven config, a background
// web server, graceful shutdown on SIGINT/SIGTERM) adapted from a
// SUMO-bridge process to a self-contained simulation loop.
package main

import (
	"flag"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lukaslovas/microtrafficsim/internal/behaviour"
	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/session"
	trafficsignal "github.com/lukaslovas/microtrafficsim/internal/signal"
	"github.com/lukaslovas/microtrafficsim/internal/vehicle"
	"github.com/lukaslovas/microtrafficsim/internal/verbose"
	"github.com/lukaslovas/microtrafficsim/internal/web"
)

func main() {
	seed := flag.Int64("seed", 0, "RNG seed (0 and -explicit-seed unset means time-derived)")
	explicitSeed := flag.Bool("explicit-seed", false, "treat -seed as authoritative even when it is 0")
	steps := flag.Int("steps", 500, "number of simulation steps to run before exiting")
	addr := flag.String("addr", ":8080", "address the dashboard's HTTP server listens on")
	verboseLevel := flag.String("verbose", "main", "verbosity: none, main, additional, detailed")
	stepInterval := flag.Duration("step-interval", 50*time.Millisecond, "wall-clock delay between steps, so the dashboard is watchable")
	flag.Parse()

	level := parseVerbose(*verboseLevel)

	roads, err := demoRing(24)
	if err != nil {
		log.WithError(err).Fatal("simserver: failed to build demo grid")
	}

	sess, err := session.New(roads, session.Config{
		Seed:    *seed,
		HasSeed: *explicitSeed || *seed != 0,
		Verbose: level,
	})
	if err != nil {
		log.WithError(err).Fatal("simserver: failed to construct session")
	}
	if err := sess.AddTrafficLight(demoLight()); err != nil {
		log.WithError(err).Fatal("simserver: failed to install demo traffic light")
	}
	seedDemoVehicles(sess)

	hub := web.NewHub()
	sess.Observe(hub.Broadcast)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.WithField("addr", *addr).Info("simserver: dashboard listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("simserver: dashboard server failed")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	osSignal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < *steps; i++ {
			if _, err := sess.Step(); err != nil {
				log.WithError(err).Error("simserver: step failed, stopping")
				return
			}
			time.Sleep(*stepInterval)
		}
	}()

	select {
	case <-shutdown:
		log.Info("simserver: shutdown signal received")
	case <-done:
		log.WithField("steps", *steps).Info("simserver: run complete")
	}
}

func parseVerbose(s string) verbose.Level {
	switch s {
	case "none":
		return verbose.None
	case "additional":
		return verbose.Additional
	case "detailed":
		return verbose.Detailed
	default:
		return verbose.Main
	}
}

// demoRing builds an n-cell ring road (the last cell's forward successor
// wraps to the first), exercising the cyclic-structure support spec.md §9
// calls out explicitly. Every third cell is a ZoneCoordination cell gated
// by a shared traffic light so the demo also drives the signal pipeline.
func demoRing(n int) (*grid.Roads, error) {
	roads := grid.NewRoads()
	for i := 0; i < n; i++ {
		id := grid.CellID(i)
		zone := grid.ZoneCommon
		if i%3 == 0 {
			zone = grid.ZoneCoordination
		}
		c := grid.NewCell(id).
			WithSpeedLimit(3).
			WithZoneType(zone).
			WithForward(grid.CellID((i + 1) % n)).
			Build()
		if err := roads.AddCell(c); err != nil {
			return nil, err
		}
	}
	return roads, nil
}

// demoLight gates the ring's ZoneCoordination cells (see demoRing) with a
// single two-phase light: green for most of the cycle, red for a short
// window, so the signal pipeline and a vehicle hold-and-release are both
// exercised by the demo run.
func demoLight() *trafficsignal.Light {
	group := trafficsignal.NewGroup(0).
		WithCells(0, 3, 6, 9, 12, 15, 18, 21).
		WithLabel("ring-coordination").
		Build()
	return trafficsignal.NewLight(1).
		WithGroup(group).
		WithPhases(
			trafficsignal.Phase{Aspects: map[trafficsignal.GroupID]trafficsignal.Type{0: trafficsignal.Green}, Duration: 12},
			trafficsignal.Phase{Aspects: map[trafficsignal.GroupID]trafficsignal.Type{0: trafficsignal.Red}, Duration: 4},
		).
		Build()
}

func seedDemoVehicles(sess *session.Session) {
	starts := []struct {
		id   vehicle.ID
		head grid.CellID
		dest grid.CellID
		b    behaviour.Type
	}{
		{1, 0, 12, behaviour.Cooperative},
		{2, 6, 18, behaviour.Aggressive},
		{3, 15, 3, behaviour.Cooperative},
	}
	for _, s := range starts {
		v := &vehicle.Vehicle{ID: s.id, Behaviour: s.b, HeadCell: s.head, Destination: s.dest}
		if err := sess.AddVehicle(v); err != nil {
			log.WithError(err).WithField("vehicle_id", s.id).Warn("simserver: failed to seed demo vehicle")
		}
	}
}
