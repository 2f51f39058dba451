// Package simulation drives the city: it owns the grid occupancy, the
// canonical movement graph, the lights and the vehicle roster, and advances
// them one tick per Step.
//
// Activation within a tick is sequential: lights first, then vehicles in
// ascending id order, each move applied to the occupancy index before the
// next vehicle looks at it. A cell therefore never holds two vehicles.
package simulation

import (
	"fmt"
	"math/rand/v2"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/graph"
	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/traffic"
)

// City is the whole state of one simulation run. It is not safe for
// concurrent use; callers serialize Step and the read accessors.
type City struct {
	cfg          Config
	grid         *grid.Map
	canonical    *graph.Graph
	lights       *traffic.Controller
	occupancy    map[models.Coordinate]int
	vehicles     map[int]*Vehicle
	destinations []models.Coordinate
	spawnPoints  []models.Coordinate

	src *rand.PCG
	rng *rand.Rand

	tick         int
	active       int
	arrived      int
	totalSpawned int
	nextID       int
	halted       bool
	trips        []models.Trip

	log *log.Entry
}

// Option configures optional City behavior.
type Option func(*City)

// WithLogger routes the city's log output through entry.
func WithLogger(entry *log.Entry) Option {
	return func(c *City) {
		c.log = entry
	}
}

// Initialize parses a map text and builds a city from it.
func Initialize(mapText string, lookup grid.Lookup, cfg Config, opts ...Option) (*City, error) {
	m, err := grid.ParseMap(mapText, lookup)
	if err != nil {
		return nil, err
	}
	return New(m, cfg, opts...)
}

// New compiles the canonical graph for m, sets up the lights and performs
// the initial spawn.
func New(m *grid.Map, cfg Config, opts ...Option) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lights, err := traffic.NewController(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrParse, err)
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	c := &City{
		cfg:          cfg,
		grid:         m,
		canonical:    graph.Compile(m, cfg.weights()),
		lights:       lights,
		occupancy:    make(map[models.Coordinate]int),
		vehicles:     make(map[int]*Vehicle),
		destinations: m.Destinations(),
		src:          src,
		rng:          rand.New(src),
		log:          log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.destinations) == 0 {
		return nil, ErrNoDestinations
	}
	if c.spawnPoints, err = c.resolveSpawnPoints(cfg.SpawnPoints); err != nil {
		return nil, err
	}

	c.log.WithFields(log.Fields{
		"width":        m.Width,
		"height":       m.Height,
		"nodes":        c.canonical.NodeCount(),
		"edges":        c.canonical.EdgeCount(),
		"lights":       lights.Len(),
		"destinations": len(c.destinations),
		"spawn_points": len(c.spawnPoints),
	}).Info("City initialized")

	c.spawn()
	return c, nil
}

// resolveSpawnPoints validates explicit spawn points, or falls back to the
// grid corners that a vehicle can start from.
func (c *City) resolveSpawnPoints(explicit []models.Coordinate) ([]models.Coordinate, error) {
	if len(explicit) > 0 {
		for _, p := range explicit {
			if !c.canStartAt(p) {
				return nil, fmt.Errorf("%w: spawn point %v is not a road or light", ErrInvalidConfig, p)
			}
		}
		return append([]models.Coordinate(nil), explicit...), nil
	}
	var out []models.Coordinate
	for _, p := range c.grid.Corners() {
		if c.canStartAt(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSpawnPoints
	}
	return out, nil
}

func (c *City) canStartAt(p models.Coordinate) bool {
	switch c.grid.At(p).Kind {
	case grid.Road, grid.TrafficLight:
		return true
	}
	return false
}

// Step computes one tick and returns the tick count. A halted city does not
// advance.
func (c *City) Step() int {
	if c.halted {
		return c.tick
	}
	if c.cfg.SpawnInterval > 0 && c.tick != 0 && c.tick%c.cfg.SpawnInterval == 0 {
		c.spawn()
	}
	c.tick++

	c.lights.Advance(c.tick)
	for _, id := range c.vehicleIDs() {
		if v, ok := c.vehicles[id]; ok {
			c.activate(v)
		}
	}
	return c.tick
}

func (c *City) vehicleIDs() []int {
	ids := make([]int, 0, len(c.vehicles))
	for id := range c.vehicles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// activate makes one decision for v: reroute, wait, move or arrive.
func (c *City) activate(v *Vehicle) {
	if v.patience <= 0 {
		c.reroute(v)
		return
	}

	next, ok := v.Next()
	if !ok {
		// No route: count as blocked so routing is retried when patience runs out.
		if v.Position != v.Destination {
			v.patience--
		}
		return
	}

	if occupant, taken := c.occupancy[next]; taken && occupant != v.ID {
		v.patience--
		return
	}

	switch cell := c.grid.At(next); cell.Kind {
	case grid.TrafficLight:
		if c.lights.IsRed(next) {
			return
		}
		c.move(v, next)
	case grid.Destination:
		c.arrive(v)
	case grid.Road:
		c.move(v, next)
	case grid.Obstacle, grid.Empty:
		c.log.WithFields(log.Fields{
			"vehicle_id": v.ID,
			"next":       next.String(),
			"kind":       cell.Kind.String(),
		}).Warn("Path leads into an untraversable cell, dropping it")
		v.path = nil
	}
}

func (c *City) reroute(v *Vehicle) {
	fields := log.Fields{
		"vehicle_id": v.ID,
		"tick":       c.tick,
		"from":       v.Position.String(),
		"to":         v.Destination.String(),
	}
	if err := v.reroute(c.cfg.CongestionPenalty, c.drawPatience()); err != nil {
		c.log.WithFields(fields).WithError(err).Warn("Reroute failed")
		return
	}
	c.log.WithFields(fields).Debug("Vehicle out of patience, rerouted")
}

func (c *City) move(v *Vehicle, next models.Coordinate) {
	delete(c.occupancy, v.Position)
	c.occupancy[next] = v.ID
	v.advance()
}

func (c *City) arrive(v *Vehicle) {
	if c.occupancy[v.Position] == v.ID {
		delete(c.occupancy, v.Position)
	}
	delete(c.vehicles, v.ID)
	c.active--
	c.arrived++
	c.trips = append(c.trips, models.Trip{
		VehicleID:   v.ID,
		Origin:      v.Origin,
		Destination: v.Destination,
		SpawnTick:   v.SpawnTick,
		ArrivalTick: c.tick,
		Reroutes:    v.reroutes,
	})
	c.log.WithFields(log.Fields{
		"vehicle_id": v.ID,
		"tick":       c.tick,
		"duration":   c.tick - v.SpawnTick,
	}).Debug("Vehicle arrived")
}

func (c *City) drawPatience() int {
	return c.cfg.PatienceFloor + c.rng.IntN(c.cfg.PatienceCeiling-c.cfg.PatienceFloor+1)
}

// Tick returns the number of completed steps.
func (c *City) Tick() int { return c.tick }

// Halted reports whether a spawn opportunity found every spawn point blocked.
func (c *City) Halted() bool { return c.halted }

// Config returns the parameters the city was built with.
func (c *City) Config() Config { return c.cfg }

// Map returns the classified grid.
func (c *City) Map() *grid.Map { return c.grid }

// Stats returns the counters.
func (c *City) Stats() models.Stats {
	return models.Stats{
		Tick:         c.tick,
		Active:       c.active,
		Arrived:      c.arrived,
		TotalSpawned: c.totalSpawned,
		Halted:       c.halted,
	}
}

// Positions returns every live vehicle ordered by id.
func (c *City) Positions() []models.VehiclePosition {
	out := make([]models.VehiclePosition, 0, len(c.vehicles))
	for _, id := range c.vehicleIDs() {
		v := c.vehicles[id]
		out = append(out, models.VehiclePosition{ID: v.ID, X: v.Position.X, Y: v.Position.Y})
	}
	return out
}

// LightStates returns every light ordered by id.
func (c *City) LightStates() []models.LightState {
	return c.lights.States()
}

// Vehicle returns a live vehicle by id.
func (c *City) Vehicle(id int) (*Vehicle, bool) {
	v, ok := c.vehicles[id]
	return v, ok
}

// DrainTrips returns and forgets the trips completed since the last call.
func (c *City) DrainTrips() []models.Trip {
	out := c.trips
	c.trips = nil
	return out
}

// Clone returns an independent copy of the run, random state included, so
// both copies evolve identically from here on.
func (c *City) Clone() *City {
	src := *c.src
	cp := &City{
		cfg:          c.cfg,
		grid:         c.grid,
		canonical:    c.canonical.Clone(),
		lights:       c.lights.Clone(),
		occupancy:    make(map[models.Coordinate]int, len(c.occupancy)),
		vehicles:     make(map[int]*Vehicle, len(c.vehicles)),
		destinations: append([]models.Coordinate(nil), c.destinations...),
		spawnPoints:  append([]models.Coordinate(nil), c.spawnPoints...),
		src:          &src,
		tick:         c.tick,
		active:       c.active,
		arrived:      c.arrived,
		totalSpawned: c.totalSpawned,
		nextID:       c.nextID,
		halted:       c.halted,
		trips:        append([]models.Trip(nil), c.trips...),
		log:          c.log,
	}
	cp.rng = rand.New(cp.src)
	cp.cfg.SpawnPoints = append([]models.Coordinate(nil), c.cfg.SpawnPoints...)
	for k, v := range c.occupancy {
		cp.occupancy[k] = v
	}
	for id, v := range c.vehicles {
		cp.vehicles[id] = v.clone()
	}
	return cp
}
