package simulation

import (
	"github.com/ukydev/city-traffic/internal/graph"
	"github.com/ukydev/city-traffic/internal/models"
)

// Vehicle is one car. It owns a private copy of the movement graph whose
// weights it inflates when stuck; nothing else ever touches that copy.
type Vehicle struct {
	ID          int
	Origin      models.Coordinate
	Destination models.Coordinate
	Position    models.Coordinate
	SpawnTick   int

	// path holds the remaining cells in reverse travel order: the next cell
	// is the last element.
	path     []models.Coordinate
	patience int
	reroutes int
	graph    *graph.Graph
}

func newVehicle(id int, origin, dest models.Coordinate, g *graph.Graph, patience, tick int) *Vehicle {
	return &Vehicle{
		ID:          id,
		Origin:      origin,
		Destination: dest,
		Position:    origin,
		SpawnTick:   tick,
		patience:    patience,
		graph:       g,
	}
}

// plan replaces the path with a shortest route from the current position.
// On failure the path is left empty.
func (v *Vehicle) plan() error {
	route, _, err := graph.Route(v.graph, v.Position, v.Destination)
	if err != nil {
		v.path = nil
		return err
	}
	v.path = make([]models.Coordinate, 0, len(route)-1)
	for i := len(route) - 1; i >= 1; i-- {
		v.path = append(v.path, route[i])
	}
	return nil
}

// Next returns the cell the vehicle wants to enter.
func (v *Vehicle) Next() (models.Coordinate, bool) {
	if len(v.path) == 0 {
		return models.Coordinate{}, false
	}
	return v.path[len(v.path)-1], true
}

func (v *Vehicle) advance() {
	v.Position = v.path[len(v.path)-1]
	v.path = v.path[:len(v.path)-1]
}

// reroute penalizes the edge the vehicle is stuck on, refills patience and
// plans again over the penalized graph.
func (v *Vehicle) reroute(penalty float64, patience int) error {
	var penaltyErr error
	if next, ok := v.Next(); ok {
		_, penaltyErr = v.graph.Penalize(v.Position, next, penalty)
	}
	v.patience = patience
	v.reroutes++
	if err := v.plan(); err != nil {
		return err
	}
	return penaltyErr
}

// Path returns the remaining cells in travel order.
func (v *Vehicle) Path() []models.Coordinate {
	out := make([]models.Coordinate, 0, len(v.path))
	for i := len(v.path) - 1; i >= 0; i-- {
		out = append(out, v.path[i])
	}
	return out
}

// Patience returns how many more blocked ticks the vehicle tolerates.
func (v *Vehicle) Patience() int { return v.patience }

// Reroutes returns how many times the vehicle ran out of patience.
func (v *Vehicle) Reroutes() int { return v.reroutes }

func (v *Vehicle) clone() *Vehicle {
	cp := *v
	cp.path = append([]models.Coordinate(nil), v.path...)
	cp.graph = v.graph.Clone()
	return &cp
}
