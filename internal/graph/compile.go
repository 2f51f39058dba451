package graph

import (
	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
)

// SignalScale multiplies the signal factor on the edge leaving a light.
const SignalScale = 5

// Weights are the fixed cost parameters used when compiling a map.
type Weights struct {
	Diagonal float64 // lane change into a diagonal cell, >= 1
	Signal   float64 // scaled by SignalScale on edges leaving a light
}

// DefaultWeights returns the stock cost parameters.
func DefaultWeights() Weights {
	return Weights{Diagonal: 1.5, Signal: 5}
}

// Compile builds the movement graph of m. Only roads produce edges of their
// own; a light gets its single outgoing edge from the road approaching it,
// and destinations are sinks.
func Compile(m *grid.Map, w Weights) *Graph {
	g := New()
	coords := m.Coordinates()
	for _, c := range coords {
		cell := m.At(c)
		switch cell.Kind {
		case grid.Road:
			g.AddNode(Node{Pos: c, Direction: cell.Direction})
		case grid.TrafficLight:
			g.AddNode(Node{Pos: c, Signal: cell.Signal})
		case grid.Destination:
			g.AddNode(Node{Pos: c})
		}
	}

	for _, c := range coords {
		cell := m.At(c)
		if cell.Kind != grid.Road {
			continue
		}
		addRoadEdges(g, c, cell.Direction, w)
	}
	return g
}

func addRoadEdges(g *Graph, pos models.Coordinate, d grid.Direction, w Weights) {
	dx, dy := d.Delta()
	lx, ly := d.LeftOf().Delta()
	rx, ry := d.RightOf().Delta()
	ahead := pos.Add(dx, dy)

	// Errors below are impossible: both endpoints are checked with HasNode.
	for _, diag := range []models.Coordinate{ahead.Add(lx, ly), ahead.Add(rx, ry)} {
		if !g.HasNode(diag) || cutsAcross(g, diag, d) {
			continue
		}
		_ = g.SetEdge(pos, diag, w.Diagonal)
	}

	if g.HasNode(ahead) {
		_ = g.SetEdge(pos, ahead, 1)
	}

	// Turning onto a crossing street that runs away to the side.
	sides := []struct {
		at  models.Coordinate
		dir grid.Direction
	}{
		{pos.Add(lx, ly), d.LeftOf()},
		{pos.Add(rx, ry), d.RightOf()},
	}
	for _, s := range sides {
		if n, ok := g.Node(s.at); ok && n.Direction == s.dir {
			_ = g.SetEdge(pos, s.at, 1)
		}
	}

	if n, ok := g.Node(ahead); ok && n.Signal != grid.NoSignal {
		beyond := ahead.Add(dx, dy)
		if g.HasNode(beyond) {
			_ = g.SetEdge(ahead, beyond, w.Signal*SignalScale)
		}
	}
}

// cutsAcross reports whether entering the road at c from a lane heading d
// would cross into a perpendicular or oncoming lane.
func cutsAcross(g *Graph, c models.Coordinate, d grid.Direction) bool {
	n, _ := g.Node(c)
	if n.Direction == grid.NoDirection {
		return false
	}
	return n.Direction.Perpendicular(d) || n.Direction == d.Opposite()
}
