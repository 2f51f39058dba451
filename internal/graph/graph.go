// Package graph holds the directed movement graph vehicles route over, the
// compiler that builds it from a classified map, and the shortest-path router.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	gg "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrNegativeCost = errors.New("negative weight")
	ErrSelfLoop     = errors.New("self loop")
)

// Node is a traversable cell. Direction is set for roads, Signal for lights;
// destinations carry neither.
type Node struct {
	Pos       models.Coordinate
	Direction grid.Direction
	Signal    grid.Signal
}

// Edge is a legal one-step move.
type Edge struct {
	From   models.Coordinate
	To     models.Coordinate
	Weight float64
}

// Graph wraps a gonum weighted digraph keyed by dense int64 ids. The id of a
// node is its insertion index; out keeps per-node successor ids in insertion
// order because gonum iterates adjacency in map order.
type Graph struct {
	wg    *simple.WeightedDirectedGraph
	index map[models.Coordinate]int64
	nodes []Node
	out   [][]int64
}

func newStore() *simple.WeightedDirectedGraph {
	return simple.NewWeightedDirectedGraph(0, math.Inf(1))
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{wg: newStore(), index: make(map[models.Coordinate]int64)}
}

// AddNode inserts n, or replaces the tags of an existing node at n.Pos.
func (g *Graph) AddNode(n Node) {
	if id, ok := g.index[n.Pos]; ok {
		g.nodes[id] = n
		return
	}
	id := int64(len(g.nodes))
	g.index[n.Pos] = id
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.wg.AddNode(simple.Node(id))
}

// HasNode reports whether c is a node.
func (g *Graph) HasNode(c models.Coordinate) bool {
	_, ok := g.index[c]
	return ok
}

// Node returns the node at c.
func (g *Graph) Node(c models.Coordinate) (Node, bool) {
	id, ok := g.index[c]
	if !ok {
		return Node{}, false
	}
	return g.nodes[id], true
}

// SetEdge adds the edge from -> to, or overwrites its weight if present.
func (g *Graph) SetEdge(from, to models.Coordinate, weight float64) error {
	if weight < 0 {
		return fmt.Errorf("edge %v->%v: %w", from, to, ErrNegativeCost)
	}
	fid, ok := g.index[from]
	if !ok {
		return fmt.Errorf("edge source %v: %w", from, ErrNodeNotFound)
	}
	tid, ok := g.index[to]
	if !ok {
		return fmt.Errorf("edge target %v: %w", to, ErrNodeNotFound)
	}
	if fid == tid {
		return fmt.Errorf("edge %v->%v: %w", from, to, ErrSelfLoop)
	}
	if g.wg.WeightedEdge(fid, tid) == nil {
		g.out[fid] = append(g.out[fid], tid)
	}
	g.wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(fid), T: simple.Node(tid), W: weight})
	return nil
}

// weight looks up an edge by id; the caller guarantees both ids exist.
func (g *Graph) weight(fid, tid int64) (float64, bool) {
	e := g.wg.WeightedEdge(fid, tid)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// Weight returns the weight of from -> to.
func (g *Graph) Weight(from, to models.Coordinate) (float64, bool) {
	fid, ok := g.index[from]
	if !ok {
		return 0, false
	}
	tid, ok := g.index[to]
	if !ok {
		return 0, false
	}
	return g.weight(fid, tid)
}

// Penalize adds delta to the weight of from -> to and returns the new
// weight. Weights only grow: a negative delta is rejected.
func (g *Graph) Penalize(from, to models.Coordinate, delta float64) (float64, error) {
	if delta < 0 {
		return 0, fmt.Errorf("penalty %v: %w", delta, ErrNegativeCost)
	}
	fid, ok := g.index[from]
	if !ok {
		return 0, fmt.Errorf("penalize %v->%v: %w", from, to, ErrNodeNotFound)
	}
	tid, ok := g.index[to]
	if !ok {
		return 0, fmt.Errorf("penalize %v->%v: %w", from, to, ErrEdgeNotFound)
	}
	w, ok := g.weight(fid, tid)
	if !ok {
		return 0, fmt.Errorf("penalize %v->%v: %w", from, to, ErrEdgeNotFound)
	}
	w += delta
	g.wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(fid), T: simple.Node(tid), W: w})
	return w, nil
}

// Outgoing returns the edges leaving c in insertion order.
func (g *Graph) Outgoing(c models.Coordinate) []Edge {
	fid, ok := g.index[c]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.out[fid]))
	for _, tid := range g.out[fid] {
		w, _ := g.weight(fid, tid)
		out = append(out, Edge{From: c, To: g.nodes[tid].Pos, Weight: w})
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.wg.Edges().Len() }

// Nodes returns all nodes sorted by coordinate.
func (g *Graph) Nodes() []Node {
	out := append([]Node(nil), g.nodes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

// Edges returns all edges sorted by source then target coordinate.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		out = append(out, g.Outgoing(n.Pos)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From.Less(out[j].From)
		}
		return out[i].To.Less(out[j].To)
	})
	return out
}

// Clone returns a deep copy that shares no memory with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		wg:    newStore(),
		index: make(map[models.Coordinate]int64, len(g.index)),
		nodes: append([]Node(nil), g.nodes...),
		out:   make([][]int64, len(g.out)),
	}
	gg.CopyWeighted(c.wg, g.wg)
	for k, v := range g.index {
		c.index[k] = v
	}
	for i, adj := range g.out {
		c.out[i] = append([]int64(nil), adj...)
	}
	return c
}
