package graph

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/ukydev/city-traffic/internal/models"
)

// ErrPathNotFound is returned when either endpoint is missing or the target
// is unreachable.
var ErrPathNotFound = errors.New("path not found")

// Route computes the minimum-weight path from -> to with Dijkstra. The path
// includes both endpoints. Equal-cost frontier nodes are expanded in
// coordinate order and successors are relaxed in insertion order, so
// identical graphs always yield identical paths. gonum's path.DijkstraFrom
// relaxes in map order and cannot give that guarantee.
func Route(g *Graph, from, to models.Coordinate) ([]models.Coordinate, float64, error) {
	start, ok := g.index[from]
	if !ok {
		return nil, 0, fmt.Errorf("source %v: %w", from, ErrPathNotFound)
	}
	goal, ok := g.index[to]
	if !ok {
		return nil, 0, fmt.Errorf("target %v: %w", to, ErrPathNotFound)
	}

	dist := make([]float64, len(g.nodes))
	prev := make([]int64, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[start] = 0

	pq := &priorityQueue{}
	heap.Push(pq, &item{node: start, pos: from, priority: 0})

	for pq.Len() > 0 {
		u := heap.Pop(pq).(*item).node
		if done[u] {
			continue
		}
		done[u] = true
		if u == goal {
			break
		}
		for _, v := range g.out[u] {
			w, _ := g.weight(u, v)
			alt := dist[u] + w
			if alt < dist[v] {
				dist[v] = alt
				prev[v] = u
				heap.Push(pq, &item{node: v, pos: g.nodes[v].Pos, priority: alt})
			}
		}
	}

	if math.IsInf(dist[goal], 1) {
		return nil, 0, fmt.Errorf("%v -> %v: %w", from, to, ErrPathNotFound)
	}

	var path []models.Coordinate
	for u := goal; u != -1; u = prev[u] {
		path = append(path, g.nodes[u].Pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, dist[goal], nil
}

// ---------- internal PQ ----------
type item struct {
	node     int64
	pos      models.Coordinate
	priority float64
}
type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].pos.Less(pq[j].pos)
}
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*item)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}
