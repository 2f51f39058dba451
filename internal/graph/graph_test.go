package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
)

func xy(x, y int) models.Coordinate { return models.Coordinate{X: x, Y: y} }

func compile(t *testing.T, text string, w Weights) *Graph {
	t.Helper()
	m, err := grid.ParseMap(text, grid.Lookup{"S": 10, "s": 4})
	require.NoError(t, err)
	return Compile(m, w)
}

func TestCompile_StraightRoad(t *testing.T) {
	g := compile(t, ">>>>D\n", DefaultWeights())

	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, []Edge{
		{From: xy(0, 0), To: xy(1, 0), Weight: 1},
		{From: xy(1, 0), To: xy(2, 0), Weight: 1},
		{From: xy(2, 0), To: xy(3, 0), Weight: 1},
		{From: xy(3, 0), To: xy(4, 0), Weight: 1},
	}, g.Edges())

	n, ok := g.Node(xy(4, 0))
	require.True(t, ok)
	assert.Equal(t, grid.NoDirection, n.Direction)
	assert.Empty(t, g.Outgoing(xy(4, 0)))
}

func TestCompile_ParallelLanesGetDiagonalEdges(t *testing.T) {
	g := compile(t, "^^\n^^\n", Weights{Diagonal: 2.5, Signal: 5})

	w, ok := g.Weight(xy(0, 0), xy(0, 1))
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)

	w, ok = g.Weight(xy(0, 0), xy(1, 1))
	assert.True(t, ok)
	assert.Equal(t, 2.5, w)

	w, ok = g.Weight(xy(1, 0), xy(0, 1))
	assert.True(t, ok)
	assert.Equal(t, 2.5, w)

	assert.Equal(t, 4, g.EdgeCount())
}

func TestCompile_DiagonalIntoCrossingLaneExcluded(t *testing.T) {
	t.Run("perpendicular", func(t *testing.T) {
		g := compile(t, ">>\n^ \n", DefaultWeights())
		_, ok := g.Weight(xy(0, 0), xy(1, 1))
		assert.False(t, ok)
		_, ok = g.Weight(xy(0, 0), xy(0, 1))
		assert.True(t, ok)
	})

	t.Run("oncoming", func(t *testing.T) {
		g := compile(t, "^v\n^v\n", DefaultWeights())
		_, ok := g.Weight(xy(0, 0), xy(1, 1))
		assert.False(t, ok)
		_, ok = g.Weight(xy(1, 1), xy(0, 0))
		assert.False(t, ok)
		_, ok = g.Weight(xy(1, 1), xy(1, 0))
		assert.True(t, ok)
	})

	t.Run("destination diagonal allowed", func(t *testing.T) {
		g := compile(t, " D\n^ \n", DefaultWeights())
		w, ok := g.Weight(xy(0, 0), xy(1, 1))
		assert.True(t, ok)
		assert.Equal(t, 1.5, w)
	})
}

func TestCompile_SideTurns(t *testing.T) {
	g := compile(t, "<^>\n", DefaultWeights())

	w, ok := g.Weight(xy(1, 0), xy(0, 0))
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)
	_, ok = g.Weight(xy(1, 0), xy(2, 0))
	assert.True(t, ok)

	g = compile(t, "<>^<>\n", DefaultWeights())
	_, ok = g.Weight(xy(2, 0), xy(1, 0))
	assert.False(t, ok, "left side faces the wrong way")
	_, ok = g.Weight(xy(2, 0), xy(3, 0))
	assert.False(t, ok, "right side faces the wrong way")
}

func TestCompile_SignalApproach(t *testing.T) {
	g := compile(t, ">S>D\n", Weights{Diagonal: 1.5, Signal: 2})

	w, ok := g.Weight(xy(0, 0), xy(1, 0))
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)

	w, ok = g.Weight(xy(1, 0), xy(2, 0))
	assert.True(t, ok)
	assert.Equal(t, 2.0*SignalScale, w)

	n, _ := g.Node(xy(1, 0))
	assert.Equal(t, grid.SignalLong, n.Signal)
}

func TestCompile_LightWithNothingBeyond(t *testing.T) {
	g := compile(t, ">s\n", DefaultWeights())
	assert.Empty(t, g.Outgoing(xy(1, 0)))
}

func TestCompile_Idempotent(t *testing.T) {
	text := "v<<<<D\nv#S^^^\nvs>>>^\nv>>>>^\n"
	a := compile(t, text, DefaultWeights())
	b := compile(t, text, DefaultWeights())

	assert.Equal(t, a.Nodes(), b.Nodes())
	assert.Equal(t, a.Edges(), b.Edges())
}

func TestGraph_SetEdge(t *testing.T) {
	g := New()
	g.AddNode(Node{Pos: xy(0, 0)})
	g.AddNode(Node{Pos: xy(1, 0)})

	require.NoError(t, g.SetEdge(xy(0, 0), xy(1, 0), 2))
	require.NoError(t, g.SetEdge(xy(0, 0), xy(1, 0), 3))
	assert.Equal(t, 1, g.EdgeCount())
	w, _ := g.Weight(xy(0, 0), xy(1, 0))
	assert.Equal(t, 3.0, w)

	assert.True(t, errors.Is(g.SetEdge(xy(0, 0), xy(9, 9), 1), ErrNodeNotFound))
	assert.True(t, errors.Is(g.SetEdge(xy(9, 9), xy(0, 0), 1), ErrNodeNotFound))
	assert.True(t, errors.Is(g.SetEdge(xy(0, 0), xy(1, 0), -1), ErrNegativeCost))
}

func TestGraph_Penalize(t *testing.T) {
	g := compile(t, ">>D\n", DefaultWeights())

	w, err := g.Penalize(xy(0, 0), xy(1, 0), 5)
	require.NoError(t, err)
	assert.Equal(t, 6.0, w)

	w, err = g.Penalize(xy(0, 0), xy(1, 0), 5)
	require.NoError(t, err)
	assert.Equal(t, 11.0, w)

	_, err = g.Penalize(xy(0, 0), xy(1, 0), -1)
	assert.True(t, errors.Is(err, ErrNegativeCost))

	_, err = g.Penalize(xy(0, 0), xy(2, 0), 1)
	assert.True(t, errors.Is(err, ErrEdgeNotFound))

	_, err = g.Penalize(xy(7, 7), xy(2, 0), 1)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := compile(t, ">>D\n", DefaultWeights())
	before := g.Edges()

	c := g.Clone()
	_, err := c.Penalize(xy(0, 0), xy(1, 0), 5)
	require.NoError(t, err)
	c.AddNode(Node{Pos: xy(5, 5)})
	require.NoError(t, c.SetEdge(xy(2, 0), xy(5, 5), 1))

	assert.Equal(t, before, g.Edges())
	assert.False(t, g.HasNode(xy(5, 5)))
	assert.NotEqual(t, g.Edges(), c.Edges())
}

func TestGraph_SetEdgeRejectsSelfLoop(t *testing.T) {
	g := New()
	g.AddNode(Node{Pos: xy(0, 0)})

	err := g.SetEdge(xy(0, 0), xy(0, 0), 1)
	assert.True(t, errors.Is(err, ErrSelfLoop))
	assert.Zero(t, g.EdgeCount())
}

func TestGraph_OutgoingKeepsInsertionOrder(t *testing.T) {
	g := New()
	for _, c := range []models.Coordinate{xy(1, 1), xy(2, 1), xy(0, 1), xy(1, 0), xy(1, 2)} {
		g.AddNode(Node{Pos: c})
	}
	require.NoError(t, g.SetEdge(xy(1, 1), xy(2, 1), 1))
	require.NoError(t, g.SetEdge(xy(1, 1), xy(0, 1), 2))
	require.NoError(t, g.SetEdge(xy(1, 1), xy(1, 0), 3))
	require.NoError(t, g.SetEdge(xy(1, 1), xy(1, 2), 4))
	_, err := g.Penalize(xy(1, 1), xy(0, 1), 1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, []Edge{
			{From: xy(1, 1), To: xy(2, 1), Weight: 1},
			{From: xy(1, 1), To: xy(0, 1), Weight: 3},
			{From: xy(1, 1), To: xy(1, 0), Weight: 3},
			{From: xy(1, 1), To: xy(1, 2), Weight: 4},
		}, g.Outgoing(xy(1, 1)))
	}
	assert.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, 4, g.Clone().EdgeCount())
}
