package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/city-traffic/internal/models"
)

func TestRoute_Straight(t *testing.T) {
	g := compile(t, ">>>>D\n", DefaultWeights())

	path, cost, err := Route(g, xy(0, 0), xy(4, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Coordinate{xy(0, 0), xy(1, 0), xy(2, 0), xy(3, 0), xy(4, 0)}, path)
	assert.Equal(t, 4.0, cost)
}

func TestRoute_SameNode(t *testing.T) {
	g := compile(t, ">>D\n", DefaultWeights())
	path, cost, err := Route(g, xy(1, 0), xy(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.Coordinate{xy(1, 0)}, path)
	assert.Equal(t, 0.0, cost)
}

func TestRoute_NotFound(t *testing.T) {
	g := compile(t, ">>D\n<<D\n", DefaultWeights())

	tests := []struct {
		name     string
		from, to models.Coordinate
	}{
		{"missing source", xy(9, 9), xy(2, 1)},
		{"missing target", xy(0, 1), xy(9, 9)},
		{"dead end lane", xy(0, 0), xy(2, 1)},
		{"against the flow", xy(2, 1), xy(0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Route(g, tt.from, tt.to)
			assert.True(t, errors.Is(err, ErrPathNotFound))
		})
	}
}

func TestRoute_DeadEnd(t *testing.T) {
	g := compile(t, "^D\n", DefaultWeights())
	assert.Empty(t, g.Outgoing(xy(0, 0)))
	_, _, err := Route(g, xy(0, 0), xy(1, 0))
	assert.True(t, errors.Is(err, ErrPathNotFound))
}

func TestRoute_AvoidsSignalledLane(t *testing.T) {
	// Two eastbound lanes; the lower one has a light. The router should pay
	// one diagonal to use the free lane rather than wait at the light.
	g := compile(t, ">>>>D\n>S>>D\n", DefaultWeights())

	path, _, err := Route(g, xy(0, 0), xy(4, 0))
	require.NoError(t, err)
	assert.NotContains(t, path, xy(1, 0))
}

func TestRoute_TieBreakIsDeterministic(t *testing.T) {
	g := compile(t, "^^\n^^\n^^\n", DefaultWeights())

	first, cost, err := Route(g, xy(0, 0), xy(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2.5, cost)
	assert.Equal(t, []models.Coordinate{xy(0, 0), xy(0, 1), xy(1, 2)}, first)

	for i := 0; i < 10; i++ {
		again, _, err := Route(g.Clone(), xy(0, 0), xy(1, 2))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRoute_PenaltyDivertsPath(t *testing.T) {
	g := compile(t, ">>>>D\n>>>>D\n", DefaultWeights())

	path, _, err := Route(g, xy(0, 0), xy(4, 0))
	require.NoError(t, err)
	require.Equal(t, xy(1, 0), path[1])

	_, err = g.Penalize(xy(0, 0), xy(1, 0), 5)
	require.NoError(t, err)

	path, _, err = Route(g, xy(0, 0), xy(4, 0))
	require.NoError(t, err)
	assert.Equal(t, xy(1, 1), path[1])
	assert.Equal(t, xy(4, 0), path[len(path)-1])
}
