// Package traffic runs the traffic light state machines.
package traffic

import (
	"fmt"
	"sort"

	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
)

// Light is one signal. Period and the initial phase never change after
// construction; only Green flips.
type Light struct {
	ID     int
	Pos    models.Coordinate
	Signal grid.Signal
	Period int
	Green  bool
}

// Advance flips the light when tick is a multiple of its period.
func (l *Light) Advance(tick int) {
	if tick%l.Period == 0 {
		l.Green = !l.Green
	}
}

// Controller owns every light of a city.
type Controller struct {
	lights []*Light
	byPos  map[models.Coordinate]*Light
}

// NewController creates one light per TrafficLight cell of m, ordered by id.
func NewController(m *grid.Map) (*Controller, error) {
	c := &Controller{byPos: make(map[models.Coordinate]*Light)}
	for _, pos := range m.Filter(grid.TrafficLight) {
		cell := m.At(pos)
		if cell.Period <= 0 {
			return nil, fmt.Errorf("light at %v: period %d must be positive", pos, cell.Period)
		}
		l := &Light{
			ID:     m.CellID(pos),
			Pos:    pos,
			Signal: cell.Signal,
			Period: cell.Period,
			Green:  cell.Green,
		}
		c.lights = append(c.lights, l)
		c.byPos[pos] = l
	}
	sort.Slice(c.lights, func(i, j int) bool { return c.lights[i].ID < c.lights[j].ID })
	return c, nil
}

// Advance drives every light for the given tick.
func (c *Controller) Advance(tick int) {
	for _, l := range c.lights {
		l.Advance(tick)
	}
}

// IsRed reports whether there is a red light at pos.
func (c *Controller) IsRed(pos models.Coordinate) bool {
	l, ok := c.byPos[pos]
	return ok && !l.Green
}

// Len returns the number of lights.
func (c *Controller) Len() int { return len(c.lights) }

// States returns the externally visible light states ordered by id.
func (c *Controller) States() []models.LightState {
	out := make([]models.LightState, 0, len(c.lights))
	for _, l := range c.lights {
		out = append(out, models.LightState{ID: l.ID, X: l.Pos.X, Y: l.Pos.Y, IsGreen: l.Green})
	}
	return out
}

// Clone returns an independent copy.
func (c *Controller) Clone() *Controller {
	out := &Controller{byPos: make(map[models.Coordinate]*Light, len(c.lights))}
	for _, l := range c.lights {
		cp := *l
		out.lights = append(out.lights, &cp)
		out.byPos[cp.Pos] = &cp
	}
	return out
}
