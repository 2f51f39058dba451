package grid

import (
	"github.com/pkg/errors"
)

// Kind is the closed set of cell variants a map can contain.
type Kind int

const (
	Empty Kind = iota
	Road
	TrafficLight
	Obstacle
	Destination
)

func (k Kind) String() string {
	switch k {
	case Road:
		return "road"
	case TrafficLight:
		return "traffic_light"
	case Obstacle:
		return "obstacle"
	case Destination:
		return "destination"
	}
	return "empty"
}

// Signal distinguishes the two traffic light classes.
type Signal int

const (
	NoSignal Signal = iota
	SignalLong
	SignalShort
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	}
	return "none"
}

// Map symbols.
const (
	SymbolLongLight  = 'S'
	SymbolShortLight = 's'
	SymbolObstacle   = '#'
	SymbolDest       = 'D'
)

// Cell is one classified map position. Direction is set only for roads;
// Signal, Period and Green only for traffic lights.
type Cell struct {
	Kind      Kind
	Direction Direction
	Signal    Signal
	Period    int
	Green     bool
}

// Traversable reports whether a vehicle can ever stand on or enter the cell.
func (c Cell) Traversable() bool {
	switch c.Kind {
	case Road, TrafficLight, Destination:
		return true
	}
	return false
}

// Classify maps one map character to its cell. Long lights start red,
// short lights start green; both take their period from the lookup.
func Classify(ch rune, lookup Lookup) (Cell, error) {
	switch ch {
	case '^':
		return Cell{Kind: Road, Direction: Up}, nil
	case 'v':
		return Cell{Kind: Road, Direction: Down}, nil
	case '<':
		return Cell{Kind: Road, Direction: Left}, nil
	case '>':
		return Cell{Kind: Road, Direction: Right}, nil
	case SymbolLongLight, SymbolShortLight:
		period, ok := lookup.Period(ch)
		if !ok {
			return Cell{}, errors.Wrapf(ErrParse, "no period for light symbol %q", ch)
		}
		if ch == SymbolLongLight {
			return Cell{Kind: TrafficLight, Signal: SignalLong, Period: period, Green: false}, nil
		}
		return Cell{Kind: TrafficLight, Signal: SignalShort, Period: period, Green: true}, nil
	case SymbolObstacle:
		return Cell{Kind: Obstacle}, nil
	case SymbolDest:
		return Cell{Kind: Destination}, nil
	}
	return Cell{Kind: Empty}, nil
}
