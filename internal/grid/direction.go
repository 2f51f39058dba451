package grid

// Direction is the heading of a one-way road cell.
type Direction byte

const (
	NoDirection Direction = iota
	Up
	Down
	Left
	Right
)

// Delta returns the unit step taken when moving in d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse heading.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return NoDirection
}

// Perpendicular reports whether d and o are at right angles.
func (d Direction) Perpendicular(o Direction) bool {
	if d == NoDirection || o == NoDirection {
		return false
	}
	vertical := func(x Direction) bool { return x == Up || x == Down }
	return vertical(d) != vertical(o)
}

// LeftOf and RightOf return the heading after a quarter turn, as seen by a
// driver facing d.
func (d Direction) LeftOf() Direction {
	switch d {
	case Up:
		return Left
	case Left:
		return Down
	case Down:
		return Right
	case Right:
		return Up
	}
	return NoDirection
}

func (d Direction) RightOf() Direction {
	return d.LeftOf().Opposite()
}

// Symbol returns the map character for d.
func (d Direction) Symbol() rune {
	switch d {
	case Up:
		return '^'
	case Down:
		return 'v'
	case Left:
		return '<'
	case Right:
		return '>'
	}
	return ' '
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	}
	return "None"
}
