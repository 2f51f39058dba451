package grid

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ukydev/city-traffic/internal/models"
)

// Map is a classified city grid. Cells are immutable after parsing; light
// phases live in the traffic controller, not here.
type Map struct {
	Width  int
	Height int
	cells  []Cell
}

// LoadMap reads and parses a map file.
func LoadMap(path string, lookup Lookup) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read map %s", path)
	}
	return ParseMap(string(data), lookup)
}

// ParseMap classifies every character of a map text. Rows must all have the
// same width; trailing blank lines are ignored.
func ParseMap(text string, lookup Lookup) (*Map, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, errors.Wrap(ErrParse, "map is empty")
	}

	rows := make([][]rune, len(lines))
	width := len([]rune(lines[0]))
	if width == 0 {
		return nil, errors.Wrap(ErrParse, "first map row is empty")
	}
	for r, line := range lines {
		rows[r] = []rune(line)
		if len(rows[r]) != width {
			return nil, errors.Wrapf(ErrParse, "row %d has width %d, expected %d", r, len(rows[r]), width)
		}
	}

	m := &Map{Width: width, Height: len(rows), cells: make([]Cell, width*len(rows))}
	for r, row := range rows {
		for c, ch := range row {
			cell, err := Classify(ch, lookup)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", r, c)
			}
			m.cells[m.index(m.coordinateOf(r, c))] = cell
		}
	}
	return m, nil
}

// coordinateOf converts a file row/column into a grid coordinate; the first
// row of the file is the top of the grid.
func (m *Map) coordinateOf(row, col int) models.Coordinate {
	return models.Coordinate{X: col, Y: m.Height - row - 1}
}

func (m *Map) index(c models.Coordinate) int {
	return c.Y*m.Width + c.X
}

// InBounds reports whether c lies on the grid.
func (m *Map) InBounds(c models.Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.Width && c.Y < m.Height
}

// At returns the cell at c; out-of-bounds coordinates are Empty.
func (m *Map) At(c models.Coordinate) Cell {
	if !m.InBounds(c) {
		return Cell{Kind: Empty}
	}
	return m.cells[m.index(c)]
}

// CellID is the stable identifier of a cell derived from its file position.
func (m *Map) CellID(c models.Coordinate) int {
	row := m.Height - c.Y - 1
	return row*m.Width + c.X
}

// Coordinates lists every cell in file order (top row first, left to right).
func (m *Map) Coordinates() []models.Coordinate {
	out := make([]models.Coordinate, 0, len(m.cells))
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			out = append(out, m.coordinateOf(r, c))
		}
	}
	return out
}

// Filter returns the coordinates of all cells of kind k in file order.
func (m *Map) Filter(k Kind) []models.Coordinate {
	var out []models.Coordinate
	for _, c := range m.Coordinates() {
		if m.At(c).Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Destinations returns destination cells sorted by coordinate.
func (m *Map) Destinations() []models.Coordinate {
	out := m.Filter(Destination)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Corners returns the four grid corners, deduplicated, in the order
// bottom-left, bottom-right, top-left, top-right.
func (m *Map) Corners() []models.Coordinate {
	candidates := []models.Coordinate{
		{X: 0, Y: 0},
		{X: m.Width - 1, Y: 0},
		{X: 0, Y: m.Height - 1},
		{X: m.Width - 1, Y: m.Height - 1},
	}
	seen := map[models.Coordinate]bool{}
	var out []models.Coordinate
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
