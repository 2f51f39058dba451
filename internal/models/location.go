package models

import "fmt"

// Coordinate is a grid cell position. X grows to the right, Y grows upward
// (the first line of a map file is the highest row).
type Coordinate struct {
	X int `bson:"x" json:"x"`
	Y int `bson:"y" json:"y"`
}

// Add returns c shifted by (dx, dy).
func (c Coordinate) Add(dx, dy int) Coordinate {
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

// Less orders coordinates by X, then Y.
func (c Coordinate) Less(o Coordinate) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
