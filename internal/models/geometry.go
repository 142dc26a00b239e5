package models

import "math"

// Vec3 world-space position, Y is vertical
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CellCoord discretized grid coordinate
// X and Z are horizontal cell indices, Y is the floor level
type CellCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Offset returns the coordinate shifted by dx, dz on the same level
func (c CellCoord) Offset(dx, dz int) CellCoord {
	return CellCoord{X: c.X + dx, Y: c.Y, Z: c.Z + dz}
}

// Less orders by level, then Z, then X
func (c CellCoord) Less(o CellCoord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	return c.X < o.X
}

// Cardinal neighbor offsets on the horizontal plane: N, E, S, W
var Cardinal = [4][2]int{
	{0, -1}, {1, 0}, {0, 1}, {-1, 0},
}

// Surrounding neighbor offsets including diagonals: N, NE, E, SE, S, SW, W, NW
var Surrounding = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// RoundHalfAway rounds .5 away from zero so ids stay symmetric around the origin
func RoundHalfAway(v float64) int {
	return int(math.Round(v))
}
