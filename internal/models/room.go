package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// Bounds axis aligned world-space box
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Size returns the extent on each axis
func (b Bounds) Size() Vec3 {
	return Vec3{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

// Center returns the midpoint
func (b Bounds) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Footprint projects the box onto the horizontal X/Z plane
func (b Bounds) Footprint() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.Min.X, b.Min.Z},
		Max: orb.Point{b.Max.X, b.Max.Z},
	}
}

// Room a validated region materialized into an addressable entity
// Occupied and OccupantID belong to the repository; rescans never recompute them
type Room struct {
	ID            string      `json:"room_id"`
	FloorLevel    int         `json:"floor_level"`
	Cells         []CellCoord `json:"cells"`
	Bounds        Bounds      `json:"bounds"`
	Center        Vec3        `json:"center"`
	Walls         []string    `json:"walls"`
	Doors         []string    `json:"doors"`
	Beds          []string    `json:"beds"`
	Sunbeds       []string    `json:"sunbeds"`
	DoorPositions []Vec3      `json:"door_positions,omitempty"`
	IsSunbedRoom  bool        `json:"is_sunbed_room"`
	Valid         bool        `json:"valid"`
	Price         float64     `json:"price"`
	Reputation    float64     `json:"reputation"`
	Quality       float64     `json:"quality"`
	Occupied      bool        `json:"occupied"`
	OccupantID    string      `json:"occupant_id,omitempty"`

	// RuntimeHandle identifies the spawned representation, empty when none
	RuntimeHandle string `json:"-"`
}

// Footprint horizontal bounds of the room
func (r *Room) Footprint() orb.Bound {
	return r.Bounds.Footprint()
}

// ContainsPoint reports whether pos lies inside the horizontal footprint
// Floor level is checked by the caller
func (r *Room) ContainsPoint(pos Vec3) bool {
	return r.Footprint().Contains(orb.Point{pos.X, pos.Z})
}

// Clone deep-copies the room so callers never alias repository state
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Cells = append([]CellCoord(nil), r.Cells...)
	c.Walls = append([]string(nil), r.Walls...)
	c.Doors = append([]string(nil), r.Doors...)
	c.Beds = append([]string(nil), r.Beds...)
	c.Sunbeds = append([]string(nil), r.Sunbeds...)
	c.DoorPositions = append([]Vec3(nil), r.DoorPositions...)
	return &c
}

// Fingerprint summarizes geometry and components
// Two rooms with the same id but different fingerprints changed between scans
func (r *Room) Fingerprint() string {
	var sb strings.Builder
	cells := append([]CellCoord(nil), r.Cells...)
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	for _, c := range cells {
		fmt.Fprintf(&sb, "%d,%d,%d;", c.X, c.Y, c.Z)
	}
	for _, group := range [][]string{r.Walls, r.Doors, r.Beds, r.Sunbeds} {
		handles := append([]string(nil), group...)
		sort.Strings(handles)
		sb.WriteString("|")
		sb.WriteString(strings.Join(handles, ","))
	}
	return sb.String()
}

// RoomID builds the stable identifier from the rounded center and floor level
func RoomID(center Vec3, floorLevel int) string {
	return fmt.Sprintf("room_F%d_%d_%d", floorLevel, RoundHalfAway(center.X), RoundHalfAway(center.Z))
}
