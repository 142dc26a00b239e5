package scanner

import (
	"math"
	"sort"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// Cell one discretized coordinate and the objects that landed on it
type Cell struct {
	Coord models.CellCoord

	IsFloor  bool
	IsWall   bool
	IsDoor   bool
	IsBed    bool
	IsSunbed bool

	Floors  []models.WorldObject
	Walls   []models.WorldObject
	Doors   []models.WorldObject
	Beds    []models.WorldObject
	Sunbeds []models.WorldObject
}

// EffectiveType resolves overlapping flags: wall > door > bed > floor
// A cell holding only sunbeds reports sunbed; an empty cell reports ""
func (c *Cell) EffectiveType() models.Category {
	switch {
	case c.IsWall:
		return models.CategoryWall
	case c.IsDoor:
		return models.CategoryDoor
	case c.IsBed:
		return models.CategoryBed
	case c.IsFloor:
		return models.CategoryFloor
	case c.IsSunbed:
		return models.CategorySunbed
	}
	return ""
}

// Walkable reports whether flood fill may expand into the cell
func (c *Cell) Walkable() bool {
	t := c.EffectiveType()
	return t == models.CategoryFloor || t == models.CategoryBed
}

func (c *Cell) add(obj models.WorldObject) {
	switch obj.Category {
	case models.CategoryFloor:
		c.IsFloor = true
		c.Floors = append(c.Floors, obj)
	case models.CategoryWall:
		c.IsWall = true
		c.Walls = append(c.Walls, obj)
	case models.CategoryDoor:
		c.IsDoor = true
		c.Doors = append(c.Doors, obj)
	case models.CategoryBed:
		c.IsBed = true
		c.Beds = append(c.Beds, obj)
	case models.CategorySunbed:
		c.IsSunbed = true
		c.Sunbeds = append(c.Sunbeds, obj)
	}
}

// FloorFilter limits a build to some levels; nil accepts every level
type FloorFilter func(level int) bool

// SingleFloor accepts exactly one level
func SingleFloor(level int) FloorFilter {
	return func(l int) bool { return l == level }
}

// GridOptions controls discretization
type GridOptions struct {
	CellSize float64
	// VerticalOffsets shifts an object's Y before the level lookup so markers that
	// sit slightly below or above the nominal surface land on the floor's level
	VerticalOffsets map[models.Category]float64
	Floors          FloorProvider
}

// Grid hash map from coordinate to cell, rebuilt from scratch for every scan
type Grid struct {
	cellSize float64
	floors   FloorProvider
	offsets  map[models.Category]float64
	cells    map[models.CellCoord]*Cell

	objects int
	skipped int
}

// BuildGrid indexes every object whose level passes filter. O(objects)
func BuildGrid(objects map[models.Category][]models.WorldObject, opts GridOptions, filter FloorFilter) *Grid {
	cellSize := opts.CellSize
	if cellSize <= 0 {
		cellSize = 1
	}
	floors := opts.Floors
	if floors == nil {
		floors = NewStoreyFloors(math.MaxFloat64, 1, nil)
	}

	g := &Grid{
		cellSize: cellSize,
		floors:   floors,
		offsets:  opts.VerticalOffsets,
		cells:    make(map[models.CellCoord]*Cell),
	}

	for _, cat := range models.Categories {
		for _, obj := range objects[cat] {
			obj.Category = cat
			coord := g.Discretize(cat, obj.Position)
			if filter != nil && !filter(coord.Y) {
				g.skipped++
				continue
			}
			cell, ok := g.cells[coord]
			if !ok {
				cell = &Cell{Coord: coord}
				g.cells[coord] = cell
			}
			cell.add(obj)
			g.objects++
		}
	}

	return g
}

// Discretize maps a world position of the given category to its cell
func (g *Grid) Discretize(cat models.Category, pos models.Vec3) models.CellCoord {
	return models.CellCoord{
		X: models.RoundHalfAway(pos.X / g.cellSize),
		Y: g.floors.FloorLevelOf(pos.Y + g.offsets[cat]),
		Z: models.RoundHalfAway(pos.Z / g.cellSize),
	}
}

// CellSize world units per cell
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// At returns the cell at coord or nil. O(1)
func (g *Grid) At(coord models.CellCoord) *Cell {
	return g.cells[coord]
}

// Len number of occupied cells
func (g *Grid) Len() int {
	return len(g.cells)
}

// ObjectCount objects indexed; SkippedCount objects filtered out by level
func (g *Grid) ObjectCount() int { return g.objects }
func (g *Grid) SkippedCount() int { return g.skipped }

// CellCenter world X/Z of a cell center on the horizontal plane
func (g *Grid) CellCenter(coord models.CellCoord) (x, z float64) {
	return float64(coord.X) * g.cellSize, float64(coord.Z) * g.cellSize
}

// WalkableCells floor/bed cells sorted by level, Z, X
func (g *Grid) WalkableCells() []models.CellCoord {
	return g.collect(func(c *Cell) bool { return c.Walkable() })
}

// SunbedCells cells holding at least one sunbed, sorted
func (g *Grid) SunbedCells() []models.CellCoord {
	return g.collect(func(c *Cell) bool { return c.IsSunbed })
}

// Levels distinct levels present in the grid, ascending
func (g *Grid) Levels() []int {
	seen := make(map[int]bool)
	for coord := range g.cells {
		seen[coord.Y] = true
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (g *Grid) collect(keep func(*Cell) bool) []models.CellCoord {
	out := make([]models.CellCoord, 0, len(g.cells))
	for coord, cell := range g.cells {
		if keep(cell) {
			out = append(out, coord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
