package scanner

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/zyedidia/generic/mapset"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// Rules thresholds for the standard room track
// Extents are measured in cells on the horizontal axes
type Rules struct {
	MinWalls      int
	MinDoors      int
	MinBeds       int
	MaxRoomSize   int
	MinExtent     int
	MaxExtent     int
	DoorTolerance float64 // in cells
}

// DefaultRules returns the rules used when nothing is configured
func DefaultRules() Rules {
	return Rules{
		MinWalls:      3,
		MinDoors:      1,
		MinBeds:       1,
		MaxRoomSize:   100,
		MinExtent:     1,
		MaxExtent:     20,
		DoorTolerance: 1.5,
	}
}

// QualityWeights weights of the ranking score
type QualityWeights struct {
	Cell        float64
	Bed         float64
	Door        float64
	DoorCap     int
	SunbedBonus float64
	Price       float64
}

// DefaultQualityWeights returns the default ranking weights
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Cell:        1,
		Bed:         10,
		Door:        5,
		DoorCap:     2,
		SunbedBonus: 15,
		Price:       0.1,
	}
}

// Verdict outcome of validating one region
type Verdict struct {
	Valid   bool
	Sunbed  bool
	Reasons []string
}

// Validator applies the standard or the sunbed track to a region
type Validator struct {
	rules    Rules
	weights  QualityWeights
	cellSize float64
}

// NewValidator creates a validator for grids built with cellSize
func NewValidator(rules Rules, weights QualityWeights, cellSize float64) *Validator {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Validator{rules: rules, weights: weights, cellSize: cellSize}
}

// Rules returns the configured thresholds
func (v *Validator) Rules() Rules {
	return v.rules
}

// IsSunbedRegion regions without beds that hold sunbeds, and orphan sunbeds,
// take the sunbed track
func IsSunbedRegion(r *Region) bool {
	return r.Standalone || (len(r.Sunbeds) > 0 && len(r.Beds) == 0)
}

// Validate checks a region. Failing regions get every failed check in Reasons
func (v *Validator) Validate(r *Region) Verdict {
	if IsSunbedRegion(r) {
		return v.validateSunbed(r)
	}
	return v.validateStandard(r)
}

func (v *Validator) validateSunbed(r *Region) Verdict {
	verdict := Verdict{Sunbed: true}
	if len(r.Sunbeds) < 1 {
		verdict.Reasons = append(verdict.Reasons, "no sunbed")
	}
	if r.Size() < 1 {
		verdict.Reasons = append(verdict.Reasons, "no floor cell")
	}
	verdict.Valid = len(verdict.Reasons) == 0
	return verdict
}

func (v *Validator) validateStandard(r *Region) Verdict {
	var reasons []string
	fail := func(format string, args ...interface{}) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if n := len(r.Walls); n < v.rules.MinWalls {
		fail("walls %d < %d", n, v.rules.MinWalls)
	}
	if n := len(r.Doors); n < v.rules.MinDoors {
		fail("doors %d < %d", n, v.rules.MinDoors)
	}
	if n := len(r.Beds); n < v.rules.MinBeds {
		fail("beds %d < %d", n, v.rules.MinBeds)
	}

	size := r.Size()
	if size < 1 || (v.rules.MaxRoomSize > 0 && size > v.rules.MaxRoomSize) {
		fail("size %d outside [1, %d]", size, v.rules.MaxRoomSize)
	}

	if size > 0 {
		ex, ez := cellExtents(r.Cells)
		if ex < v.rules.MinExtent || ez < v.rules.MinExtent {
			fail("extent %dx%d below %d", ex, ez, v.rules.MinExtent)
		}
		if v.rules.MaxExtent > 0 && (ex > v.rules.MaxExtent || ez > v.rules.MaxExtent) {
			fail("extent %dx%d above %d", ex, ez, v.rules.MaxExtent)
		}
		if len(r.Doors) > 0 && !v.Accessible(r) {
			fail("no reachable door within %.2f cells of footprint", v.rules.DoorTolerance)
		}
	}

	return Verdict{Valid: len(reasons) == 0, Reasons: reasons}
}

// Accessible reports whether at least one door sits on a boundary cell the
// fill reached edge-on and lies inside the footprint padded by the door
// tolerance. Doors touching the region only at a corner do not count
func (v *Validator) Accessible(r *Region) bool {
	reachable := mapset.New[[2]int]()
	for _, c := range r.BoundaryDoors {
		reachable.Put([2]int{c.X, c.Z})
	}

	footprint := v.Footprint(r.Cells).Pad(v.rules.DoorTolerance * v.cellSize)
	for _, door := range r.Doors {
		cell := [2]int{
			models.RoundHalfAway(door.Position.X / v.cellSize),
			models.RoundHalfAway(door.Position.Z / v.cellSize),
		}
		if !reachable.Has(cell) {
			continue
		}
		if footprint.Contains(orb.Point{door.Position.X, door.Position.Z}) {
			return true
		}
	}
	return false
}

// Footprint world-space horizontal box covering every cell
func (v *Validator) Footprint(cells []models.CellCoord) orb.Bound {
	half := v.cellSize / 2
	var b orb.Bound
	for i, c := range cells {
		x, z := float64(c.X)*v.cellSize, float64(c.Z)*v.cellSize
		cell := orb.Bound{Min: orb.Point{x - half, z - half}, Max: orb.Point{x + half, z + half}}
		if i == 0 {
			b = cell
			continue
		}
		b = b.Union(cell)
	}
	return b
}

// Quality ranking score; never used for pass/fail
func (v *Validator) Quality(room *models.Room) float64 {
	w := v.weights
	doors := len(room.Doors)
	if w.DoorCap > 0 && doors > w.DoorCap {
		doors = w.DoorCap
	}
	score := w.Cell*float64(len(room.Cells)) +
		w.Bed*float64(len(room.Beds)) +
		w.Door*float64(doors) +
		w.Price*room.Price
	if len(room.Sunbeds) > 0 {
		score += w.SunbedBonus
	}
	return math.Round(score*100) / 100
}

func cellExtents(cells []models.CellCoord) (int, int) {
	minX, maxX := cells[0].X, cells[0].X
	minZ, maxZ := cells[0].Z, cells[0].Z
	for _, c := range cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minZ, maxZ = min(minZ, c.Z), max(maxZ, c.Z)
	}
	return maxX - minX + 1, maxZ - minZ + 1
}
