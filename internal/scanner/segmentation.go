package scanner

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// SegmenterState per-region expansion state
type SegmenterState int32

const (
	StateIdle SegmenterState = iota
	StateExpanding
	StateCompleted
	StateAborted
)

func (s SegmenterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpanding:
		return "expanding"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Region a maximal connected set of floor/bed cells from one flood fill
// Component lists are deduplicated by handle and sorted by handle
type Region struct {
	Floor int
	Cells []models.CellCoord

	// Boundary cells met by the 4-directional expansion
	BoundaryWalls []models.CellCoord
	BoundaryDoors []models.CellCoord

	Walls   []models.WorldObject
	Doors   []models.WorldObject
	Beds    []models.WorldObject
	Sunbeds []models.WorldObject

	// MinY/MaxY vertical extent of every object owned by or adjacent to the region
	MinY float64
	MaxY float64

	// Standalone marks a single sunbed that no floor region claimed
	Standalone bool
}

// Size number of member cells
func (r *Region) Size() int {
	return len(r.Cells)
}

// Limits hard caps that bound the cost of one region
type Limits struct {
	MaxIterations int
	MaxRegionSize int
}

// Segmentation result of one pass over a grid
type Segmentation struct {
	Regions []*Region
	// Aborted regions hit a cap and were discarded
	Aborted      int
	AbortedCells int
	Iterations   int
}

// Segmenter partitions the walkable cells of a grid into regions
type Segmenter struct {
	limits Limits
	logger *zap.Logger
	state  atomic.Int32
}

// NewSegmenter creates a segmenter. Non-positive limits fall back to bounds
// derived from the grid size
func NewSegmenter(limits Limits, logger *zap.Logger) *Segmenter {
	return &Segmenter{limits: limits, logger: logger}
}

// State current state; Idle between scans
func (s *Segmenter) State() SegmenterState {
	return SegmenterState(s.state.Load())
}

func (s *Segmenter) setState(st SegmenterState) {
	s.state.Store(int32(st))
}

// Segment seeds flood fills from every unprocessed walkable cell in sorted
// order, so no cell ends up in two regions. Sunbeds left unclaimed afterwards
// become standalone single-cell regions
func (s *Segmenter) Segment(g *Grid) *Segmentation {
	defer s.setState(StateIdle)

	limits := s.effectiveLimits(g)
	processed := mapset.New[models.CellCoord]()
	result := &Segmentation{}

	for _, seed := range g.WalkableCells() {
		if processed.Has(seed) {
			continue
		}

		s.setState(StateExpanding)
		region, iterations, reason := s.expand(g, seed, processed, limits)
		result.Iterations += iterations

		if reason != "" {
			s.setState(StateAborted)
			swept := s.sweep(g, seed, processed)
			result.Aborted++
			result.AbortedCells += swept
			s.logger.Warn("Region aborted",
				zap.Int("seed_x", seed.X),
				zap.Int("seed_z", seed.Z),
				zap.Int("floor", seed.Y),
				zap.String("reason", reason),
				zap.Int("iterations", iterations),
				zap.Int("cells", swept),
			)
			continue
		}

		s.collectComponents(g, region)
		result.Regions = append(result.Regions, region)
		s.setState(StateCompleted)
	}

	result.Regions = append(result.Regions, s.standaloneSunbeds(g, result.Regions)...)
	return result
}

func (s *Segmenter) effectiveLimits(g *Grid) Limits {
	limits := s.limits
	// a cell is enqueued at most once per fill
	upper := g.Len() + 1
	if limits.MaxIterations <= 0 || limits.MaxIterations > upper {
		limits.MaxIterations = upper
	}
	if limits.MaxRegionSize <= 0 {
		limits.MaxRegionSize = g.Len()
	}
	return limits
}

// expand runs the bounded breadth-first fill from seed
// Returns a non-empty reason when a cap was hit
func (s *Segmenter) expand(g *Grid, seed models.CellCoord, processed mapset.Set[models.CellCoord], limits Limits) (*Region, int, string) {
	region := &Region{Floor: seed.Y}
	visited := mapset.New[models.CellCoord]()
	queue := []models.CellCoord{seed}
	visited.Put(seed)
	iterations := 0

	for len(queue) > 0 {
		iterations++
		if iterations > limits.MaxIterations {
			return nil, iterations, "max_iterations"
		}

		cur := queue[0]
		queue = queue[1:]

		cell := g.At(cur)
		if cell == nil || !cell.Walkable() || processed.Has(cur) {
			continue
		}
		region.Cells = append(region.Cells, cur)
		processed.Put(cur)
		if len(region.Cells) > limits.MaxRegionSize {
			return nil, iterations, "max_region_size"
		}

		for _, d := range models.Cardinal {
			n := cur.Offset(d[0], d[1])
			if visited.Has(n) {
				continue
			}
			nc := g.At(n)
			if nc == nil {
				continue
			}
			switch nc.EffectiveType() {
			case models.CategoryWall:
				visited.Put(n)
				region.BoundaryWalls = append(region.BoundaryWalls, n)
			case models.CategoryDoor:
				visited.Put(n)
				region.BoundaryDoors = append(region.BoundaryDoors, n)
			case models.CategoryFloor, models.CategoryBed:
				if !processed.Has(n) {
					visited.Put(n)
					queue = append(queue, n)
				}
			}
		}
	}

	sortCoords(region.Cells)
	sortCoords(region.BoundaryWalls)
	sortCoords(region.BoundaryDoors)
	return region, iterations, ""
}

// sweep marks the rest of an aborted component as processed so it cannot
// re-seed as a truncated region. Bounded by the grid size
func (s *Segmenter) sweep(g *Grid, seed models.CellCoord, processed mapset.Set[models.CellCoord]) int {
	seen := mapset.New[models.CellCoord]()
	queue := []models.CellCoord{seed}
	seen.Put(seed)
	count := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		processed.Put(cur)
		count++

		for _, d := range models.Cardinal {
			n := cur.Offset(d[0], d[1])
			if seen.Has(n) {
				continue
			}
			if nc := g.At(n); nc != nil && nc.Walkable() {
				seen.Put(n)
				queue = append(queue, n)
			}
		}
	}
	return count
}

// collectComponents scans each member cell and its 8 neighbors for walls,
// doors, beds and sunbeds. A handle is counted once however many cells touch it
func (s *Segmenter) collectComponents(g *Grid, region *Region) {
	seen := mapset.New[string]()
	region.MinY = math.Inf(1)
	region.MaxY = math.Inf(-1)

	take := func(dst *[]models.WorldObject, objs []models.WorldObject) {
		for _, obj := range objs {
			region.extendY(obj.Position.Y)
			if seen.Has(obj.Handle) {
				continue
			}
			seen.Put(obj.Handle)
			*dst = append(*dst, obj)
		}
	}

	for _, coord := range region.Cells {
		if cell := g.At(coord); cell != nil {
			for _, obj := range cell.Floors {
				region.extendY(obj.Position.Y)
			}
		}
		neighborhood := append([]models.CellCoord{coord}, surrounding(coord)...)
		for _, n := range neighborhood {
			cell := g.At(n)
			if cell == nil {
				continue
			}
			take(&region.Walls, cell.Walls)
			take(&region.Doors, cell.Doors)
			take(&region.Beds, cell.Beds)
			take(&region.Sunbeds, cell.Sunbeds)
		}
	}

	if region.MinY > region.MaxY {
		region.MinY, region.MaxY = 0, 0
	}
	sortObjects(region.Walls)
	sortObjects(region.Doors)
	sortObjects(region.Beds)
	sortObjects(region.Sunbeds)
}

// standaloneSunbeds turns every sunbed not adjacent to an emitted region into
// its own one-cell region
func (s *Segmenter) standaloneSunbeds(g *Grid, regions []*Region) []*Region {
	claimed := mapset.New[string]()
	for _, r := range regions {
		for _, obj := range r.Sunbeds {
			claimed.Put(obj.Handle)
		}
	}

	var out []*Region
	for _, coord := range g.SunbedCells() {
		cell := g.At(coord)
		var free []models.WorldObject
		for _, obj := range cell.Sunbeds {
			if !claimed.Has(obj.Handle) {
				claimed.Put(obj.Handle)
				free = append(free, obj)
			}
		}
		if len(free) == 0 {
			continue
		}
		r := &Region{
			Floor:      coord.Y,
			Cells:      []models.CellCoord{coord},
			Sunbeds:    free,
			Standalone: true,
			MinY:       math.Inf(1),
			MaxY:       math.Inf(-1),
		}
		for _, obj := range free {
			r.extendY(obj.Position.Y)
		}
		sortObjects(r.Sunbeds)
		out = append(out, r)
	}
	return out
}

func (r *Region) extendY(y float64) {
	if y < r.MinY {
		r.MinY = y
	}
	if y > r.MaxY {
		r.MaxY = y
	}
}

func surrounding(c models.CellCoord) []models.CellCoord {
	out := make([]models.CellCoord, 0, len(models.Surrounding))
	for _, d := range models.Surrounding {
		out = append(out, c.Offset(d[0], d[1]))
	}
	return out
}

func sortCoords(coords []models.CellCoord) {
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
}

func sortObjects(objs []models.WorldObject) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Handle < objs[j].Handle })
}
