package scanner

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

func TestSegment_SimpleRoom(t *testing.T) {
	g := BuildGrid(layout(0, simpleRoom...), GridOptions{CellSize: 1}, nil)
	seg := NewSegmenter(Limits{MaxIterations: 10000, MaxRegionSize: 100}, zap.NewNop())

	result := seg.Segment(g)

	require.Len(t, result.Regions, 1)
	r := result.Regions[0]
	assert.Equal(t, 9, r.Size())
	assert.Len(t, r.Walls, 15)
	assert.Len(t, r.Doors, 1)
	assert.Len(t, r.Beds, 1)
	assert.Empty(t, r.Sunbeds)
	assert.False(t, r.Standalone)
	assert.Len(t, r.BoundaryDoors, 1)
	assert.Equal(t, 0, result.Aborted)
	assert.Equal(t, StateIdle, seg.State())
}

func TestSegment_OrphanSunbedBecomesStandaloneRegion(t *testing.T) {
	world := merge(
		layout(0, simpleRoom...),
		layout(0,
			"",
			"",
			"",
			"",
			"",
			"",
			"",
			"",
			"          S",
		),
	)
	g := BuildGrid(world, GridOptions{CellSize: 1}, nil)

	result := NewSegmenter(Limits{}, zap.NewNop()).Segment(g)

	require.Len(t, result.Regions, 2)
	sunbed := result.Regions[1]
	assert.True(t, sunbed.Standalone)
	assert.Equal(t, []models.CellCoord{{X: 10, Y: 0, Z: 8}}, sunbed.Cells)
	require.Len(t, sunbed.Sunbeds, 1)
	assert.Empty(t, sunbed.Walls)
}

func TestSegment_SunbedNextToRoomIsNotStandalone(t *testing.T) {
	g := BuildGrid(layout(0,
		"#####",
		"#...#",
		"#.BSD",
		"#...#",
		"#####",
	), GridOptions{CellSize: 1}, nil)

	result := NewSegmenter(Limits{}, zap.NewNop()).Segment(g)

	require.Len(t, result.Regions, 1)
	assert.Len(t, result.Regions[0].Sunbeds, 1)
	assert.Equal(t, 8, result.Regions[0].Size())
}

func TestSegment_RunawayRegionIsAborted(t *testing.T) {
	rows := []string{strings.Repeat("#", 14)}
	for i := 0; i < 12; i++ {
		rows = append(rows, "#"+strings.Repeat(".", 12)+"#")
	}
	rows = append(rows, strings.Repeat("#", 14))
	g := BuildGrid(layout(0, rows...), GridOptions{CellSize: 1}, nil)

	result := NewSegmenter(Limits{MaxIterations: 10000, MaxRegionSize: 100}, zap.NewNop()).Segment(g)

	assert.Empty(t, result.Regions)
	assert.Equal(t, 1, result.Aborted)
	assert.Equal(t, 144, result.AbortedCells)
}

func TestSegment_IterationCapAborts(t *testing.T) {
	g := BuildGrid(layout(0, simpleRoom...), GridOptions{CellSize: 1}, nil)

	result := NewSegmenter(Limits{MaxIterations: 3, MaxRegionSize: 100}, zap.NewNop()).Segment(g)

	assert.Empty(t, result.Regions)
	assert.Equal(t, 1, result.Aborted)
}

func TestSegment_PartitionsWalkableCells(t *testing.T) {
	g := BuildGrid(layout(0,
		"#########",
		"#...#...#",
		"#.B.#.B.D",
		"#...D...#",
		"#########",
		"  .....  ",
	), GridOptions{CellSize: 1}, nil)

	result := NewSegmenter(Limits{}, zap.NewNop()).Segment(g)

	require.Len(t, result.Regions, 3)
	counts := cellSet(result.Regions)
	for coord, n := range counts {
		assert.Equal(t, 1, n, "cell %v in %d regions", coord, n)
	}
	assert.Len(t, counts, len(g.WalkableCells()))
}

func TestSegment_DeterministicAcrossInputOrder(t *testing.T) {
	world := layout(0,
		"#########",
		"#...#...#",
		"#.B.#.B.D",
		"#...D...#",
		"#########",
	)
	shuffled := make(map[models.Category][]models.WorldObject)
	rng := rand.New(rand.NewSource(7))
	for cat, objs := range world {
		cp := append([]models.WorldObject(nil), objs...)
		rng.Shuffle(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })
		shuffled[cat] = cp
	}

	seg := NewSegmenter(Limits{}, zap.NewNop())
	a := seg.Segment(BuildGrid(world, GridOptions{CellSize: 1}, nil))
	b := seg.Segment(BuildGrid(shuffled, GridOptions{CellSize: 1}, nil))

	assert.Equal(t, regionKeys(a.Regions), regionKeys(b.Regions))
	require.Len(t, a.Regions, len(b.Regions))
	for i := range a.Regions {
		assert.Equal(t, a.Regions[i].Walls, b.Regions[i].Walls)
	}
}

func TestSegment_FloorsAreIndependent(t *testing.T) {
	floors := NewStoreyFloors(3, 2, nil)
	world := merge(layout(0, simpleRoom...), layout(3, simpleRoom...))
	g := BuildGrid(world, GridOptions{CellSize: 1, Floors: floors}, nil)

	result := NewSegmenter(Limits{}, zap.NewNop()).Segment(g)

	require.Len(t, result.Regions, 2)
	assert.Equal(t, 0, result.Regions[0].Floor)
	assert.Equal(t, 1, result.Regions[1].Floor)
	assert.Len(t, result.Regions[1].Walls, 15)
}

func regionKeys(regions []*Region) []string {
	keys := make([]string, 0, len(regions))
	for _, r := range regions {
		var sb strings.Builder
		for _, c := range r.Cells {
			fmt.Fprintf(&sb, "%d,%d,%d;", c.X, c.Y, c.Z)
		}
		keys = append(keys, sb.String())
	}
	sort.Strings(keys)
	return keys
}
