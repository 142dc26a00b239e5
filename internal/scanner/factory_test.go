package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

type countingPresenter struct {
	spawned   int
	despawned int
	spawnErr  error
}

func (p *countingPresenter) Spawn(room *models.Room) (string, error) {
	if p.spawnErr != nil {
		return "", p.spawnErr
	}
	p.spawned++
	return "rep-" + room.ID, nil
}

func (p *countingPresenter) Despawn(string) error {
	p.despawned++
	return nil
}

func materializeSimpleRoom(t *testing.T, f *Factory, v *Validator) *models.Room {
	t.Helper()
	g := BuildGrid(layout(0, simpleRoom...), GridOptions{CellSize: 1}, nil)
	result := NewSegmenter(Limits{}, zap.NewNop()).Segment(g)
	require.Len(t, result.Regions, 1)
	return f.Materialize(result.Regions[0], v.Validate(result.Regions[0]))
}

func TestFactory_MaterializeSimpleRoom(t *testing.T) {
	v := NewValidator(DefaultRules(), DefaultQualityWeights(), 1)
	f := NewFactory(1, DefaultPricing(), v, nil, zap.NewNop())

	room := materializeSimpleRoom(t, f, v)

	assert.Equal(t, "room_F0_2_2", room.ID)
	assert.True(t, room.Valid)
	assert.False(t, room.IsSunbedRoom)
	assert.Len(t, room.Cells, 9)
	assert.Len(t, room.Doors, 1)
	assert.Len(t, room.Beds, 1)
	assert.Equal(t, models.Vec3{X: 0, Y: 0, Z: 0}, room.Bounds.Min)
	assert.Equal(t, models.Vec3{X: 4, Y: 0, Z: 4}, room.Bounds.Max)
	assert.Equal(t, []models.Vec3{{X: 4, Y: 0, Z: 2}}, room.DoorPositions)
	assert.Equal(t, DefaultPricing().Price(9, 1, 1, 15), room.Price)
	assert.Positive(t, room.Quality)
}

func TestFactory_IdenticalGeometryYieldsIdenticalID(t *testing.T) {
	v := NewValidator(DefaultRules(), DefaultQualityWeights(), 1)
	f := NewFactory(1, DefaultPricing(), v, nil, zap.NewNop())

	a := materializeSimpleRoom(t, f, v)
	b := materializeSimpleRoom(t, f, v)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFactory_SunbedRoomUsesFixedPricing(t *testing.T) {
	pricing := DefaultPricing()
	v := NewValidator(DefaultRules(), DefaultQualityWeights(), 1)
	f := NewFactory(1, pricing, v, nil, zap.NewNop())
	region := &Region{
		Cells:      []models.CellCoord{{X: 10, Z: 8}},
		Sunbeds:    objects(models.CategorySunbed, 1, models.Vec3{X: 10, Z: 8}),
		Standalone: true,
	}

	room := f.Materialize(region, v.Validate(region))

	assert.True(t, room.Valid)
	assert.True(t, room.IsSunbedRoom)
	assert.Equal(t, pricing.SunbedPrice, room.Price)
	assert.Equal(t, pricing.SunbedReputation, room.Reputation)
	assert.Equal(t, "room_F0_10_8", room.ID)
}

func TestPricing_MonotonicInComponents(t *testing.T) {
	p := DefaultPricing()
	p.PerWall = -3

	base := p.Price(9, 1, 1, 4)
	assert.LessOrEqual(t, base, p.Price(9, 2, 1, 4))
	assert.LessOrEqual(t, base, p.Price(9, 1, 2, 4))
	assert.LessOrEqual(t, base, p.Price(9, 1, 1, 5))
	assert.LessOrEqual(t, p.Reputation(9, 1, 1, 4), p.Reputation(9, 2, 2, 5))
}

func TestFactory_TeardownIsIdempotent(t *testing.T) {
	presenter := &countingPresenter{}
	f := NewFactory(1, DefaultPricing(), nil, presenter, zap.NewNop())
	room := &models.Room{ID: "room_F0_1_1"}

	require.NoError(t, f.Spawn(room))
	assert.Equal(t, "rep-room_F0_1_1", room.RuntimeHandle)
	assert.Equal(t, 1, f.LiveCount())

	stale := room.Clone()
	f.Teardown(room)
	f.Teardown(room)
	f.Teardown(stale)
	f.Teardown(nil)

	assert.Equal(t, 1, presenter.despawned)
	assert.Equal(t, 0, f.LiveCount())
	assert.Empty(t, room.RuntimeHandle)
}

func TestFactory_SpawnError(t *testing.T) {
	presenter := &countingPresenter{spawnErr: errors.New("scene unloaded")}
	f := NewFactory(1, DefaultPricing(), nil, presenter, zap.NewNop())

	err := f.Spawn(&models.Room{ID: "r"})

	require.Error(t, err)
	assert.Equal(t, 0, f.LiveCount())
}
