package scanner

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// Pricing linear price/reputation model. Negative weights are treated as
// zero so more beds, doors or walls never lower price or reputation
type Pricing struct {
	BasePrice float64
	PerCell   float64
	PerBed    float64
	PerDoor   float64
	PerWall   float64

	BaseReputation    float64
	ReputationPerCell float64
	ReputationPerBed  float64
	ReputationPerDoor float64
	ReputationPerWall float64

	SunbedPrice      float64
	SunbedReputation float64
}

// DefaultPricing returns the default game-balance weights
func DefaultPricing() Pricing {
	return Pricing{
		BasePrice: 50,
		PerCell:   5,
		PerBed:    30,
		PerDoor:   5,
		PerWall:   1,

		BaseReputation:    1,
		ReputationPerCell: 0.1,
		ReputationPerBed:  1,
		ReputationPerDoor: 0.5,
		ReputationPerWall: 0.05,

		SunbedPrice:      20,
		SunbedReputation: 1,
	}
}

// Price computes the standard-track price
func (p Pricing) Price(cells, beds, doors, walls int) float64 {
	return nonNeg(p.BasePrice) +
		nonNeg(p.PerCell)*float64(cells) +
		nonNeg(p.PerBed)*float64(beds) +
		nonNeg(p.PerDoor)*float64(doors) +
		nonNeg(p.PerWall)*float64(walls)
}

// Reputation computes the standard-track reputation
func (p Pricing) Reputation(cells, beds, doors, walls int) float64 {
	return nonNeg(p.BaseReputation) +
		nonNeg(p.ReputationPerCell)*float64(cells) +
		nonNeg(p.ReputationPerBed)*float64(beds) +
		nonNeg(p.ReputationPerDoor)*float64(doors) +
		nonNeg(p.ReputationPerWall)*float64(walls)
}

func nonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Presenter creates and destroys the runtime representation of a room
type Presenter interface {
	Spawn(room *models.Room) (string, error)
	Despawn(handle string) error
}

// NopPresenter hands out handles without rendering anything
type NopPresenter struct{}

func (NopPresenter) Spawn(*models.Room) (string, error) { return uuid.NewString(), nil }
func (NopPresenter) Despawn(string) error { return nil }

// Factory turns validated regions into rooms and owns their representations
type Factory struct {
	cellSize  float64
	pricing   Pricing
	validator *Validator
	presenter Presenter
	logger    *zap.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewFactory creates a factory; presenter may be nil
func NewFactory(cellSize float64, pricing Pricing, validator *Validator, presenter Presenter, logger *zap.Logger) *Factory {
	if cellSize <= 0 {
		cellSize = 1
	}
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Factory{
		cellSize:  cellSize,
		pricing:   pricing,
		validator: validator,
		presenter: presenter,
		logger:    logger,
		live:      make(map[string]struct{}),
	}
}

// Materialize builds the room for a region. The id depends only on the
// rounded bounds center and the floor level
func (f *Factory) Materialize(region *Region, verdict Verdict) *models.Room {
	bounds := f.bounds(region)
	center := bounds.Center()

	room := &models.Room{
		ID:           models.RoomID(center, region.Floor),
		FloorLevel:   region.Floor,
		Cells:        append([]models.CellCoord(nil), region.Cells...),
		Bounds:       bounds,
		Center:       center,
		Walls:        handles(region.Walls),
		Doors:        handles(region.Doors),
		Beds:         handles(region.Beds),
		Sunbeds:      handles(region.Sunbeds),
		IsSunbedRoom: verdict.Sunbed,
		Valid:        verdict.Valid,
	}
	for _, door := range region.Doors {
		room.DoorPositions = append(room.DoorPositions, door.Position)
	}

	if verdict.Sunbed {
		room.Price = f.pricing.SunbedPrice
		room.Reputation = f.pricing.SunbedReputation
	} else {
		cells, beds, doors, walls := len(room.Cells), len(room.Beds), len(room.Doors), len(room.Walls)
		room.Price = f.pricing.Price(cells, beds, doors, walls)
		room.Reputation = f.pricing.Reputation(cells, beds, doors, walls)
	}
	if f.validator != nil {
		room.Quality = f.validator.Quality(room)
	}
	return room
}

// bounds member cell box expanded by one cell on X/Z; Y spans the objects
func (f *Factory) bounds(region *Region) models.Bounds {
	minX, maxX := region.Cells[0].X, region.Cells[0].X
	minZ, maxZ := region.Cells[0].Z, region.Cells[0].Z
	for _, c := range region.Cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minZ, maxZ = min(minZ, c.Z), max(maxZ, c.Z)
	}
	return models.Bounds{
		Min: models.Vec3{X: float64(minX-1) * f.cellSize, Y: region.MinY, Z: float64(minZ-1) * f.cellSize},
		Max: models.Vec3{X: float64(maxX+1) * f.cellSize, Y: region.MaxY, Z: float64(maxZ+1) * f.cellSize},
	}
}

// Spawn creates the runtime representation and records its handle on room
func (f *Factory) Spawn(room *models.Room) error {
	handle, err := f.presenter.Spawn(room)
	if err != nil {
		return fmt.Errorf("failed to spawn room %s: %w", room.ID, err)
	}

	f.mu.Lock()
	f.live[handle] = struct{}{}
	f.mu.Unlock()

	room.RuntimeHandle = handle
	return nil
}

// Teardown destroys the representation of room. Calling it again, or on a
// room that never had one, is a no-op
func (f *Factory) Teardown(room *models.Room) {
	if room == nil || room.RuntimeHandle == "" {
		return
	}

	f.mu.Lock()
	_, ok := f.live[room.RuntimeHandle]
	delete(f.live, room.RuntimeHandle)
	f.mu.Unlock()

	if !ok {
		return
	}
	if err := f.presenter.Despawn(room.RuntimeHandle); err != nil {
		f.logger.Warn("Failed to despawn room",
			zap.String("room_id", room.ID),
			zap.String("runtime_handle", room.RuntimeHandle),
			zap.Error(err),
		)
	}
	room.RuntimeHandle = ""
}

// LiveCount number of representations currently alive
func (f *Factory) LiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func handles(objs []models.WorldObject) []string {
	out := make([]string, 0, len(objs))
	for _, obj := range objs {
		out = append(out, obj.Handle)
	}
	return out
}
