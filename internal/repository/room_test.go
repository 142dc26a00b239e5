package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

type fakeLifecycle struct {
	mu        sync.Mutex
	spawned   []string
	tornDown  []string
	nextIndex int
}

func (f *fakeLifecycle) Spawn(room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIndex++
	room.RuntimeHandle = fmt.Sprintf("rep-%d", f.nextIndex)
	f.spawned = append(f.spawned, room.ID)
	return nil
}

func (f *fakeLifecycle) Teardown(room *models.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = append(f.tornDown, room.ID)
}

type storeys float64

func (s storeys) FloorLevelOf(y float64) int { return int(y / float64(s)) }

type recorder struct {
	events []string
}

func record(bus *eventbus.Bus) *recorder {
	rec := &recorder{}
	bus.SubscribeRoomRemoved("rec", func(ev eventbus.RoomRemoved) error {
		rec.events = append(rec.events, "removed:"+ev.Room.ID)
		return nil
	})
	bus.SubscribeRoomAdded("rec", func(ev eventbus.RoomAdded) error {
		rec.events = append(rec.events, "added:"+ev.Room.ID)
		return nil
	})
	bus.SubscribeRoomUpdated("rec", func(ev eventbus.RoomUpdated) error {
		rec.events = append(rec.events, "updated:"+ev.Room.ID)
		return nil
	})
	bus.SubscribeRoomsScanned("rec", func(ev eventbus.RoomsScanned) error {
		rec.events = append(rec.events, fmt.Sprintf("scanned:%d", len(ev.Rooms)))
		return nil
	})
	return rec
}

// testRoom a valid square room of size x size cells with its corner at (x0, z0)
func testRoom(floor, x0, z0, size int) *models.Room {
	room := &models.Room{FloorLevel: floor, Valid: true, Beds: []string{"bed"}}
	for z := z0; z < z0+size; z++ {
		for x := x0; x < x0+size; x++ {
			room.Cells = append(room.Cells, models.CellCoord{X: x, Y: floor, Z: z})
		}
	}
	room.Bounds = models.Bounds{
		Min: models.Vec3{X: float64(x0 - 1), Y: float64(floor * 3), Z: float64(z0 - 1)},
		Max: models.Vec3{X: float64(x0 + size), Y: float64(floor * 3), Z: float64(z0 + size)},
	}
	room.Center = room.Bounds.Center()
	room.ID = models.RoomID(room.Center, floor)
	return room
}

func newTestRepo() (*RoomRepository, *fakeLifecycle, *recorder) {
	bus := eventbus.New(zap.NewNop())
	lc := &fakeLifecycle{}
	return NewRoomRepository(lc, storeys(3), bus, zap.NewNop()), lc, record(bus)
}

func TestUpdate_AddsRoomsAndPublishes(t *testing.T) {
	repo, lc, rec := newTestRepo()
	a, b := testRoom(0, 1, 1, 3), testRoom(0, 10, 1, 2)

	summary := repo.Update(ScanResult{ScanID: "s1", Rooms: []*models.Room{a, b}})

	// ids sort lexically: room_F0_11_2 before room_F0_2_2
	assert.Equal(t, []string{b.ID, a.ID}, summary.Added)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, repo.Count())
	assert.Len(t, lc.spawned, 2)
	assert.Equal(t, []string{"added:" + b.ID, "added:" + a.ID, "scanned:2"}, rec.events)
}

func TestUpdate_IdenticalRescanFiresNoDiffEvents(t *testing.T) {
	repo, lc, rec := newTestRepo()
	repo.Update(ScanResult{Rooms: []*models.Room{testRoom(0, 1, 1, 3)}})
	rec.events = nil

	summary := repo.Update(ScanResult{Rooms: []*models.Room{testRoom(0, 1, 1, 3)}})

	assert.Empty(t, summary.Added)
	assert.Empty(t, summary.Removed)
	assert.Empty(t, summary.Updated)
	assert.Equal(t, 1, summary.Kept)
	assert.Equal(t, []string{"scanned:1"}, rec.events)
	assert.Len(t, lc.spawned, 1)
	assert.Empty(t, lc.tornDown)
}

func TestUpdate_CarriesOccupancyAndHandle(t *testing.T) {
	repo, _, _ := newTestRepo()
	room := testRoom(0, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{room}})
	require.True(t, repo.Occupy(room.ID, "guest-7"))
	before, err := repo.GetByID(room.ID)
	require.NoError(t, err)

	changed := testRoom(0, 1, 1, 3)
	changed.Beds = []string{"bed", "bed-2"}
	summary := repo.Update(ScanResult{Rooms: []*models.Room{changed}})

	after, err := repo.GetByID(room.ID)
	require.NoError(t, err)
	assert.True(t, after.Occupied)
	assert.Equal(t, "guest-7", after.OccupantID)
	assert.Equal(t, before.RuntimeHandle, after.RuntimeHandle)
	assert.Len(t, after.Beds, 2)
	assert.Equal(t, []string{room.ID}, summary.Updated)
}

func TestUpdate_RemovesVanishedRooms(t *testing.T) {
	bus := eventbus.New(zap.NewNop())
	lc := &fakeLifecycle{}
	repo := NewRoomRepository(lc, storeys(3), bus, zap.NewNop())
	var removed *models.Room
	bus.SubscribeRoomRemoved("allocator", func(ev eventbus.RoomRemoved) error {
		removed = ev.Room
		return nil
	})

	room := testRoom(0, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{room}})
	require.True(t, repo.Occupy(room.ID, "guest-1"))

	summary := repo.Update(ScanResult{})

	assert.Equal(t, []string{room.ID}, summary.Removed)
	assert.Equal(t, []string{room.ID}, lc.tornDown)
	require.NotNil(t, removed)
	assert.True(t, removed.Occupied)
	assert.Equal(t, "guest-1", removed.OccupantID)
	_, err := repo.GetByID(room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdate_LimitsDiffToScannedFloors(t *testing.T) {
	repo, lc, _ := newTestRepo()
	ground, upper := testRoom(0, 1, 1, 3), testRoom(1, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{ground, upper}})

	summary := repo.Update(ScanResult{Floors: []int{1}})

	assert.Equal(t, []string{upper.ID}, summary.Removed)
	assert.Equal(t, 1, repo.Count())
	assert.Len(t, repo.GetByFloor(0), 1)
	assert.Equal(t, []string{upper.ID}, lc.tornDown)
}

func TestUpdate_EventOrder(t *testing.T) {
	repo, _, rec := newTestRepo()
	keep, drop := testRoom(0, 1, 1, 3), testRoom(0, 10, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{keep, drop}})
	rec.events = nil

	changed := testRoom(0, 1, 1, 3)
	changed.Walls = []string{"w1"}
	fresh := testRoom(0, 20, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{changed, fresh}})

	assert.Equal(t, []string{
		"removed:" + drop.ID,
		"added:" + fresh.ID,
		"updated:" + keep.ID,
		"scanned:2",
	}, rec.events)
}

func TestUpdate_SkipsInvalidAndCollidingRooms(t *testing.T) {
	repo, _, _ := newTestRepo()
	first := testRoom(0, 1, 1, 3)
	twin := testRoom(0, 1, 1, 3)
	twin.Cells = twin.Cells[:4]
	invalid := testRoom(0, 30, 1, 3)
	invalid.Valid = false

	summary := repo.Update(ScanResult{Rooms: []*models.Room{first, twin, invalid}})

	assert.Equal(t, 1, summary.Collisions)
	assert.Equal(t, 1, repo.Count())
	got, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Cells, 9)
}

func TestOccupyRelease(t *testing.T) {
	repo, _, _ := newTestRepo()
	room := testRoom(0, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{room}})

	assert.False(t, repo.Occupy("missing", "g1"))
	assert.False(t, repo.Release(room.ID))
	assert.True(t, repo.Occupy(room.ID, "g1"))
	assert.False(t, repo.Occupy(room.ID, "g2"))
	assert.Empty(t, repo.GetAvailable())
	assert.True(t, repo.Release(room.ID))
	assert.Len(t, repo.GetAvailable(), 1)
	assert.False(t, repo.Release("missing"))
}

func TestOccupy_ConcurrentCallersOnlyOneWins(t *testing.T) {
	repo, _, _ := newTestRepo()
	room := testRoom(0, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{room}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if repo.Occupy(room.ID, fmt.Sprintf("guest-%d", i)) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestGetAtPosition(t *testing.T) {
	repo, _, _ := newTestRepo()
	ground, upper := testRoom(0, 1, 1, 3), testRoom(1, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{ground, upper}})

	got, err := repo.GetAtPosition(models.Vec3{X: 2, Y: 0.5, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, ground.ID, got.ID)

	got, err = repo.GetAtPosition(models.Vec3{X: 2, Y: 3.5, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, upper.ID, got.ID)

	_, err = repo.GetAtPosition(models.Vec3{X: 50, Y: 0, Z: 50})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetAvailable_BestQualityFirst(t *testing.T) {
	repo, _, _ := newTestRepo()
	low, high := testRoom(0, 1, 1, 3), testRoom(0, 10, 1, 3)
	low.Quality, high.Quality = 10, 40
	repo.Update(ScanResult{Rooms: []*models.Room{low, high}})

	rooms := repo.GetAvailable()

	require.Len(t, rooms, 2)
	assert.Equal(t, high.ID, rooms[0].ID)
}

func TestReadsReturnCopies(t *testing.T) {
	repo, _, _ := newTestRepo()
	room := testRoom(0, 1, 1, 3)
	repo.Update(ScanResult{Rooms: []*models.Room{room}})

	got, err := repo.GetByID(room.ID)
	require.NoError(t, err)
	got.Occupied = true
	got.Cells[0].X = 99

	again, err := repo.GetByID(room.ID)
	require.NoError(t, err)
	assert.False(t, again.Occupied)
	assert.Equal(t, 1, again.Cells[0].X)
}
