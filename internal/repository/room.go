package repository

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// ErrRoomNotFound room id not present in the authoritative set
var ErrRoomNotFound = errors.New("room not found")

// Lifecycle creates and destroys runtime representations; scanner.Factory implements it
type Lifecycle interface {
	Spawn(room *models.Room) error
	Teardown(room *models.Room)
}

// LevelMapper maps a world height to a floor level
type LevelMapper interface {
	FloorLevelOf(worldY float64) int
}

// ScanResult rooms produced by one scan
// Floors limits the diff to those levels; nil means the scan covered every floor
type ScanResult struct {
	ScanID string
	Floors []int
	Rooms  []*models.Room
}

func (s ScanResult) inScope(level int) bool {
	if s.Floors == nil {
		return true
	}
	for _, f := range s.Floors {
		if f == level {
			return true
		}
	}
	return false
}

// UpdateSummary ids touched by one Update, each list sorted
type UpdateSummary struct {
	Added      []string
	Removed    []string
	Updated    []string
	Kept       int
	Collisions int
	Total      int
}

// RoomRepository authoritative set of rooms
// Update swaps the set atomically; Occupy and Release share the same write lock
type RoomRepository struct {
	lifecycle Lifecycle
	levels    LevelMapper
	bus       *eventbus.Bus
	logger    *zap.Logger

	mu    sync.RWMutex
	rooms map[string]*models.Room
}

// NewRoomRepository creates an empty repository; bus may be nil
func NewRoomRepository(lifecycle Lifecycle, levels LevelMapper, bus *eventbus.Bus, logger *zap.Logger) *RoomRepository {
	return &RoomRepository{
		lifecycle: lifecycle,
		levels:    levels,
		bus:       bus,
		logger:    logger,
		rooms:     make(map[string]*models.Room),
	}
}

type change struct {
	room     *models.Room
	previous *models.Room
}

// Update diffs the scan against the current set within the scan's floors.
// Ids in both keep occupancy and runtime handle, new ids are spawned and
// vanished ids torn down. Events go out after the swap, outside the lock:
// removed, added, updated, then RoomsScanned with the full set
func (r *RoomRepository) Update(result ScanResult) UpdateSummary {
	var summary UpdateSummary

	incoming := make(map[string]*models.Room, len(result.Rooms))
	for _, room := range result.Rooms {
		if room == nil || !room.Valid || !result.inScope(room.FloorLevel) {
			continue
		}
		if first, ok := incoming[room.ID]; ok {
			summary.Collisions++
			r.logger.Warn("Room id collision, keeping first region",
				zap.String("room_id", room.ID),
				zap.Int("kept_cells", len(first.Cells)),
				zap.Int("dropped_cells", len(room.Cells)),
			)
			continue
		}
		incoming[room.ID] = room
	}

	var added, removed []*models.Room
	var updated []change

	r.mu.Lock()
	next := make(map[string]*models.Room, len(r.rooms)+len(incoming))
	for id, old := range r.rooms {
		if !result.inScope(old.FloorLevel) {
			next[id] = old
			continue
		}
		if _, ok := incoming[id]; !ok {
			removed = append(removed, old)
		}
	}
	for id, room := range incoming {
		old, ok := r.rooms[id]
		if ok {
			room.Occupied = old.Occupied
			room.OccupantID = old.OccupantID
			room.RuntimeHandle = old.RuntimeHandle
			if old.Fingerprint() != room.Fingerprint() {
				updated = append(updated, change{room: room, previous: old})
			} else {
				summary.Kept++
			}
		} else {
			if r.lifecycle != nil {
				if err := r.lifecycle.Spawn(room); err != nil {
					r.logger.Warn("Failed to spawn room representation",
						zap.String("room_id", room.ID),
						zap.Error(err),
					)
				}
			}
			added = append(added, room)
		}
		next[id] = room
	}
	r.rooms = next
	summary.Total = len(next)

	// snapshot event payloads while the new set is stable
	scanned := cloneSorted(next)
	removedEv := cloneList(removed)
	addedEv := cloneList(added)
	updatedEv := make([]eventbus.RoomUpdated, 0, len(updated))
	for _, c := range updated {
		updatedEv = append(updatedEv, eventbus.RoomUpdated{
			ScanID:   result.ScanID,
			Room:     c.room.Clone(),
			Previous: c.previous.Clone(),
		})
	}
	r.mu.Unlock()

	for _, room := range removed {
		if r.lifecycle != nil {
			r.lifecycle.Teardown(room)
		}
	}

	sort.Slice(updatedEv, func(i, j int) bool { return updatedEv[i].Room.ID < updatedEv[j].Room.ID })
	for _, room := range removedEv {
		summary.Removed = append(summary.Removed, room.ID)
	}
	for _, room := range addedEv {
		summary.Added = append(summary.Added, room.ID)
	}
	for _, ev := range updatedEv {
		summary.Updated = append(summary.Updated, ev.Room.ID)
	}

	if r.bus != nil {
		for _, room := range removedEv {
			if room.Occupied {
				r.logger.Info("Occupied room removed by rescan",
					zap.String("room_id", room.ID),
					zap.String("occupant_id", room.OccupantID),
				)
			}
			r.bus.PublishRoomRemoved(eventbus.RoomRemoved{ScanID: result.ScanID, Room: room})
		}
		for _, room := range addedEv {
			r.bus.PublishRoomAdded(eventbus.RoomAdded{ScanID: result.ScanID, Room: room})
		}
		for _, ev := range updatedEv {
			r.bus.PublishRoomUpdated(ev)
		}
		r.bus.PublishRoomsScanned(eventbus.RoomsScanned{
			ScanID: result.ScanID,
			Floors: result.Floors,
			Rooms:  scanned,
		})
	}

	return summary
}

// GetByID returns a copy of the room
func (r *RoomRepository) GetByID(id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// GetAtPosition returns the room whose footprint on pos's floor contains pos.
// Overlapping footprints resolve to the smallest room
func (r *RoomRepository) GetAtPosition(pos models.Vec3) (*models.Room, error) {
	level := 0
	if r.levels != nil {
		level = r.levels.FloorLevelOf(pos.Y)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *models.Room
	for _, room := range r.rooms {
		if room.FloorLevel != level || !room.ContainsPoint(pos) {
			continue
		}
		if best == nil || len(room.Cells) < len(best.Cells) ||
			(len(room.Cells) == len(best.Cells) && room.ID < best.ID) {
			best = room
		}
	}
	if best == nil {
		return nil, ErrRoomNotFound
	}
	return best.Clone(), nil
}

// GetByFloor rooms on a level sorted by id
func (r *RoomRepository) GetByFloor(level int) []*models.Room {
	return r.filter(func(room *models.Room) bool { return room.FloorLevel == level })
}

// GetAvailable valid unoccupied rooms, best quality first
func (r *RoomRepository) GetAvailable() []*models.Room {
	rooms := r.filter(func(room *models.Room) bool { return room.Valid && !room.Occupied })
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Quality > rooms[j].Quality })
	return rooms
}

// All every room sorted by id
func (r *RoomRepository) All() []*models.Room {
	return r.filter(func(*models.Room) bool { return true })
}

// Count number of rooms
func (r *RoomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Occupy assigns occupant to the room; false if the room is gone, invalid or taken
func (r *RoomRepository) Occupy(id, occupant string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || !room.Valid || room.Occupied {
		return false
	}
	room.Occupied = true
	room.OccupantID = occupant
	return true
}

// Release frees the room; false if it is gone or was not occupied
func (r *RoomRepository) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || !room.Occupied {
		return false
	}
	room.Occupied = false
	room.OccupantID = ""
	return true
}

func (r *RoomRepository) filter(keep func(*models.Room) bool) []*models.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Room, 0)
	for _, room := range r.rooms {
		if keep(room) {
			out = append(out, room.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneSorted(rooms map[string]*models.Room) []*models.Room {
	out := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneList(rooms []*models.Room) []*models.Room {
	out := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
