package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// ErrCacheMiss snapshot key absent or expired
var ErrCacheMiss = errors.New("cache miss")

// KVStore key/value storage behind the snapshot cache
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore KVStore on go-redis
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// SnapshotCache keeps JSON snapshots of the room set for readers outside the process
//
//	<prefix>all           every room
//	<prefix>floor:<n>     rooms on level n
type SnapshotCache struct {
	attachment

	kv     KVStore
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	storeMu sync.Mutex
	// levels whose last written floor snapshot holds rooms
	occupied mapset.Set[int]
}

// NewSnapshotCache creates a cache writing under prefix
func NewSnapshotCache(kv KVStore, prefix string, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		kv:       kv,
		prefix:   prefix,
		ttl:      ttl,
		logger:   logger,
		occupied: mapset.New[int](),
	}
}

// Attach refreshes the snapshots after every scan
func (c *SnapshotCache) Attach(bus *eventbus.Bus) {
	c.add(bus.SubscribeRoomsScanned("snapshot-cache", func(ev eventbus.RoomsScanned) error {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return c.Store(ctx, ev.ScanID, ev.Floors, ev.Rooms)
	}))
}

func (c *SnapshotCache) allKey() string {
	return c.prefix + "all"
}

func (c *SnapshotCache) floorKey(level int) string {
	return c.prefix + "floor:" + strconv.Itoa(level)
}

// Store writes the full snapshot and one per floor. Scanned floors left
// without rooms get an empty snapshot. A nil floors list means every floor
// was scanned, so each level that held rooms before and has none now is
// emptied too
func (c *SnapshotCache) Store(ctx context.Context, scanID string, floors []int, rooms []*models.Room) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	now := time.Now().Unix()
	if err := c.put(ctx, c.allKey(), models.RoomSnapshot{ScanID: scanID, UpdatedAt: now, Rooms: rooms}); err != nil {
		return err
	}

	byFloor := make(map[int][]*models.Room)
	for _, level := range floors {
		byFloor[level] = []*models.Room{}
	}
	if floors == nil {
		c.occupied.Each(func(level int) {
			byFloor[level] = []*models.Room{}
		})
	}
	for _, room := range rooms {
		byFloor[room.FloorLevel] = append(byFloor[room.FloorLevel], room)
	}
	levels := make([]int, 0, len(byFloor))
	for level := range byFloor {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	for _, level := range levels {
		snap := models.RoomSnapshot{ScanID: scanID, Floor: &level, UpdatedAt: now, Rooms: byFloor[level]}
		if err := c.put(ctx, c.floorKey(level), snap); err != nil {
			return err
		}
		if len(byFloor[level]) > 0 {
			c.occupied.Put(level)
		} else {
			c.occupied.Remove(level)
		}
	}

	c.logger.Debug("Updated room snapshots",
		zap.String("scan_id", scanID),
		zap.Int("room_count", len(rooms)),
		zap.Int("floor_count", len(levels)),
	)
	return nil
}

func (c *SnapshotCache) put(ctx context.Context, key string, snap models.RoomSnapshot) error {
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal room snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetAll reads the full snapshot
func (c *SnapshotCache) GetAll(ctx context.Context) (*models.RoomSnapshot, error) {
	return c.get(ctx, c.allKey())
}

// GetFloor reads the snapshot of one level
func (c *SnapshotCache) GetFloor(ctx context.Context, level int) (*models.RoomSnapshot, error) {
	return c.get(ctx, c.floorKey(level))
}

func (c *SnapshotCache) get(ctx context.Context, key string) (*models.RoomSnapshot, error) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var snap models.RoomSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room snapshot: %w", err)
	}
	return &snap, nil
}
