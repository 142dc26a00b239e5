package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

type cacheEntry struct {
	objects   []models.WorldObject
	fetchedAt time.Time
}

// CacheStats counters since construction
type CacheStats struct {
	Hits     int64
	Misses   int64
	Failures int64
}

// ObjectCache memoizes ObjectSource queries per category for a fixed window
// A refresh always replaces the whole category list
type ObjectCache struct {
	source ObjectSource
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger

	mu      sync.Mutex
	entries map[models.Category]*cacheEntry

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// NewObjectCache creates a cache; clock may be nil for the system clock
func NewObjectCache(source ObjectSource, ttl time.Duration, clock Clock, logger *zap.Logger) *ObjectCache {
	if clock == nil {
		clock = SystemClock
	}
	return &ObjectCache{
		source:  source,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		entries: make(map[models.Category]*cacheEntry),
	}
}

// GetObjects returns the cached objects of category, re-querying the source once
// the entry is older than the refresh window. Source failures fall back to the
// last good list (or nothing) and are never returned to the caller
func (c *ObjectCache) GetObjects(ctx context.Context, category models.Category) []models.WorldObject {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	entry, ok := c.entries[category]
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		c.hits.Add(1)
		return cloneObjects(entry.objects)
	}
	c.misses.Add(1)

	objects, err := c.query(ctx, category)
	if err != nil {
		c.failures.Add(1)
		var stale int
		if ok {
			stale = len(entry.objects)
		}
		c.logger.Warn("Object source query failed, serving last good content",
			zap.String("category", string(category)),
			zap.Int("stale_count", stale),
			zap.Error(err),
		)
		if ok {
			return cloneObjects(entry.objects)
		}
		return nil
	}

	c.entries[category] = &cacheEntry{objects: objects, fetchedAt: now}
	return cloneObjects(objects)
}

func (c *ObjectCache) query(ctx context.Context, category models.Category) ([]models.WorldObject, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	objects, err := c.source.GetObjects(ctx, category)
	if err != nil {
		return nil, err
	}
	objects = cloneObjects(objects)
	for i := range objects {
		objects[i].Category = category
	}
	return objects, nil
}

// Snapshot fetches every category through the cache
func (c *ObjectCache) Snapshot(ctx context.Context, categories []models.Category) map[models.Category][]models.WorldObject {
	out := make(map[models.Category][]models.WorldObject, len(categories))
	for _, cat := range categories {
		out[cat] = c.GetObjects(ctx, cat)
	}
	return out
}

// Invalidate drops the given categories, or every category when none is given
func (c *ObjectCache) Invalidate(categories ...models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(categories) == 0 {
		c.entries = make(map[models.Category]*cacheEntry)
		return
	}
	for _, cat := range categories {
		delete(c.entries, cat)
	}
}

// Stats returns hit/miss/failure counters
func (c *ObjectCache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

func cloneObjects(objects []models.WorldObject) []models.WorldObject {
	if objects == nil {
		return nil
	}
	out := make([]models.WorldObject, len(objects))
	copy(out, objects)
	return out
}
