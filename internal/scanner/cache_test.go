package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSource struct {
	mu      sync.Mutex
	objects map[models.Category][]models.WorldObject
	err     error
	calls   int
}

func (s *fakeSource) GetObjects(_ context.Context, cat models.Category) ([]models.WorldObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.objects[cat], nil
}

func (s *fakeSource) set(cat models.Category, objs []models.WorldObject, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[models.Category][]models.WorldObject)
	}
	s.objects[cat] = objs
	s.err = err
}

func TestObjectCache_FreshWithinWindow(t *testing.T) {
	src := &fakeSource{}
	src.set(models.CategoryWall, []models.WorldObject{{Handle: "w1"}}, nil)
	clock := newManualClock()
	cache := NewObjectCache(src, time.Second, clock, zap.NewNop())
	ctx := context.Background()

	first := cache.GetObjects(ctx, models.CategoryWall)
	src.set(models.CategoryWall, []models.WorldObject{{Handle: "w1"}, {Handle: "w2"}}, nil)
	clock.Advance(999 * time.Millisecond)
	second := cache.GetObjects(ctx, models.CategoryWall)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, models.CategoryWall, first[0].Category)

	clock.Advance(time.Millisecond)
	third := cache.GetObjects(ctx, models.CategoryWall)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 2}, cache.Stats())
}

func TestObjectCache_ServesLastGoodOnFailure(t *testing.T) {
	src := &fakeSource{}
	src.set(models.CategoryDoor, []models.WorldObject{{Handle: "d1"}}, nil)
	clock := newManualClock()
	cache := NewObjectCache(src, time.Second, clock, zap.NewNop())
	ctx := context.Background()

	require.Len(t, cache.GetObjects(ctx, models.CategoryDoor), 1)

	src.set(models.CategoryDoor, nil, errors.New("world unavailable"))
	clock.Advance(2 * time.Second)

	got := cache.GetObjects(ctx, models.CategoryDoor)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].Handle)
	assert.Equal(t, int64(1), cache.Stats().Failures)

	assert.Nil(t, cache.GetObjects(ctx, models.CategoryBed))
}

func TestObjectCache_NoSource(t *testing.T) {
	cache := NewObjectCache(nil, time.Second, nil, zap.NewNop())

	assert.Nil(t, cache.GetObjects(context.Background(), models.CategoryFloor))
	assert.Equal(t, int64(1), cache.Stats().Failures)
}

func TestObjectCache_InvalidateForcesRequery(t *testing.T) {
	src := &fakeSource{}
	src.set(models.CategoryBed, []models.WorldObject{{Handle: "b1"}}, nil)
	cache := NewObjectCache(src, time.Hour, newManualClock(), zap.NewNop())
	ctx := context.Background()

	cache.Snapshot(ctx, []models.Category{models.CategoryBed})
	cache.Invalidate(models.CategoryBed)
	cache.GetObjects(ctx, models.CategoryBed)
	cache.Invalidate()
	cache.GetObjects(ctx, models.CategoryBed)

	assert.Equal(t, 3, src.calls)
}

func TestObjectCache_ReturnsCopies(t *testing.T) {
	src := &fakeSource{}
	src.set(models.CategoryWall, []models.WorldObject{{Handle: "w1"}}, nil)
	cache := NewObjectCache(src, time.Hour, newManualClock(), zap.NewNop())
	ctx := context.Background()

	got := cache.GetObjects(ctx, models.CategoryWall)
	got[0].Handle = "mutated"

	assert.Equal(t, "w1", cache.GetObjects(ctx, models.CategoryWall)[0].Handle)
}
