package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// MemoryObjectSource in-process object store, used by embedded hosts and tests
type MemoryObjectSource struct {
	mu      sync.RWMutex
	objects map[models.Category]map[string]models.WorldObject
}

// NewMemoryObjectSource creates an empty store
func NewMemoryObjectSource() *MemoryObjectSource {
	return &MemoryObjectSource{objects: make(map[models.Category]map[string]models.WorldObject)}
}

// Put adds or moves an object; Category must be set
func (s *MemoryObjectSource) Put(obj models.WorldObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byHandle, ok := s.objects[obj.Category]
	if !ok {
		byHandle = make(map[string]models.WorldObject)
		s.objects[obj.Category] = byHandle
	}
	byHandle[obj.Handle] = obj
}

// PutAll adds every object of a categorized set
func (s *MemoryObjectSource) PutAll(objects map[models.Category][]models.WorldObject) {
	for cat, objs := range objects {
		for _, obj := range objs {
			obj.Category = cat
			s.Put(obj)
		}
	}
}

// Remove deletes an object by handle from every category
func (s *MemoryObjectSource) Remove(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, byHandle := range s.objects {
		delete(byHandle, handle)
	}
}

// GetObjects returns the objects of category sorted by handle
func (s *MemoryObjectSource) GetObjects(_ context.Context, category models.Category) ([]models.WorldObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byHandle := s.objects[category]
	out := make([]models.WorldObject, 0, len(byHandle))
	for _, obj := range byHandle {
		out = append(out, obj)
	}
	sortByHandle(out)
	return out, nil
}

func sortByHandle(objs []models.WorldObject) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Handle < objs[j].Handle })
}
