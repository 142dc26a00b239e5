package scanner

import (
	"math"
	"sort"
	"sync"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
)

// FloorProvider is supplied by the building/placement subsystem
type FloorProvider interface {
	FloorLevelOf(worldY float64) int
	ActiveFloor() int
	IsFloorActive(level int) bool
}

// StoreyFloors maps heights to levels using a fixed storey height
// Levels [0, count) are built; the active floor is the one currently shown
type StoreyFloors struct {
	height float64
	bus    *eventbus.Bus

	mu     sync.RWMutex
	active int
	built  map[int]bool
}

// NewStoreyFloors creates count built floors starting at level 0
// bus may be nil when nobody listens for floor switches
func NewStoreyFloors(height float64, count int, bus *eventbus.Bus) *StoreyFloors {
	if height <= 0 {
		height = 1
	}
	built := make(map[int]bool, count)
	for level := 0; level < count; level++ {
		built[level] = true
	}
	return &StoreyFloors{
		height: height,
		bus:    bus,
		built:  built,
	}
}

// FloorLevelOf floors worldY to its storey; a tiny epsilon keeps exact
// storey boundaries on the upper level
func (f *StoreyFloors) FloorLevelOf(worldY float64) int {
	return int(math.Floor(worldY/f.height + 1e-9))
}

// Height returns the storey height
func (f *StoreyFloors) Height() float64 {
	return f.height
}

func (f *StoreyFloors) ActiveFloor() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active
}

func (f *StoreyFloors) IsFloorActive(level int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.built[level]
}

// SetFloorBuilt marks a level as built or demolished
func (f *StoreyFloors) SetFloorBuilt(level int, built bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if built {
		f.built[level] = true
	} else {
		delete(f.built, level)
	}
}

// BuiltFloors returns built levels in ascending order
func (f *StoreyFloors) BuiltFloors() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	levels := make([]int, 0, len(f.built))
	for level := range f.built {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// SetActiveFloor switches the shown floor and raises FloorChanged when it moved
func (f *StoreyFloors) SetActiveFloor(level int, source string) {
	f.mu.Lock()
	changed := f.active != level
	f.active = level
	f.mu.Unlock()

	if changed && f.bus != nil {
		f.bus.PublishFloorChanged(eventbus.FloorChanged{Source: source, Floor: level})
	}
}
