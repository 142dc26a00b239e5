package models

// Category tag attached to world objects by the placement subsystem
type Category string

const (
	CategoryFloor  Category = "floor"
	CategoryWall   Category = "wall"
	CategoryDoor   Category = "door"
	CategoryBed    Category = "bed"
	CategorySunbed Category = "sunbed"
)

// Categories lists every tag a scan queries, in query order
var Categories = []Category{
	CategoryFloor,
	CategoryWall,
	CategoryDoor,
	CategoryBed,
	CategorySunbed,
}

// Valid reports whether c is a known tag
func (c Category) Valid() bool {
	switch c {
	case CategoryFloor, CategoryWall, CategoryDoor, CategoryBed, CategorySunbed:
		return true
	}
	return false
}

// WorldObject a tagged, positioned object with a stable handle
type WorldObject struct {
	Handle   string   `json:"handle"`
	Category Category `json:"category"`
	Position Vec3     `json:"position"`
}
