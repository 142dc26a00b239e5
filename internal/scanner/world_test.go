package scanner

import (
	"fmt"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// layout parses an ascii plan into tagged objects; row index is Z, column is X
//
//	. floor   # wall   D door   B bed on floor   S sunbed   (space) nothing
func layout(y float64, rows ...string) map[models.Category][]models.WorldObject {
	out := make(map[models.Category][]models.WorldObject)
	put := func(cat models.Category, x, z int) {
		out[cat] = append(out[cat], models.WorldObject{
			Handle:   fmt.Sprintf("%s_%d_%d_%g", cat, x, z, y),
			Category: cat,
			Position: models.Vec3{X: float64(x), Y: y, Z: float64(z)},
		})
	}
	for z, row := range rows {
		for x, ch := range row {
			switch ch {
			case '.':
				put(models.CategoryFloor, x, z)
			case '#':
				put(models.CategoryWall, x, z)
			case 'D':
				put(models.CategoryDoor, x, z)
			case 'B':
				put(models.CategoryFloor, x, z)
				put(models.CategoryBed, x, z)
			case 'S':
				put(models.CategorySunbed, x, z)
			}
		}
	}
	return out
}

func merge(worlds ...map[models.Category][]models.WorldObject) map[models.Category][]models.WorldObject {
	out := make(map[models.Category][]models.WorldObject)
	for _, w := range worlds {
		for cat, objs := range w {
			out[cat] = append(out[cat], objs...)
		}
	}
	return out
}

var simpleRoom = []string{
	"#####",
	"#...#",
	"#.B.D",
	"#...#",
	"#####",
}

func cellSet(regions []*Region) map[models.CellCoord]int {
	out := make(map[models.CellCoord]int)
	for _, r := range regions {
		for _, c := range r.Cells {
			out[c]++
		}
	}
	return out
}
