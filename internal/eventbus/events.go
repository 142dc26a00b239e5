package eventbus

import "github.com/jyouni2001/LodgingSimulator-sub001/internal/models"

// RoomsScanned is raised once per completed scan with the full room set
// Floors is nil when the scan covered every floor
type RoomsScanned struct {
	ScanID string
	Floors []int
	Rooms  []*models.Room
}

// RoomAdded a room id appeared in the latest scan
type RoomAdded struct {
	ScanID string
	Room   *models.Room
}

// RoomRemoved a room id vanished; an occupant must be relocated by the consumer
type RoomRemoved struct {
	ScanID string
	Room   *models.Room
}

// RoomUpdated a room kept its id but its geometry or components changed
type RoomUpdated struct {
	ScanID   string
	Room     *models.Room
	Previous *models.Room
}

// FloorChanged the building subsystem switched the active floor
type FloorChanged struct {
	Source string
	Floor  int
}
