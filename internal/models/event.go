package models

// RoomEventType names a room change on external transports
type RoomEventType string

const (
	EventRoomAdded    RoomEventType = "room.added"
	EventRoomRemoved  RoomEventType = "room.removed"
	EventRoomUpdated  RoomEventType = "room.updated"
	EventRoomsScanned RoomEventType = "rooms.scanned"
)

// RoomEvent payload published to streams and brokers
// Room is set for single-room events; RoomIDs summarizes a completed scan
type RoomEvent struct {
	EventID   string        `json:"event_id"`
	EventType RoomEventType `json:"event_type"`
	ScanID    string        `json:"scan_id"`
	Timestamp int64         `json:"timestamp"`
	Room      *Room         `json:"room,omitempty"`
	Previous  *Room         `json:"previous,omitempty"`
	Floors    []int         `json:"floors,omitempty"`
	RoomIDs   []string      `json:"room_ids,omitempty"`
}

// RoomSnapshot cached view of the room set, or of one floor
type RoomSnapshot struct {
	ScanID    string  `json:"scan_id"`
	Floor     *int    `json:"floor,omitempty"`
	UpdatedAt int64   `json:"updated_at"`
	Rooms     []*Room `json:"rooms"`
}
