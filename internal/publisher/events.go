package publisher

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

func newRoomEvent(eventType models.RoomEventType, scanID string) models.RoomEvent {
	return models.RoomEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		ScanID:    scanID,
		Timestamp: time.Now().Unix(),
	}
}

func fromAdded(ev eventbus.RoomAdded) models.RoomEvent {
	e := newRoomEvent(models.EventRoomAdded, ev.ScanID)
	e.Room = ev.Room
	return e
}

func fromRemoved(ev eventbus.RoomRemoved) models.RoomEvent {
	e := newRoomEvent(models.EventRoomRemoved, ev.ScanID)
	e.Room = ev.Room
	return e
}

func fromUpdated(ev eventbus.RoomUpdated) models.RoomEvent {
	e := newRoomEvent(models.EventRoomUpdated, ev.ScanID)
	e.Room = ev.Room
	e.Previous = ev.Previous
	return e
}

func fromScanned(ev eventbus.RoomsScanned) models.RoomEvent {
	e := newRoomEvent(models.EventRoomsScanned, ev.ScanID)
	e.Floors = ev.Floors
	e.RoomIDs = make([]string, 0, len(ev.Rooms))
	for _, room := range ev.Rooms {
		e.RoomIDs = append(e.RoomIDs, room.ID)
	}
	return e
}

// attachment subscriptions owned by one publisher
type attachment struct {
	mu   sync.Mutex
	subs []*eventbus.Subscription
}

func (a *attachment) add(subs ...*eventbus.Subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, subs...)
}

// Detach unsubscribes from the bus; safe to call more than once
func (a *attachment) Detach() {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
