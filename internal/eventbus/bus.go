package eventbus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler receives one event; a returned error is logged by the bus
type Handler[E any] func(E) error

type subscriber[E any] struct {
	id      uint64
	name    string
	handler Handler[E]
}

// topic holds the ordered subscribers of one event type
type topic[E any] struct {
	name   string
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber[E]
}

func (t *topic[E]) subscribe(name string, h Handler[E]) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.subs = append(t.subs, subscriber[E]{id: t.nextID, name: name, handler: h})
	return t.nextID
}

func (t *topic[E]) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

func (t *topic[E]) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// publish delivers synchronously in subscription order
// The subscriber list is snapshotted so handlers may (un)subscribe while running
func (t *topic[E]) publish(logger *zap.Logger, ev E) {
	t.mu.RLock()
	subs := make([]subscriber[E], len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, s := range subs {
		if err := invoke(s.handler, ev); err != nil {
			logger.Warn("Event subscriber failed",
				zap.String("event", t.name),
				zap.String("subscriber", s.name),
				zap.Error(err),
			)
		}
	}
}

func invoke[E any](h Handler[E], ev E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ev)
}

// Subscription handle returned by every Subscribe call
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe detaches the handler; safe to call more than once
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

func newSubscription[E any](t *topic[E], name string, h Handler[E]) *Subscription {
	id := t.subscribe(name, h)
	return &Subscription{cancel: func() { t.unsubscribe(id) }}
}

// Bus delivers room repository notifications to consumers that the
// repository does not know about (queue allocator, economy, statistics, bridges)
type Bus struct {
	logger *zap.Logger

	roomsScanned topic[RoomsScanned]
	roomAdded    topic[RoomAdded]
	roomRemoved  topic[RoomRemoved]
	roomUpdated  topic[RoomUpdated]
	floorChanged topic[FloorChanged]
}

// New creates an empty bus
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:       logger,
		roomsScanned: topic[RoomsScanned]{name: "rooms_scanned"},
		roomAdded:    topic[RoomAdded]{name: "room_added"},
		roomRemoved:  topic[RoomRemoved]{name: "room_removed"},
		roomUpdated:  topic[RoomUpdated]{name: "room_updated"},
		floorChanged: topic[FloorChanged]{name: "floor_changed"},
	}
}

func (b *Bus) SubscribeRoomsScanned(name string, h Handler[RoomsScanned]) *Subscription {
	return newSubscription(&b.roomsScanned, name, h)
}

func (b *Bus) SubscribeRoomAdded(name string, h Handler[RoomAdded]) *Subscription {
	return newSubscription(&b.roomAdded, name, h)
}

func (b *Bus) SubscribeRoomRemoved(name string, h Handler[RoomRemoved]) *Subscription {
	return newSubscription(&b.roomRemoved, name, h)
}

func (b *Bus) SubscribeRoomUpdated(name string, h Handler[RoomUpdated]) *Subscription {
	return newSubscription(&b.roomUpdated, name, h)
}

func (b *Bus) SubscribeFloorChanged(name string, h Handler[FloorChanged]) *Subscription {
	return newSubscription(&b.floorChanged, name, h)
}

func (b *Bus) PublishRoomsScanned(ev RoomsScanned) { b.roomsScanned.publish(b.logger, ev) }
func (b *Bus) PublishRoomAdded(ev RoomAdded) { b.roomAdded.publish(b.logger, ev) }
func (b *Bus) PublishRoomRemoved(ev RoomRemoved) { b.roomRemoved.publish(b.logger, ev) }
func (b *Bus) PublishRoomUpdated(ev RoomUpdated) { b.roomUpdated.publish(b.logger, ev) }
func (b *Bus) PublishFloorChanged(ev FloorChanged) { b.floorChanged.publish(b.logger, ev) }

// SubscriberCount returns total live subscriptions across all topics
func (b *Bus) SubscriberCount() int {
	return b.roomsScanned.count() + b.roomAdded.count() + b.roomRemoved.count() +
		b.roomUpdated.count() + b.floorChanged.count()
}
