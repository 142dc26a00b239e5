package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := New(zap.NewNop())
	var order []string

	bus.SubscribeRoomAdded("first", func(ev RoomAdded) error {
		order = append(order, "first:"+ev.Room.ID)
		return nil
	})
	bus.SubscribeRoomAdded("second", func(ev RoomAdded) error {
		order = append(order, "second:"+ev.Room.ID)
		return nil
	})

	bus.PublishRoomAdded(RoomAdded{Room: &models.Room{ID: "r1"}})

	assert.Equal(t, []string{"first:r1", "second:r1"}, order)
}

func TestBus_FailingSubscriberDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := New(zap.New(core))
	delivered := 0

	bus.SubscribeRoomRemoved("erroring", func(RoomRemoved) error {
		return errors.New("economy offline")
	})
	bus.SubscribeRoomRemoved("panicking", func(RoomRemoved) error {
		panic("boom")
	})
	bus.SubscribeRoomRemoved("healthy", func(RoomRemoved) error {
		delivered++
		return nil
	})

	bus.PublishRoomRemoved(RoomRemoved{Room: &models.Room{ID: "r1"}})

	assert.Equal(t, 1, delivered)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "erroring", logs.All()[0].ContextMap()["subscriber"])
	assert.Equal(t, "panicking", logs.All()[1].ContextMap()["subscriber"])
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := New(nil)
	calls := 0

	sub := bus.SubscribeFloorChanged("counter", func(FloorChanged) error {
		calls++
		return nil
	})
	other := bus.SubscribeRoomsScanned("noop", func(RoomsScanned) error { return nil })
	assert.Equal(t, 2, bus.SubscriberCount())

	bus.PublishFloorChanged(FloorChanged{Source: "test", Floor: 1})
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.PublishFloorChanged(FloorChanged{Source: "test", Floor: 2})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.SubscriberCount())

	other.Unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount())

	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestBus_HandlerMayUnsubscribeDuringDelivery(t *testing.T) {
	bus := New(nil)
	calls := 0

	var sub *Subscription
	sub = bus.SubscribeRoomUpdated("once", func(RoomUpdated) error {
		calls++
		sub.Unsubscribe()
		return nil
	})

	bus.PublishRoomUpdated(RoomUpdated{Room: &models.Room{ID: "r1"}})
	bus.PublishRoomUpdated(RoomUpdated{Room: &models.Room{ID: "r1"}})

	assert.Equal(t, 1, calls)
}
