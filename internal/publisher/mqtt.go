package publisher

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// MessagePublisher the subset of the MQTT client used here
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher sends room events to <prefix>/<event type>
// The rooms.scanned summary is retained so late subscribers see the last scan
type MQTTPublisher struct {
	attachment

	client MessagePublisher
	prefix string
	qos    byte
	logger *zap.Logger
}

// NewMQTTPublisher creates a publisher on client
func NewMQTTPublisher(client MessagePublisher, prefix string, qos byte, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: prefix,
		qos:    qos,
		logger: logger,
	}
}

// Attach forwards room events from bus
func (p *MQTTPublisher) Attach(bus *eventbus.Bus) {
	p.add(
		bus.SubscribeRoomAdded("mqtt-publisher", func(ev eventbus.RoomAdded) error {
			return p.Publish(fromAdded(ev))
		}),
		bus.SubscribeRoomRemoved("mqtt-publisher", func(ev eventbus.RoomRemoved) error {
			return p.Publish(fromRemoved(ev))
		}),
		bus.SubscribeRoomUpdated("mqtt-publisher", func(ev eventbus.RoomUpdated) error {
			return p.Publish(fromUpdated(ev))
		}),
		bus.SubscribeRoomsScanned("mqtt-publisher", func(ev eventbus.RoomsScanned) error {
			return p.Publish(fromScanned(ev))
		}),
	)
}

// Topic returns the topic an event type is published on
func (p *MQTTPublisher) Topic(eventType models.RoomEventType) string {
	return p.prefix + "/" + string(eventType)
}

// Publish sends one event
func (p *MQTTPublisher) Publish(event models.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	topic := p.Topic(event.EventType)
	retained := event.EventType == models.EventRoomsScanned
	if err := p.client.Publish(topic, p.qos, retained, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}

	p.logger.Debug("Published room event to MQTT",
		zap.String("topic", topic),
		zap.String("event_type", string(event.EventType)),
	)
	return nil
}
