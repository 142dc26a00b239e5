package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/jyouni2001/LodgingSimulator-sub001/common/redis"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

const publishTimeout = 2 * time.Second

// StreamPublisher appends room events to a Redis stream
type StreamPublisher struct {
	attachment

	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamPublisher creates a publisher for stream
func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Attach forwards room events from bus
func (p *StreamPublisher) Attach(bus *eventbus.Bus) {
	p.add(
		bus.SubscribeRoomAdded("stream-publisher", func(ev eventbus.RoomAdded) error {
			return p.publish(fromAdded(ev))
		}),
		bus.SubscribeRoomRemoved("stream-publisher", func(ev eventbus.RoomRemoved) error {
			return p.publish(fromRemoved(ev))
		}),
		bus.SubscribeRoomUpdated("stream-publisher", func(ev eventbus.RoomUpdated) error {
			return p.publish(fromUpdated(ev))
		}),
		bus.SubscribeRoomsScanned("stream-publisher", func(ev eventbus.RoomsScanned) error {
			return p.publish(fromScanned(ev))
		}),
	)
}

func (p *StreamPublisher) publish(event models.RoomEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.Publish(ctx, event)
}

// Publish writes one event to the stream
func (p *StreamPublisher) Publish(ctx context.Context, event models.RoomEvent) error {
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, event)
	if err != nil {
		return fmt.Errorf("failed to publish %s to stream: %w", event.EventType, err)
	}

	p.logger.Debug("Published room event",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_type", string(event.EventType)),
		zap.String("scan_id", event.ScanID),
	)
	return nil
}
