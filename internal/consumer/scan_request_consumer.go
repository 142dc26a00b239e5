package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/jyouni2001/LodgingSimulator-sub001/common/redis"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
)

// Request event types
const (
	EventScanRequest  = "scan.request"
	EventWorldChanged = "world.changed"
)

// ScanTrigger the scan service operations a request can reach
type ScanTrigger interface {
	ScanNow()
	ScanFloor(level int)
	InvalidateCache(categories ...models.Category)
}

// ScanRequest inbound request; Floor nil means the default scope
// Categories only applies to world.changed, empty invalidates every tag
type ScanRequest struct {
	EventType  string   `json:"event_type"`
	Floor      *int     `json:"floor,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Source     string   `json:"source,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// ScanRequestConsumer turns stream (or MQTT) requests into scans
type ScanRequestConsumer struct {
	redisClient  *redis.Client
	trigger      ScanTrigger
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration
}

// NewScanRequestConsumer creates a consumer; redisClient may be nil when only
// MQTT requests are handled
func NewScanRequestConsumer(
	redisClient *redis.Client,
	trigger ScanTrigger,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
	block time.Duration,
) *ScanRequestConsumer {
	if block <= 0 {
		block = time.Second
	}
	return &ScanRequestConsumer{
		redisClient:  redisClient,
		trigger:      trigger,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        block,
	}
}

// Start consumes until ctx is done, backing off exponentially on read errors
func (c *ScanRequestConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Scan request consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consumeEvents(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume scan requests",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// consumeEvents reads one batch; messages are acked only once handled
func (c *ScanRequestConsumer) consumeEvents(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		c.consumerName,
		c.batchSize,
		c.block,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processMessage(msg); err != nil {
			c.logger.Error("Failed to process scan request",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *ScanRequestConsumer) processMessage(msg rediscommon.StreamMessage) error {
	req, err := parseRequest(msg)
	if err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return c.Handle(req)
}

// HandleMQTT adapts the consumer to an MQTT message handler
func (c *ScanRequestConsumer) HandleMQTT(topic string, payload []byte) error {
	var req ScanRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to parse request on %s: %w", topic, err)
	}
	if req.EventType == "" {
		req.EventType = EventScanRequest
	}
	return c.Handle(&req)
}

// Handle dispatches one request. Unknown types are logged and dropped
func (c *ScanRequestConsumer) Handle(req *ScanRequest) error {
	c.logger.Info("Processing scan request",
		zap.String("event_type", req.EventType),
		zap.String("source", req.Source),
	)

	switch req.EventType {
	case EventScanRequest:
		c.scan(req.Floor)

	case EventWorldChanged:
		c.trigger.InvalidateCache(c.knownCategories(req.Categories)...)
		c.scan(req.Floor)

	default:
		c.logger.Warn("Unknown event type",
			zap.String("event_type", req.EventType),
		)
	}
	return nil
}

// knownCategories drops names that are not object categories. Nil means every
// category, so a request naming only unknown ones invalidates the whole cache
func (c *ScanRequestConsumer) knownCategories(names []string) []models.Category {
	var categories []models.Category
	for _, name := range names {
		cat := models.Category(name)
		if !cat.Valid() {
			c.logger.Warn("Ignoring unknown object category",
				zap.String("category", name),
			)
			continue
		}
		categories = append(categories, cat)
	}
	return categories
}

func (c *ScanRequestConsumer) scan(floor *int) {
	if floor != nil {
		c.trigger.ScanFloor(*floor)
		return
	}
	c.trigger.ScanNow()
}

// parseRequest accepts {"data": <json>} envelopes or flat stream fields
func parseRequest(msg rediscommon.StreamMessage) (*ScanRequest, error) {
	if dataStr, ok := msg.Values["data"].(string); ok {
		var req ScanRequest
		if err := json.Unmarshal([]byte(dataStr), &req); err == nil && req.EventType != "" {
			return &req, nil
		}
	}

	req := &ScanRequest{}
	if eventType, ok := msg.Values["event_type"].(string); ok {
		req.EventType = eventType
	}
	if floorStr, ok := msg.Values["floor"].(string); ok && floorStr != "" {
		floor, err := strconv.Atoi(floorStr)
		if err != nil {
			return nil, fmt.Errorf("invalid floor %q: %w", floorStr, err)
		}
		req.Floor = &floor
	}
	if source, ok := msg.Values["source"].(string); ok {
		req.Source = source
	}

	if req.EventType == "" {
		return nil, fmt.Errorf("invalid request: missing event_type")
	}
	return req, nil
}
