package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/jyouni2001/LodgingSimulator-sub001/common/database"
	mqttcommon "github.com/jyouni2001/LodgingSimulator-sub001/common/mqtt"
	rediscommon "github.com/jyouni2001/LodgingSimulator-sub001/common/redis"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/config"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/consumer"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/eventbus"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/publisher"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/repository"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/scanner"
)

const connectTimeout = 10 * time.Second

// LodgingService the room scan process: object source, scan service,
// publishers and the scan request consumer
type LodgingService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	floors    *scanner.StoreyFloors
	memory    *repository.MemoryObjectSource
	scan      *RoomScanService
	consumer  *consumer.ScanRequestConsumer
	detachers []func()
}

// NewLodgingService connects infrastructure and wires the pipeline
func NewLodgingService(cfg *config.Config, logger *zap.Logger) (*LodgingService, error) {
	s := &LodgingService{config: cfg, logger: logger}

	source, err := s.newObjectSource()
	if err != nil {
		s.closeInfra()
		return nil, err
	}

	if cfg.Publish.StreamEnabled || cfg.Publish.SnapshotEnabled || cfg.Consumer.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		s.redisClient, err = rediscommon.Connect(ctx, &cfg.Redis)
		cancel()
		if err != nil {
			s.closeInfra()
			return nil, err
		}
	}

	if cfg.Publish.MQTTEnabled {
		s.mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeInfra()
			return nil, fmt.Errorf("failed to connect to mqtt: %w", err)
		}
	}

	bus := eventbus.New(logger)
	s.floors = scanner.NewStoreyFloors(cfg.Scan.StoreyHeight, max(cfg.Scan.FloorCount, 1), bus)
	s.scan = NewRoomScanService(cfg, source, s.floors, nil, bus, logger)

	if cfg.Publish.StreamEnabled {
		p := publisher.NewStreamPublisher(s.redisClient, cfg.Publish.Stream, logger)
		p.Attach(bus)
		s.detachers = append(s.detachers, p.Detach)
	}
	if cfg.Publish.SnapshotEnabled {
		c := publisher.NewSnapshotCache(publisher.NewRedisKVStore(s.redisClient), cfg.Publish.SnapshotKeyPrefix, cfg.Publish.SnapshotTTL, logger)
		c.Attach(bus)
		s.detachers = append(s.detachers, c.Detach)
	}
	if s.mqttClient != nil {
		p := publisher.NewMQTTPublisher(s.mqttClient, cfg.Publish.MQTTTopicPrefix, cfg.MQTT.QoS, logger)
		p.Attach(bus)
		s.detachers = append(s.detachers, p.Detach)
	}

	if cfg.Consumer.Enabled || s.mqttClient != nil {
		s.consumer = consumer.NewScanRequestConsumer(
			s.redisClient,
			s.scan,
			logger,
			cfg.Consumer.Stream,
			cfg.Consumer.Group,
			cfg.Consumer.ConsumerName,
			cfg.Consumer.BatchSize,
			cfg.Consumer.Block,
		)
	}
	if s.mqttClient != nil {
		if err := s.mqttClient.Subscribe(s.scanTopic(), cfg.MQTT.QoS, s.consumer.HandleMQTT); err != nil {
			s.closeInfra()
			return nil, err
		}
	}

	return s, nil
}

func (s *LodgingService) newObjectSource() (scanner.ObjectSource, error) {
	cfg := s.config
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
		return repository.NewPostgresObjectSource(db, cfg.Source.Table, s.logger), nil
	case config.SourceHTTP:
		return repository.NewHTTPObjectSource(cfg.Source.HTTPBaseURL, cfg.Source.HTTPTimeout, cfg.Source.HTTPRetries, s.logger), nil
	case config.SourceMemory:
		s.memory = repository.NewMemoryObjectSource()
		return s.memory, nil
	}
	return nil, fmt.Errorf("unsupported object source: %s", cfg.Source.Kind)
}

func (s *LodgingService) scanTopic() string {
	return s.config.Publish.MQTTTopicPrefix + "/scan"
}

// Start runs the consumer in the background and blocks in the scan loop
func (s *LodgingService) Start(ctx context.Context) error {
	s.logger.Info("Starting lodging room scan service",
		zap.String("object_source", s.config.Source.Kind),
		zap.String("trigger_mode", s.config.Scan.TriggerMode),
		zap.Bool("stream_enabled", s.config.Publish.StreamEnabled),
		zap.Bool("snapshot_enabled", s.config.Publish.SnapshotEnabled),
		zap.Bool("mqtt_enabled", s.mqttClient != nil),
	)

	if s.consumer != nil && s.config.Consumer.Enabled {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("Scan request consumer stopped", zap.Error(err))
			}
		}()
	}

	return s.scan.Start(ctx)
}

// Scan the scan service for in-process callers
func (s *LodgingService) Scan() *RoomScanService {
	return s.scan
}

// Floors the storey model; SetActiveFloor on it triggers floor rescans
func (s *LodgingService) Floors() *scanner.StoreyFloors {
	return s.floors
}

// MemorySource the in-process object store, nil unless the source kind is memory
func (s *LodgingService) MemorySource() *repository.MemoryObjectSource {
	return s.memory
}

// Stop detaches publishers, waits for async scans and closes connections
func (s *LodgingService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping lodging room scan service")

	for _, detach := range s.detachers {
		detach()
	}
	s.scan.Close()

	if s.mqttClient != nil {
		if err := s.mqttClient.Unsubscribe(s.scanTopic()); err != nil {
			s.logger.Warn("Error unsubscribing scan topic", zap.Error(err))
		}
	}
	s.closeInfra()

	s.logger.Info("Lodging room scan service stopped")
	return nil
}

func (s *LodgingService) closeInfra() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Error closing redis connection", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}
}
