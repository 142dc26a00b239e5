package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jyouni2001/LodgingSimulator-sub001/common/config"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/models"
	"github.com/jyouni2001/LodgingSimulator-sub001/internal/scanner"
)

// Trigger modes
const (
	TriggerPolling = "polling"
	TriggerEvents  = "events"
	TriggerManual  = "manual"
)

// Object source kinds
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
	SourceMemory   = "memory"
)

// Config room scan service configuration
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// Source where tagged world objects come from
	Source struct {
		Kind        string // postgres | http | memory
		Table       string
		HTTPBaseURL string
		HTTPTimeout time.Duration
		HTTPRetries int
	}

	Scan struct {
		CellSize        float64
		StoreyHeight    float64
		FloorCount      int
		VerticalOffsets map[models.Category]float64
		CacheTTL        time.Duration

		// TriggerMode polling rescans every Interval; events and manual only
		// react to FloorChanged, ScanNow and stream requests
		TriggerMode     string
		Interval        time.Duration
		ActiveFloorOnly bool

		MaxIterations int
		MaxRegionSize int
	}

	Rules   scanner.Rules
	Quality scanner.QualityWeights
	Pricing scanner.Pricing

	Publish struct {
		StreamEnabled     bool
		Stream            string
		SnapshotEnabled   bool
		SnapshotKeyPrefix string
		SnapshotTTL       time.Duration
		MQTTEnabled       bool
		MQTTTopicPrefix   string
	}

	Consumer struct {
		Enabled      bool
		Stream       string
		Group        string
		ConsumerName string
		BatchSize    int64
		Block        time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "lodging"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 2
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "lodging-roomscan"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Source.Kind = getEnv("OBJECT_SOURCE", SourcePostgres)
	cfg.Source.Table = getEnv("OBJECT_TABLE", "world_objects")
	cfg.Source.HTTPBaseURL = getEnv("OBJECT_API_URL", "http://localhost:8080/api/v1/world")
	cfg.Source.HTTPTimeout = getEnvDuration("OBJECT_API_TIMEOUT", 5*time.Second)
	cfg.Source.HTTPRetries = getEnvInt("OBJECT_API_RETRIES", 2)

	cfg.Scan.CellSize = getEnvFloat("SCAN_CELL_SIZE", 1.0)
	cfg.Scan.StoreyHeight = getEnvFloat("SCAN_STOREY_HEIGHT", 3.0)
	cfg.Scan.FloorCount = getEnvInt("SCAN_FLOOR_COUNT", 1)
	cfg.Scan.VerticalOffsets = map[models.Category]float64{
		models.CategoryFloor: getEnvFloat("SCAN_OFFSET_FLOOR", 0.1),
		models.CategoryBed:   getEnvFloat("SCAN_OFFSET_BED", -0.1),
	}
	cfg.Scan.CacheTTL = getEnvDuration("SCAN_CACHE_TTL", time.Second)
	cfg.Scan.TriggerMode = getEnv("SCAN_TRIGGER_MODE", TriggerPolling)
	cfg.Scan.Interval = getEnvDuration("SCAN_INTERVAL", 5*time.Second)
	cfg.Scan.ActiveFloorOnly = getEnvBool("SCAN_ACTIVE_FLOOR_ONLY", false)
	cfg.Scan.MaxIterations = getEnvInt("SCAN_MAX_ITERATIONS", 10000)

	defaults := scanner.DefaultRules()
	cfg.Rules.MinWalls = getEnvInt("ROOM_MIN_WALLS", defaults.MinWalls)
	cfg.Rules.MinDoors = getEnvInt("ROOM_MIN_DOORS", defaults.MinDoors)
	cfg.Rules.MinBeds = getEnvInt("ROOM_MIN_BEDS", defaults.MinBeds)
	cfg.Rules.MaxRoomSize = getEnvInt("ROOM_MAX_SIZE", defaults.MaxRoomSize)
	cfg.Rules.MinExtent = getEnvInt("ROOM_MIN_EXTENT", defaults.MinExtent)
	cfg.Rules.MaxExtent = getEnvInt("ROOM_MAX_EXTENT", defaults.MaxExtent)
	cfg.Rules.DoorTolerance = getEnvFloat("ROOM_DOOR_TOLERANCE", defaults.DoorTolerance)

	// an oversized enclosed area aborts instead of producing a huge invalid region
	cfg.Scan.MaxRegionSize = getEnvInt("SCAN_MAX_REGION_SIZE", cfg.Rules.MaxRoomSize)

	cfg.Quality = scanner.DefaultQualityWeights()

	pricing := scanner.DefaultPricing()
	pricing.BasePrice = getEnvFloat("PRICE_BASE", pricing.BasePrice)
	pricing.PerCell = getEnvFloat("PRICE_PER_CELL", pricing.PerCell)
	pricing.PerBed = getEnvFloat("PRICE_PER_BED", pricing.PerBed)
	pricing.PerDoor = getEnvFloat("PRICE_PER_DOOR", pricing.PerDoor)
	pricing.PerWall = getEnvFloat("PRICE_PER_WALL", pricing.PerWall)
	pricing.SunbedPrice = getEnvFloat("PRICE_SUNBED", pricing.SunbedPrice)
	pricing.SunbedReputation = getEnvFloat("REPUTATION_SUNBED", pricing.SunbedReputation)
	cfg.Pricing = pricing

	cfg.Publish.StreamEnabled = getEnvBool("PUBLISH_STREAM_ENABLED", true)
	cfg.Publish.Stream = getEnv("PUBLISH_STREAM", "lodging:rooms:events")
	cfg.Publish.SnapshotEnabled = getEnvBool("PUBLISH_SNAPSHOT_ENABLED", true)
	cfg.Publish.SnapshotKeyPrefix = getEnv("PUBLISH_SNAPSHOT_PREFIX", "lodging:rooms:")
	cfg.Publish.SnapshotTTL = getEnvDuration("PUBLISH_SNAPSHOT_TTL", 10*time.Minute)
	cfg.Publish.MQTTEnabled = getEnvBool("PUBLISH_MQTT_ENABLED", false)
	cfg.Publish.MQTTTopicPrefix = getEnv("PUBLISH_MQTT_PREFIX", "lodging/rooms")

	cfg.Consumer.Enabled = getEnvBool("SCAN_REQUEST_ENABLED", true)
	cfg.Consumer.Stream = getEnv("SCAN_REQUEST_STREAM", "lodging:scan:requests")
	cfg.Consumer.Group = getEnv("SCAN_REQUEST_GROUP", "lodging-roomscan-group")
	cfg.Consumer.ConsumerName = getEnv("SCAN_REQUEST_CONSUMER", "lodging-roomscan-1")
	cfg.Consumer.BatchSize = int64(getEnvInt("SCAN_REQUEST_BATCH", 10))
	cfg.Consumer.Block = getEnvDuration("SCAN_REQUEST_BLOCK", time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scanner cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("cell size must be positive, got %v", c.Scan.CellSize))
	}
	if c.Scan.StoreyHeight <= 0 {
		errs = append(errs, fmt.Errorf("storey height must be positive, got %v", c.Scan.StoreyHeight))
	}
	if c.Scan.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max iterations must be positive, got %d", c.Scan.MaxIterations))
	}
	if c.Scan.MaxRegionSize <= 0 {
		errs = append(errs, fmt.Errorf("max region size must be positive, got %d", c.Scan.MaxRegionSize))
	}
	if c.Rules.MaxRoomSize <= 0 {
		errs = append(errs, fmt.Errorf("max room size must be positive, got %d", c.Rules.MaxRoomSize))
	}
	if c.Rules.MinExtent > c.Rules.MaxExtent {
		errs = append(errs, fmt.Errorf("min extent %d exceeds max extent %d", c.Rules.MinExtent, c.Rules.MaxExtent))
	}
	switch c.Scan.TriggerMode {
	case TriggerPolling:
		if c.Scan.Interval <= 0 {
			errs = append(errs, fmt.Errorf("polling interval must be positive, got %v", c.Scan.Interval))
		}
	case TriggerEvents, TriggerManual:
	default:
		errs = append(errs, fmt.Errorf("unknown trigger mode %q", c.Scan.TriggerMode))
	}
	switch c.Source.Kind {
	case SourcePostgres, SourceHTTP, SourceMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown object source %q", c.Source.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or plain seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
