package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/jyouni2001/LodgingSimulator-sub001/common/config"
)

// NewRedisClient builds a client from cfg without dialing
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return redis.NewClient(opts)
}

// Connect builds a client and pings it within ctx. The client is closed
// again if the ping fails
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close closes client; nil is ignored
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
