package config

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for the configured Redis, or nil when no
// address is set.
func ConnectRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.Redis.Address == "" {
		log.Println("REDIS_ADDRESS not set, issue rate limiting disabled")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Connected to Redis")
	return client, nil
}
