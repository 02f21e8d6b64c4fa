package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vocab-bot/infrastructure/logger"
)

// NewCache connects to Redis and pings it once.
func NewCache(ctx context.Context, addr, username, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"addr":  addr,
			"error": err,
		}).Error("Redis ping failed")
		return client, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	logger.GetLogger().WithField("addr", addr).Info("Redis client initialized successfully.")
	return client, nil
}
