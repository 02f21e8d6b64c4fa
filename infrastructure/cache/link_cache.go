package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vocab-bot/domain/repository"
)

// LinkCache keeps one Redis hash per "{chat}:{word}:{lang}" key.
type LinkCache struct {
	client redis.Cmdable
}

func NewLinkCache(client redis.Cmdable) repository.ILinkCache {
	return &LinkCache{client: client}
}

func (c *LinkCache) Get(ctx context.Context, key, field string) (string, bool, error) {
	value, err := c.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", key, field, err)
	}
	return value, true, nil
}

// Set writes the field with a single HSET so readers never see a partial value.
func (c *LinkCache) Set(ctx context.Context, key, field, value string) error {
	if err := c.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", key, field, err)
	}
	return nil
}
