package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
)

const seenPrefix = "seen:"

// SeenLedger stores the seen video ids of a key as a Redis set that expires
// ttl after the last save.
type SeenLedger struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSeenLedger(client redis.Cmdable, ttl time.Duration) repository.ISeenLedger {
	return &SeenLedger{client: client, ttl: ttl}
}

func (l *SeenLedger) Load(ctx context.Context, key string) (model.SeenSet, error) {
	ids, err := l.client.SMembers(ctx, seenPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return model.NewSeenSet(ids...), nil
}

func (l *SeenLedger) Save(ctx context.Context, key string, seen model.SeenSet) error {
	if len(seen) == 0 {
		return nil
	}

	ids := seen.IDs()
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, seenPrefix+key, members...)
		if l.ttl > 0 {
			pipe.Expire(ctx, seenPrefix+key, l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save seen %s: %w", key, err)
	}
	return nil
}
