package repository

import (
	"context"

	"vocab-bot/domain/dto"
	"vocab-bot/domain/model"
)

// ILinkCache stores outcomes by composite key and field.
type ILinkCache interface {
	Get(ctx context.Context, key, field string) (string, bool, error)
	Set(ctx context.Context, key, field, value string) error
}

// ISeenLedger persists the seen video ids of a pending word.
type ISeenLedger interface {
	Load(ctx context.Context, key string) (model.SeenSet, error)
	Save(ctx context.Context, key string, seen model.SeenSet) error
}

// ILinkQueue schedules a background resolve. Enqueue reports false when a
// resolve for the same key is already pending.
type ILinkQueue interface {
	Enqueue(ctx context.Context, key model.LinkKey) (bool, error)
}

// IOutcomePublisher forwards finished outcomes to the messaging layer.
type IOutcomePublisher interface {
	Publish(ctx context.Context, event dto.LinkOutcomeEvent) error
}
