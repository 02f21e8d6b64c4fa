package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"vocab-bot/domain/dto"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/logger"
)

// OutcomePublisher sends finished link outcomes to a topic the messaging
// layer subscribes to.
type OutcomePublisher struct {
	topic *pubsub.Topic
}

// NewOutcomePublisher creates topicID when it does not exist yet.
func NewOutcomePublisher(ctx context.Context, client *pubsub.Client, topicID string) (repository.IOutcomePublisher, error) {
	topic := client.Topic(topicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if !exists {
		logger.GetLogger().WithField("topic", topicID).Info("Topic doesn't exist - creating it")
		if topic, err = client.CreateTopic(ctx, topicID); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", topicID, err)
		}
	}

	return &OutcomePublisher{topic: topic}, nil
}

func (p *OutcomePublisher) Publish(ctx context.Context, event dto.LinkOutcomeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode outcome event: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"status":  string(event.Status),
			"chat_id": strconv.FormatInt(event.ChatID, 10),
		},
	}

	serverID, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish outcome event: %w", err)
	}

	logger.GetLogger().WithField("server ID", serverID).Info("Message published")
	return nil
}

// Stop flushes pending messages.
func (p *OutcomePublisher) Stop() {
	p.topic.Stop()
}
