package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/logger"
)

// TypeResolveLink resolves one (chat, word, lang) link in the background.
const TypeResolveLink = "link:resolve"

// ResolveLinkPayload is the task body.
type ResolveLinkPayload struct {
	ChatID int64  `json:"chat_id"`
	Word   string `json:"word"`
	Lang   string `json:"lang"`
}

func (p ResolveLinkPayload) Key() model.LinkKey {
	return model.LinkKey{ChatID: p.ChatID, Word: p.Word, Lang: p.Lang}
}

// UniqueID dedupes tasks per key while one is pending or running.
func (p ResolveLinkPayload) UniqueID() string {
	return TypeResolveLink + ":" + p.Key().String()
}

// NewResolveLinkTask builds the task with its default options.
func NewResolveLinkTask(key model.LinkKey, queue string, timeout time.Duration) (*asynq.Task, error) {
	payload := ResolveLinkPayload{ChatID: key.ChatID, Word: key.Word, Lang: key.Lang}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResolveLink, data,
		asynq.TaskID(payload.UniqueID()),
		asynq.Queue(queue),
		asynq.MaxRetry(1),
		asynq.Timeout(timeout),
		// completed tasks keep their id for a moment so a double tap is a no-op
		asynq.Retention(time.Minute),
	), nil
}

// ParseResolveLinkPayload decodes a task body.
func ParseResolveLinkPayload(data []byte) (ResolveLinkPayload, error) {
	var p ResolveLinkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", TypeResolveLink, err)
	}
	return p, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueManager schedules resolve tasks on asynq.
type QueueManager struct {
	client  enqueuer
	queue   string
	timeout time.Duration
}

func NewQueueManager(client *asynq.Client, queue string, timeout time.Duration) repository.ILinkQueue {
	return newQueueManager(client, queue, timeout)
}

func newQueueManager(client enqueuer, queue string, timeout time.Duration) *QueueManager {
	return &QueueManager{client: client, queue: queue, timeout: timeout}
}

// Enqueue reports false without error when the key already has a task.
func (q *QueueManager) Enqueue(ctx context.Context, key model.LinkKey) (bool, error) {
	task, err := NewResolveLinkTask(key, q.queue, q.timeout)
	if err != nil {
		return false, err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		logger.GetLogger().WithField("key", key.String()).Debug("Resolve task already exists, skipping")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", TypeResolveLink, err)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"key":     key.String(),
		"task_id": info.ID,
		"queue":   info.Queue,
	}).Info("Enqueued resolve task")
	return true, nil
}
