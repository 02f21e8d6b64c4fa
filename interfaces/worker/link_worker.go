package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/tasks"
	"vocab-bot/usecase"
)

type ILinkWorker interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
}

type LinkWorker struct {
	linkUsecase usecase.ILinkUsecase
}

func NewLinkWorker(linkUsecase usecase.ILinkUsecase) ILinkWorker {
	return &LinkWorker{linkUsecase: linkUsecase}
}

// ProcessTask resolves the payload key. Bad payloads are not retried.
func (w *LinkWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := tasks.ParseResolveLinkPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	key := payload.Key()

	outcome, cached, err := w.linkUsecase.ResolveLink(ctx, key)
	if errors.Is(err, usecase.ErrInvalidLinkRequest) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"key":    key.String(),
		"status": outcome.Status,
		"cached": cached,
	}).Info("Resolve task finished")
	return nil
}

// NewServeMux routes every task type this service handles.
func NewServeMux(linkWorker ILinkWorker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeResolveLink, asynq.HandlerFunc(linkWorker.ProcessTask))
	return mux
}

// Logger adapts the application logger to asynq.
type Logger struct{}

func (Logger) Debug(args ...interface{}) { logger.GetLogger().Debug(args...) }
func (Logger) Info(args ...interface{})  { logger.GetLogger().Info(args...) }
func (Logger) Warn(args ...interface{})  { logger.GetLogger().Warn(args...) }
func (Logger) Error(args ...interface{}) { logger.GetLogger().Error(args...) }
func (Logger) Fatal(args ...interface{}) { logger.GetLogger().Fatal(args...) }
