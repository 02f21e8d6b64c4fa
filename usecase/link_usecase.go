package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"vocab-bot/domain/dto"
	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/observability"
)

var (
	ErrInvalidLinkRequest = errors.New("word and lang are required")
	ErrQueueUnavailable   = errors.New("background queue is not configured")
)

// ILinkUsecase resolves and memoises word links per (chat, word, lang).
type ILinkUsecase interface {
	// ResolveLink returns a cached resolved link or runs the pipeline and
	// caches its outcome.
	ResolveLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error)
	// AwaitLink runs ResolveLink in the background and waits at most the
	// configured timeout for it.
	AwaitLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error)
	CachedLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error)
	EnqueueLink(ctx context.Context, key model.LinkKey) (bool, error)
}

type LinkUsecaseConfig struct {
	MaxResults   int
	AwaitTimeout time.Duration
	// ResolveTimeout bounds a background resolve started by AwaitLink.
	ResolveTimeout time.Duration
}

type LinkUsecase struct {
	finder    IVideoFinder
	cache     repository.ILinkCache
	seen      repository.ISeenLedger
	queue     repository.ILinkQueue
	publisher repository.IOutcomePublisher
	cfg       LinkUsecaseConfig

	group singleflight.Group
}

func NewLinkUsecase(finder IVideoFinder, cache repository.ILinkCache, seen repository.ISeenLedger, cfg LinkUsecaseConfig) *LinkUsecase {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = 15 * time.Second
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 5 * time.Minute
	}
	return &LinkUsecase{finder: finder, cache: cache, seen: seen, cfg: cfg}
}

// WithQueue enables background dispatch (fluent).
func (u *LinkUsecase) WithQueue(queue repository.ILinkQueue) *LinkUsecase {
	u.queue = queue
	return u
}

// WithPublisher enables outcome events (fluent).
func (u *LinkUsecase) WithPublisher(publisher repository.IOutcomePublisher) *LinkUsecase {
	u.publisher = publisher
	return u
}

func validate(key model.LinkKey) (model.LinkKey, error) {
	key = key.Normalize()
	if key.Word == "" || key.Lang == "" {
		return key, ErrInvalidLinkRequest
	}
	return key, nil
}

func (u *LinkUsecase) CachedLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error) {
	key, err := validate(key)
	if err != nil {
		return model.LinkOutcome{}, false, err
	}

	value, found, err := u.cache.Get(ctx, key.String(), model.FieldYouTubeLink)
	if err != nil {
		return model.LinkOutcome{}, false, fmt.Errorf("read cached link: %w", err)
	}
	if !found {
		return model.LinkOutcome{}, false, nil
	}
	return model.OutcomeFromCache(value), true, nil
}

func (u *LinkUsecase) ResolveLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error) {
	key, err := validate(key)
	if err != nil {
		return model.LinkOutcome{}, false, err
	}

	cached, found, err := u.CachedLink(ctx, key)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Link cache unavailable; resolving anyway")
	}
	if found && !cached.Retriable() {
		return cached, true, nil
	}

	started := time.Now()
	outcome := u.runPipeline(ctx, key)

	observability.LinkOutcomesTotal.WithLabelValues(string(outcome.Status)).Inc()
	observability.ResolveDuration.WithLabelValues(string(outcome.Status)).Observe(time.Since(started).Seconds())

	if err := u.cache.Set(ctx, key.String(), model.FieldYouTubeLink, outcome.CacheValue()); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"key":   key.String(),
			"error": err,
		}).Error("Failed to store link outcome")
		return outcome, false, fmt.Errorf("store link outcome: %w", err)
	}

	u.publish(ctx, key, outcome)
	return outcome, false, nil
}

// runPipeline never fails: every error becomes the error outcome.
func (u *LinkUsecase) runPipeline(ctx context.Context, key model.LinkKey) model.LinkOutcome {
	log := logger.GetLogger().WithField("key", key.String())

	seen, err := u.seen.Load(ctx, key.String())
	if err != nil {
		log.WithField("error", err).Warn("Failed to load seen videos")
		seen = model.NewSeenSet()
	}

	link, err := u.finder.Resolve(ctx, key.Word, key.Lang, seen, u.cfg.MaxResults)

	// A failed attempt marked candidates it never inspected, so its set is dropped.
	if err == nil {
		if saveErr := u.seen.Save(ctx, key.String(), seen); saveErr != nil {
			log.WithField("error", saveErr).Warn("Failed to save seen videos")
		}
	}

	switch {
	case errors.Is(err, keypool.ErrCredentialsExhausted):
		log.WithField("error", err).Error("ALERT: every YouTube API key is out of quota")
		return model.Failed()
	case errors.Is(err, keypool.ErrProxiesExhausted):
		log.WithField("error", err).Error("ALERT: every transcript proxy failed")
		return model.Failed()
	case err != nil:
		log.WithField("error", err).Error("Video resolution failed")
		return model.Failed()
	case link == "":
		log.Info("No video contains the word")
		return model.NotFound()
	}
	return model.Resolved(link)
}

func (u *LinkUsecase) publish(ctx context.Context, key model.LinkKey, outcome model.LinkOutcome) {
	if u.publisher == nil {
		return
	}
	event := dto.LinkOutcomeEvent{
		ChatID:     key.ChatID,
		Word:       key.Word,
		Lang:       key.Lang,
		Status:     outcome.Status,
		Link:       outcome.Link,
		Message:    outcome.Message(),
		ResolvedAt: time.Now().UTC(),
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"key":   key.String(),
			"error": err,
		}).Warn("Failed to publish link outcome")
	}
}

type resolveResult struct {
	outcome model.LinkOutcome
	cached  bool
}

// AwaitLink shares one background resolve per key between concurrent
// callers. The resolve is detached from ctx so it still writes the cache
// after the caller gave up; the caller then gets the timeout outcome.
func (u *LinkUsecase) AwaitLink(ctx context.Context, key model.LinkKey) (model.LinkOutcome, bool, error) {
	key, err := validate(key)
	if err != nil {
		return model.LinkOutcome{}, false, err
	}

	ch := u.group.DoChan(key.String(), func() (interface{}, error) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.ResolveTimeout)
		defer cancel()

		outcome, cached, err := u.ResolveLink(bg, key)
		return resolveResult{outcome: outcome, cached: cached}, err
	})

	timer := time.NewTimer(u.cfg.AwaitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		r, _ := res.Val.(resolveResult)
		if res.Err != nil && r.outcome.Status == "" {
			return model.Failed(), false, res.Err
		}
		return r.outcome, r.cached, nil
	case <-timer.C:
		logger.GetLogger().WithField("key", key.String()).Warn("Timed out waiting for video link")
		return model.TimedOut(), false, nil
	case <-ctx.Done():
		return model.TimedOut(), false, nil
	}
}

// EnqueueLink schedules a background resolve unless a resolved link is cached.
func (u *LinkUsecase) EnqueueLink(ctx context.Context, key model.LinkKey) (bool, error) {
	key, err := validate(key)
	if err != nil {
		return false, err
	}
	if u.queue == nil {
		return false, ErrQueueUnavailable
	}

	if cached, found, err := u.CachedLink(ctx, key); err == nil && found && !cached.Retriable() {
		return false, nil
	}

	enqueued, err := u.queue.Enqueue(ctx, key)
	if err != nil {
		return false, fmt.Errorf("enqueue link: %w", err)
	}
	return enqueued, nil
}
