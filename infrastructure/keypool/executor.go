package keypool

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/observability"
)

const (
	// DefaultMaxBackoffAttempts is the number of backoff sleeps a single call may take.
	DefaultMaxBackoffAttempts = 3
	// DefaultBackoffBase is the delay before the first retry; it doubles per attempt.
	DefaultBackoffBase = time.Second
	// DefaultMaxBackoffInterval caps a single backoff sleep.
	DefaultMaxBackoffInterval = 30 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cost computes the quota units a successful call consumed.
type Cost[R any] func(R) int64

// FixedCost charges n units regardless of the result.
func FixedCost[R any](n int64) Cost[R] {
	return func(R) int64 { return n }
}

// CountCost charges one unit per element of the result.
func CountCost[E any]() Cost[[]E] {
	return func(items []E) int64 { return int64(len(items)) }
}

// ExecutorConfig tunes retry behaviour. Zero values fall back to defaults.
type ExecutorConfig struct {
	MaxBackoffAttempts int
	BackoffBase        time.Duration
	MaxBackoffInterval time.Duration
	Classifier         Classifier
	Sleep              SleepFunc
}

// Executor runs work against the next available credential of a pool.
type Executor[C any] struct {
	pool       *CredentialPool[C]
	maxBackoff int
	base       time.Duration
	maxDelay   time.Duration
	classify   Classifier
	sleep      SleepFunc
}

// NewExecutor wraps pool with the retry policy in cfg.
func NewExecutor[C any](pool *CredentialPool[C], cfg ExecutorConfig) *Executor[C] {
	e := &Executor[C]{
		pool:       pool,
		maxBackoff: cfg.MaxBackoffAttempts,
		base:       cfg.BackoffBase,
		maxDelay:   cfg.MaxBackoffInterval,
		classify:   cfg.Classifier,
		sleep:      cfg.Sleep,
	}
	if e.maxBackoff <= 0 {
		e.maxBackoff = DefaultMaxBackoffAttempts
	}
	if e.base <= 0 {
		e.base = DefaultBackoffBase
	}
	if e.maxDelay <= 0 {
		e.maxDelay = DefaultMaxBackoffInterval
	}
	if e.classify == nil {
		e.classify = Classify
	}
	if e.sleep == nil {
		e.sleep = Sleep
	}
	return e
}

// Pool returns the underlying credential pool.
func (e *Executor[C]) Pool() *CredentialPool[C] { return e.pool }

// newBackOff returns a fresh schedule base, 2*base, 4*base... without jitter.
func (e *Executor[C]) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     e.base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         e.maxDelay,
	}
	b.Reset()
	return b
}

// Execute runs work with the executor's configured backoff budget.
func Execute[C, R any](ctx context.Context, e *Executor[C], work func(context.Context, C) (R, error), cost Cost[R]) (R, error) {
	return ExecuteWithBackoff(ctx, e, work, cost, e.maxBackoff)
}

// ExecuteWithBackoff runs work against rotating credentials:
//   - quota errors deactivate the credential and rotate immediately;
//   - rate-limit and transport errors sleep base*2^attempt (capped at the
//     configured max interval, restarting at base for every call), and once
//     maxBackoffAttempts sleeps were taken, deactivate instead;
//   - any other error is returned unchanged.
//
// ErrCredentialsExhausted is returned once no credential is active.
func ExecuteWithBackoff[C, R any](
	ctx context.Context,
	e *Executor[C],
	work func(context.Context, C) (R, error),
	cost Cost[R],
	maxBackoffAttempts int,
) (R, error) {
	var zero R
	attempt := 0
	schedule := e.newBackOff()

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		cred, err := e.pool.Next()
		if err != nil {
			logger.GetLogger().WithField("pool", e.pool.Name()).Error("No active credentials left")
			return zero, err
		}

		result, err := work(ctx, cred.Client)
		if err == nil {
			if cost != nil {
				e.pool.Record(cred, cost(result))
			}
			return result, nil
		}

		class := e.classify(err)
		log := logger.GetLogger().WithFields(map[string]interface{}{
			"pool":    e.pool.Name(),
			"key":     MaskKey(cred.Key),
			"class":   class.String(),
			"attempt": attempt,
			"error":   err,
		})

		switch class {
		case ClassQuota:
			log.Warn("Credential quota exhausted")
			e.pool.Deactivate(cred)

		case ClassRateLimit, ClassTransport:
			if attempt >= maxBackoffAttempts {
				log.Warn("Backoff budget spent; deactivating credential")
				e.pool.Deactivate(cred)
				continue
			}
			delay := schedule.NextBackOff()
			log.WithField("delay", delay.String()).Info("Backing off before retry")
			observability.BackoffSleepsTotal.WithLabelValues(e.pool.Name(), class.String()).Inc()
			if err := e.sleep(ctx, delay); err != nil {
				return zero, err
			}
			attempt++

		default:
			log.Error("Provider call failed")
			return zero, err
		}
	}
}
