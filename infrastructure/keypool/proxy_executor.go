package keypool

import (
	"context"
	"fmt"

	"vocab-bot/infrastructure/logger"
)

// ProxyExecutor runs work through the next available proxy and rotates away
// from proxies that fail at the transport level.
type ProxyExecutor struct {
	pool     *ProxyPool
	classify Classifier
}

// NewProxyExecutor uses Classify when classify is nil.
func NewProxyExecutor(pool *ProxyPool, classify Classifier) *ProxyExecutor {
	if classify == nil {
		classify = Classify
	}
	return &ProxyExecutor{pool: pool, classify: classify}
}

func (e *ProxyExecutor) Pool() *ProxyPool { return e.pool }

// ExecuteWithProxy deactivates the proxy on every transport-class error and
// tries the next one. Other errors are returned without touching the pool.
// DirectProxy is never deactivated; its transport errors come back wrapped in
// ErrDirectRouteFailed.
func ExecuteWithProxy[R any](ctx context.Context, e *ProxyExecutor, work func(ctx context.Context, proxy string) (R, error)) (R, error) {
	var zero R

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		proxy, err := e.pool.Next()
		if err != nil {
			return zero, err
		}

		result, err := work(ctx, proxy)
		if err == nil {
			return result, nil
		}

		if e.classify(err) != ClassTransport {
			return zero, err
		}
		if proxy == DirectProxy {
			logger.GetLogger().WithFields(map[string]interface{}{
				"pool":  e.pool.Name(),
				"error": err,
			}).Warn("Direct request failed")
			return zero, fmt.Errorf("%w: %w", ErrDirectRouteFailed, err)
		}

		logger.GetLogger().WithFields(map[string]interface{}{
			"pool":  e.pool.Name(),
			"proxy": MaskProxy(proxy),
			"error": err,
		}).Warn("Proxy request failed; rotating")
		e.pool.Deactivate(proxy)
	}
}
