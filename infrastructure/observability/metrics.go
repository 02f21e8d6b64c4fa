package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vocab-bot/infrastructure/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// CredentialUnitsTotal counts quota units consumed per credential
	CredentialUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_credential_units_total",
			Help: "Quota units consumed per credential",
		},
		[]string{"pool", "key"}, // key is masked
	)

	// CredentialDeactivationsTotal counts credentials taken out of rotation
	CredentialDeactivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_credential_deactivations_total",
			Help: "Credentials permanently deactivated",
		},
		[]string{"pool"},
	)

	// ActiveCredentials tracks how many credentials are still usable
	ActiveCredentials = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vocab_credentials_active",
			Help: "Number of active credentials in the pool",
		},
		[]string{"pool"},
	)

	// BackoffSleepsTotal counts backoff sleeps by error class
	BackoffSleepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_backoff_sleeps_total",
			Help: "Backoff sleeps taken before retrying a provider call",
		},
		[]string{"pool", "class"}, // class: rate_limit, transport
	)

	// ProxyDeactivationsTotal counts proxies removed after transport failures
	ProxyDeactivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_proxy_deactivations_total",
			Help: "Proxies permanently deactivated",
		},
		[]string{"pool"},
	)

	// ActiveProxies tracks how many proxies are still usable
	ActiveProxies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vocab_proxies_active",
			Help: "Number of active proxies in the pool",
		},
		[]string{"pool"},
	)

	// LinkOutcomesTotal counts resolution outcomes
	LinkOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocab_link_outcomes_total",
			Help: "Link resolution outcomes",
		},
		[]string{"status"}, // status: resolved, not_found, error, timeout, cached
	)

	// ResolveDuration measures one full pipeline run
	ResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocab_resolve_duration_seconds",
			Help:    "Duration of a link resolution pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer serves /metrics on addr until ctx is cancelled.
func StartMetricsServer(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().WithField("error", err).Error("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
