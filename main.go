package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/cache"
	"vocab-bot/infrastructure/clients/transcript"
	youtubeclient "vocab-bot/infrastructure/clients/youtube"
	"vocab-bot/infrastructure/configuration"
	"vocab-bot/infrastructure/keypool"
	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/observability"
	"vocab-bot/infrastructure/pubsub"
	"vocab-bot/infrastructure/tasks"
	httpHandler "vocab-bot/interfaces/http"
	"vocab-bot/interfaces/worker"
	"vocab-bot/server"
	"vocab-bot/usecase"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// OS env still has precedence over the files
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Load()
	cfg := configuration.C

	redisClient, err := cache.NewCache(ctx, cfg.RedisClient.Addr(), cfg.RedisClient.Username, cfg.RedisClient.Password, cfg.RedisClient.DB())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis not reachable; link lookups will fail until it is")
	}
	linkCache := cache.NewLinkCache(redisClient)
	seenLedger := cache.NewSeenLedger(redisClient, time.Duration(cfg.Resolver.SeenTTLHours)*time.Hour)

	var ytOpts []option.ClientOption
	if cfg.YouTube.Endpoint != "" {
		ytOpts = append(ytOpts, option.WithEndpoint(cfg.YouTube.Endpoint))
	}
	credentials, err := keypool.NewCredentialPool("youtube", cfg.YouTube.APIKeys, youtubeclient.Factory(ctx, ytOpts...))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot build YouTube credential pool")
		os.Exit(1)
	}
	searchExecutor := keypool.NewExecutor(credentials, keypool.ExecutorConfig{
		MaxBackoffAttempts: cfg.YouTube.MaxBackoffAttempts,
	})

	proxies := keypool.NewProxyPool("transcript", cfg.Transcript.Proxies)
	proxyExecutor := keypool.NewProxyExecutor(proxies, nil)
	transcripts := transcript.NewProvider(transcript.Config{
		BaseURL:           cfg.Transcript.BaseURL,
		Timeout:           time.Duration(cfg.Transcript.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Transcript.RequestsPerSecond,
	})

	finder := usecase.NewVideoFinder(searchExecutor, proxyExecutor, transcripts, usecase.VideoFinderConfig{
		MaxPages:           cfg.YouTube.MaxPages,
		SearchCost:         cfg.YouTube.SearchCost,
		MaxBackoffAttempts: cfg.YouTube.MaxBackoffAttempts,
	})

	taskTimeout := time.Duration(cfg.Worker.TaskTimeoutSeconds) * time.Second
	linkUsecase := usecase.NewLinkUsecase(finder, linkCache, seenLedger, usecase.LinkUsecaseConfig{
		MaxResults:     cfg.YouTube.MaxResults,
		AwaitTimeout:   time.Duration(cfg.Resolver.AwaitTimeoutSeconds) * time.Second,
		ResolveTimeout: taskTimeout,
	})

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisClient.Addr(),
		Username: cfg.RedisClient.Username,
		Password: cfg.RedisClient.Password,
		DB:       cfg.RedisClient.DB(),
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Error while closing task client")
		}
	}()
	linkUsecase = linkUsecase.WithQueue(tasks.NewQueueManager(asynqClient, cfg.Worker.Queue, taskTimeout))

	if publisher := initiatePublisher(ctx, cfg.Pubsub); publisher != nil {
		linkUsecase = linkUsecase.WithPublisher(publisher)
	}

	poolUsecase := usecase.NewPoolUsecase(credentials, proxies)

	router := server.InitiateRouter(
		httpHandler.NewLinkHandler(linkUsecase),
		httpHandler.NewPoolHandler(poolUsecase),
		httpHandler.NewHealthHandler(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		cfg.App.SecretKey,
		cfg.App.AllowOrigins,
	)

	observability.StartMetricsServer(ctx, cfg.Metrics.Addr)

	taskServer := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{cfg.Worker.Queue: 1},
		Logger:      worker.Logger{},
	})
	// Start returns once the processors run; Shutdown below stops them.
	if err := taskServer.Start(worker.NewServeMux(worker.NewLinkWorker(linkUsecase))); err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot start task worker")
		os.Exit(1)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"queue":       cfg.Worker.Queue,
		"concurrency": cfg.Worker.Concurrency,
	}).Info("Task worker started")

	port := cfg.App.Port
	logger.GetLogger().WithFields(map[string]interface{}{
		"port":        port,
		"credentials": credentials.Len(),
		"proxies":     proxies.Len(),
	}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	taskServer.Shutdown()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// initiatePublisher returns nil when outcome events are not configured.
func initiatePublisher(ctx context.Context, cfg configuration.Pubsub) repository.IOutcomePublisher {
	client, err := pubsub.NewPubSub(ctx, cfg.ProjectID)
	if errors.Is(err, pubsub.ErrNoProject) {
		logger.GetLogger().Info("Pub/Sub project not configured; outcome events disabled")
		return nil
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available; outcome events disabled")
		return nil
	}

	publisher, err := pubsub.NewOutcomePublisher(ctx, client, cfg.Topic)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Cannot open outcome topic; outcome events disabled")
		return nil
	}
	return publisher
}
