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

	"go.uber.org/zap"

	"story-server/internal/config"
	"story-server/internal/database"
	"story-server/internal/generator"
	"story-server/internal/llm"
	"story-server/internal/logger"
	"story-server/internal/messaging"
	"story-server/internal/metrics"
	"story-server/internal/models"
	"story-server/internal/prompts"
	"story-server/internal/schema"
	"story-server/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: "story-worker"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("Starting story generation worker",
		zap.String("taskQueue", cfg.TaskQueue),
		zap.String("notificationQueue", cfg.NotificationQueue),
		zap.String("aiProvider", cfg.AIProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler(reg)}
	go func() {
		log.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error", zap.Error(err))
		}
	}()
	if cfg.PushgatewayURL != "" {
		go metrics.NewPusher(cfg.PushgatewayURL, "story_worker", reg, log).Run(ctx, cfg.MetricsPushInterval)
	}

	model, err := llm.New(cfg, llm.NewMetrics(reg), log)
	if err != nil {
		if !errors.Is(err, models.ErrConfiguration) {
			log.Fatal("Failed to create AI client", zap.Error(err))
		}
		// Tasks still get an error notification instead of piling up.
		log.Warn("Story generation disabled", zap.Error(err))
		model = nil
	}

	instructions, err := prompts.Load(cfg.PromptsDir)
	if err != nil {
		log.Fatal("Failed to load prompts", zap.Error(err))
	}

	pool, err := database.Connect(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		Attempts:    10,
		RetryDelay:  3 * time.Second,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.ApplyMigrations(pool, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	conn, err := messaging.Connect(ctx, cfg.RabbitMQURL, 10, 5*time.Second, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	defer ch.Close()

	topology := messaging.Topology{TaskQueue: cfg.TaskQueue, NotificationQueue: cfg.NotificationQueue}
	if err := topology.Declare(ch); err != nil {
		log.Fatal("Failed to declare queues", zap.Error(err))
	}
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal("Failed to set QoS", zap.Error(err))
	}

	limits := schema.Limits{MaxDepth: cfg.StoryMaxDepth, MaxNodes: cfg.StoryMaxNodes}
	gen := generator.New(model, limits, log,
		generator.WithInstructions(instructions),
		generator.WithMetrics(metrics.NewGeneration(reg)),
	)
	workerMetrics := worker.NewMetrics(reg)
	handler := worker.NewTaskHandler(
		database.NewSessionFactory(pool, log),
		gen,
		messaging.NewRabbitMQNotifier(ch, cfg.NotificationQueue, log),
		workerMetrics,
		log,
	)
	consumer := worker.NewConsumer(handler, workerMetrics, log)

	deliveries, err := ch.Consume(cfg.TaskQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("Failed to register consumer", zap.Error(err))
	}

	log.Info("Waiting for generation tasks")
	consumer.Run(ctx, deliveries)

	log.Info("Shutting down worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server forced to shutdown", zap.Error(err))
	}
	log.Info("Worker exited")
}
