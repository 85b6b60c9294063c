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

	"github.com/prometheus/client_golang/prometheus"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"story-server/internal/api"
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
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: "story-server"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("Starting story server",
		zap.String("port", cfg.HTTPPort),
		zap.String("aiProvider", cfg.AIProvider),
		zap.String("db", cfg.MaskedDSN()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := llm.New(cfg, llm.NewMetrics(prometheus.DefaultRegisterer), log)
	if err != nil {
		if !errors.Is(err, models.ErrConfiguration) {
			log.Fatal("Failed to create AI client", zap.Error(err))
		}
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

	var tasks messaging.TaskPublisher
	if cfg.QueueEnabled {
		conn, err := messaging.Connect(ctx, cfg.RabbitMQURL, 5, 5*time.Second, log)
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
		tasks = messaging.NewRabbitMQTaskPublisher(ch, cfg.TaskQueue, log)
	}

	limits := schema.Limits{MaxDepth: cfg.StoryMaxDepth, MaxNodes: cfg.StoryMaxNodes}
	gen := generator.New(model, limits, log,
		generator.WithInstructions(instructions),
		generator.WithMetrics(metrics.NewGeneration(prometheus.DefaultRegisterer)),
	)
	handler := api.NewHandler(gen, database.NewSessionFactory(pool, log), database.NewStoryRepository(pool, log), tasks, log)

	router := api.NewRouter(cfg.CORSAllowedOrigins, log)
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
