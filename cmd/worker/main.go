package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/chef/internal/cache"
	"github.com/socialchef/chef/internal/config"
	"github.com/socialchef/chef/internal/db"
	"github.com/socialchef/chef/internal/logger"
	"github.com/socialchef/chef/internal/metrics"
	"github.com/socialchef/chef/internal/sentry"
	"github.com/socialchef/chef/internal/services/chef"
	"github.com/socialchef/chef/internal/telemetry"
	"github.com/socialchef/chef/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required to run the worker")
	}

	serviceName := cfg.ServiceName + "-worker"

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, serviceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	logger := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create Redis client: %v", err)
	}
	defer redisClient.Close()
	images := cache.NewImageCache(redisClient, cfg.ImageCacheTTL)
	jobs := cache.NewJobStore(redisClient, cache.DefaultJobTTL)

	recipes := db.NewRecipeStore(nil)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		recipes = db.NewRecipeStore(pool)
	}

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	loader := chef.NewLoader(chef.Build(cfg, images))
	if err := metrics.RegisterSessionState(loader.Loaded); err != nil {
		slog.Warn("Failed to register session gauge", "error", err)
	}
	processor := worker.NewRecipeProcessor(loader, jobs, recipes, workerMetrics)

	srv, err := worker.NewServer(cfg.RedisURL, cfg.WorkerConcurrency)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}
	mux := worker.NewServeMux(processor)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down worker...")
		srv.Shutdown()
	}()

	slog.Info("Starting worker", "concurrency", cfg.WorkerConcurrency, "reduced_mode", cfg.ReducedMode)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
