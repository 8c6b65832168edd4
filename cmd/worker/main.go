package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/medicao-erp/medicao-erp/internal/app"
	"github.com/medicao-erp/medicao-erp/internal/measurement"
	"github.com/medicao-erp/medicao-erp/internal/platform/cache"
	"github.com/medicao-erp/medicao-erp/internal/platform/db"
	"github.com/medicao-erp/medicao-erp/internal/shared"
	"github.com/medicao-erp/medicao-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, aggregation cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	measurementRepo := measurement.NewRepository(dbpool)
	aggregator := measurement.NewAggregator(measurementRepo, redisClient, cfg.AggregateCacheTTL, logger)
	warmer := jobs.NewAggregateWarmer(measurementRepo, aggregator, logger)
	cleaner := jobs.NewIdempotencyCleaner(shared.NewIdempotencyStore(dbpool), logger)

	warmupTask, err := jobs.NewAggregateWarmupTask(jobs.AggregateWarmupPayload{CompanyID: cfg.DefaultCompanyID})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{RetentionHours: cfg.IdempotencyRetentionH})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAggregateWarmup, Handler: warmer.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleaner.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: warmupTask},
			{Spec: "0 3 * * *", Task: cleanupTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
