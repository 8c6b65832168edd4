package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medicao-erp/medicao-erp/internal/app"
	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/contracts"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/partners"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/products"
	"github.com/medicao-erp/medicao-erp/internal/measurement"
	"github.com/medicao-erp/medicao-erp/internal/platform/cache"
	"github.com/medicao-erp/medicao-erp/internal/platform/db"
	"github.com/medicao-erp/medicao-erp/internal/sales/orders"
	"github.com/medicao-erp/medicao-erp/internal/shared"
	"github.com/medicao-erp/medicao-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	partnerRepo := partners.NewRepository(dbpool)
	partnerService := partners.NewService(partnerRepo, logger)
	partnerHandler := partners.NewHandler(partnerService)

	productRepo := products.NewRepository(dbpool)
	orderRepo := orders.NewRepository(dbpool)
	contractRepo := contracts.NewRepository(dbpool)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, logger)
	billingHandler := billing.NewHandler(billingService)

	measurementRepo := measurement.NewRepository(dbpool)
	aggregator := measurement.NewAggregator(measurementRepo, redisClient, cfg.AggregateCacheTTL, logger)
	measurementService := measurement.NewService(measurement.ServiceDeps{
		Repo:       measurementRepo,
		Orders:     orderRepo,
		Contracts:  contractRepo,
		Products:   productRepo,
		Partners:   partnerRepo,
		Aggregator: aggregator,
		Audit:      auditLogger,
		Idem:       idempotencyStore,
		Logger:     logger,
	})
	measurementHandler := measurement.NewHandler(measurementService, approvalRecorder)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		MeasurementHandler: measurementHandler,
		BillingHandler:     billingHandler,
		PartnerHandler:     partnerHandler,
		ProductHandler:     products.NewHandler(productRepo),
		OrderHandler:       orders.NewHandler(orderRepo),
		ContractHandler:    contracts.NewHandler(contractRepo),
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
