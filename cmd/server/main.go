package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appaudit "github.com/clinicore/backend/internal/application/audit"
	appbilling "github.com/clinicore/backend/internal/application/billing"
	appidentity "github.com/clinicore/backend/internal/application/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/activity"
	"github.com/clinicore/backend/internal/infrastructure/auth"
	"github.com/clinicore/backend/internal/infrastructure/cache"
	"github.com/clinicore/backend/internal/infrastructure/config"
	"github.com/clinicore/backend/internal/infrastructure/logger"
	"github.com/clinicore/backend/internal/infrastructure/persistence"
	"github.com/clinicore/backend/internal/infrastructure/telemetry"
	"github.com/clinicore/backend/internal/interfaces/http/handler"
	"github.com/clinicore/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Warn("failed to register database tracing", zap.Error(err))
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(cfg.Idempotency.Backend)
	if err != nil {
		log.Fatal("failed to create idempotency store", zap.Error(err))
	}
	idemConfig := shared.IdempotencyConfig{
		Enabled: cfg.Idempotency.Enabled,
		TTL:     cfg.Idempotency.TTL,
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	planRepo := persistence.NewGormPaymentPlanRepository(db.DB)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	ownership := persistence.NewGormOwnershipVerifier(db.DB)

	billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("billing"), log)
	if err != nil {
		log.Warn("failed to initialize billing metrics", zap.Error(err))
	}

	auditService := appaudit.NewService(auditRepo, ownership)
	auditor := telemetry.NewInstrumentedAuditRecorder(auditService, billingMetrics)
	activitySink := activity.NewLogSink(log)

	invoiceService := appbilling.NewInvoiceService(
		txScope, invoiceRepo, paymentRepo, adjustmentRepo, orgRepo,
		idempotencyStore, idemConfig, auditor, activitySink, log)
	paymentService := appbilling.NewPaymentService(
		txScope, paymentRepo, orgRepo,
		idempotencyStore, idemConfig, auditor, activitySink, log)
	planService := appbilling.NewPaymentPlanService(
		planRepo, invoiceRepo, orgRepo, paymentService, auditor, activitySink, log)
	adjustmentService := appbilling.NewAdjustmentService(
		txScope, adjustmentRepo, orgRepo, auditor, activitySink, log)
	orgService := appidentity.NewOrganizationService(orgRepo, auditor, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(router.Options{
		Config:     cfg,
		Logger:     log,
		JWTService: jwtService,
		Metrics:    meterProvider,
		Tracing:    tracerProvider.IsEnabled(),
	}, router.Handlers{
		Invoice:      handler.NewInvoiceHandler(invoiceService, log),
		Payment:      handler.NewPaymentHandler(paymentService, log),
		PaymentPlan:  handler.NewPaymentPlanHandler(planService, log),
		Adjustment:   handler.NewAdjustmentHandler(adjustmentService, log),
		Audit:        handler.NewAuditHandler(auditService, log),
		Organization: handler.NewOrganizationHandler(orgService, log),
		Health:       handler.NewHealthHandler(db, log),
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Error("idempotency store close failed", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("database close failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
