package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/infrastructure/auth"
	"github.com/campus/backend/internal/infrastructure/cache"
	"github.com/campus/backend/internal/infrastructure/config"
	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/infrastructure/persistence"
	"github.com/campus/backend/internal/infrastructure/scheduler"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/campus/backend/internal/interfaces/http/handler"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/campus/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting campus ledger",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		return err
	}
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		return err
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}),
	)
	if err != nil {
		return err
	}
	log.Info("Database connected")

	stores, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Build(ctx)
	if err != nil {
		_ = db.Close()
		return err
	}

	clock := ledger.SystemClock{}
	scope := persistence.NewGormTransactionScope(db.DB)
	students := persistence.NewGormStudentDirectory(db.DB)
	fees := persistence.NewGormFeeStructureProvider(db.DB)

	adjustments := appledger.NewAdjustmentService(scope, log)
	generation := appledger.NewDueGenerationService(scope, adjustments, students, fees, clock, cfg.Ledger.PerStudentTimeout, log)
	payments := appledger.NewPaymentService(scope, clock, appledger.PaymentConfig{
		ReceiptPrefix:  cfg.Ledger.ReceiptPrefix,
		IdempotencyTTL: cfg.Ledger.IdempotencyTTL,
	}, log)
	payments.SetIdempotencyStore(stores.Idempotency)
	accounts := appledger.NewAccountService(scope, log)
	feeService := appledger.NewFeeService(scope, students, log)

	adjustments.SetMetrics(ledgerMetrics)
	generation.SetMetrics(ledgerMetrics)
	payments.SetMetrics(ledgerMetrics)
	accounts.SetMetrics(ledgerMetrics)
	feeService.SetMetrics(ledgerMetrics)
	adjustments.SetCacheInvalidator(stores.Invalidator)
	generation.SetCacheInvalidator(stores.Invalidator)
	payments.SetCacheInvalidator(stores.Invalidator)
	accounts.SetCacheInvalidator(stores.Invalidator)
	feeService.SetCacheInvalidator(stores.Invalidator)

	jobs, err := scheduler.New(scheduler.Config{
		Enabled:        cfg.Ledger.SchedulerEnabled,
		GenerationSpec: cfg.Ledger.GenerationCron,
		OverdueSpec:    cfg.Ledger.OverdueCron,
		JobTimeout:     cfg.Ledger.JobTimeout,
	}, generation, students, scheduler.NewJobRunRepository(db.DB), clock, log.Named("scheduler"))
	if err != nil {
		return err
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:           log,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tracerProvider.IsEnabled(),
		Meter:            meterProvider.Meter("http"),
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		MaxBatchBodySize: cfg.HTTP.MaxBatchBodySize,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Auth: middleware.AuthConfig{
			JWTService: auth.NewJWTService(cfg.JWT),
			Disabled:   cfg.JWT.Disabled,
			Logger:     log,
		},
		Health: handler.NewHealthHandler(version, map[string]handler.Pinger{"database": db}),
		Ledger: router.LedgerHandlers{
			Dues:     handler.NewDuesHandler(generation, feeService, adjustments, students),
			Payments: handler.NewPaymentHandler(payments),
			Accounts: handler.NewAccountHandler(accounts),
		},
	})
	if err != nil {
		return err
	}
	if cfg.JWT.Disabled {
		log.Warn("Authentication disabled, tenant and actor are read from request headers")
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		jobs.Start(gctx)
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			jobs.Stop(shutdownCtx),
		)
	})

	err = g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := stores.Close(); cerr != nil {
		log.Error("Error closing cache stores", zap.Error(cerr))
	}
	if cerr := db.Close(); cerr != nil {
		log.Error("Error closing database", zap.Error(cerr))
	}
	if serr := tracerProvider.Shutdown(flushCtx); serr != nil {
		log.Error("Error flushing traces", zap.Error(serr))
	}
	if serr := meterProvider.Shutdown(flushCtx); serr != nil {
		log.Error("Error flushing metrics", zap.Error(serr))
	}
	if serr := loggerProvider.Shutdown(flushCtx); serr != nil {
		log.Error("Error flushing logs", zap.Error(serr))
	}
	return err
}
