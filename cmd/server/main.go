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

	financeapp "github.com/erp/tradecore/internal/application/finance"
	"github.com/erp/tradecore/internal/application/numbering"
	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/infrastructure/cache"
	"github.com/erp/tradecore/internal/infrastructure/config"
	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/infrastructure/persistence"
	"github.com/erp/tradecore/internal/infrastructure/persistence/models"
	"github.com/erp/tradecore/internal/infrastructure/telemetry"
	"github.com/erp/tradecore/internal/interfaces/http/handler"
	"github.com/erp/tradecore/internal/interfaces/http/middleware"
	"github.com/erp/tradecore/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tradecore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting tradecore",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracerConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter()

	// Database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// postgres schemas come from cmd/migrate; the embedded dev database builds its own
		if err := db.DB.AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem: dbSystem,
	}, log); err != nil {
		return fmt.Errorf("register database tracing: %w", err)
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Idempotency keys for identifier allocation
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		return fmt.Errorf("create idempotency store: %w", err)
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Numbering
	sequenceMetrics, err := telemetry.NewSequenceMetrics(meter)
	if err != nil {
		return fmt.Errorf("create sequence metrics: %w", err)
	}
	allocatorConfig, err := numbering.AllocatorConfig(cfg.Sequence)
	if err != nil {
		return err
	}
	allocator := sequence.NewAllocator(
		persistence.NewGormSequenceUnitOfWork(db.DB),
		persistence.NewGormSequenceReader(db.DB),
		allocatorConfig,
		sequence.WithObserver(sequenceMetrics),
	)
	numberingService := numbering.NewService(allocator, allocatorConfig.DefaultPrefixes[sequence.KindQuotation],
		numbering.WithIdempotencyStore(idempotencyStore, cfg.Sequence.IdempotencyTTL),
		numbering.WithMetrics(sequenceMetrics),
		numbering.WithLogger(log),
	)

	// Ledger
	rules, err := financeapp.RuleTableFromConfig(cfg.Transitions)
	if err != nil {
		return err
	}
	financeMetrics, err := telemetry.NewFinanceMetrics(meter)
	if err != nil {
		return fmt.Errorf("create finance metrics: %w", err)
	}
	documents := persistence.NewGormPayableDocumentRepository(db.DB)
	ledgerService := financeapp.NewLedgerService(financeapp.Repositories{
		Documents: documents,
		Statuses:  documents,
		Schedule:  persistence.NewGormScheduleRepository(db.DB),
		Payments:  persistence.NewGormPaymentRepository(db.DB),
		Costs:     persistence.NewGormCostRepository(db.DB),
	}, rules,
		financeapp.WithTransactionRunner(persistence.NewTransactionManager(db.DB)),
		financeapp.WithFinanceMetrics(financeMetrics),
		financeapp.WithLogger(log),
	)

	// HTTP
	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:          meter,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tenant:         middleware.DefaultTenantConfig(),
	})
	if err != nil {
		return err
	}

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := idempotencyStore.(handler.Pinger); ok {
		checks["idempotency_store"] = pinger
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine).
		Register(handler.NewSequenceHandler(numberingService)).
		Register(handler.NewLedgerHandler(ledgerService)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}
