package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	importapp "github.com/erp/warehouse/internal/application/import"
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	productionapp "github.com/erp/warehouse/internal/application/production"
	"github.com/erp/warehouse/internal/domain/production"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/lock"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/infrastructure/scheduler"
	"github.com/erp/warehouse/internal/infrastructure/storage"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/erp/warehouse/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		logger.Sync(log)
	}()

	ctx := context.Background()

	// OTLP log export runs next to the regular output
	logLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		logLevel = zapcore.InfoLevel
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             logLevel,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log = logger.Attach(log, logProvider.Core())

	log.Info("Starting warehouse service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
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
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Initialize database connection with the zap backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:          logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold:  cfg.Telemetry.DBSlowQueryThresh,
		LogSQL:         cfg.App.Env != "production",
		IgnoreNotFound: true,
	})
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate SQLite database", zap.Error(err))
		}
	}
	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:   dbSystem,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Key locks serialize units of work that touch the same pair or order
	locker, closeLocker, err := lock.NewFactory(cfg.Lock, cfg.Redis, lock.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to initialize key locker", zap.Error(err))
	}

	// Initialize repositories
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	batchRepo := persistence.NewGormStockBatchRepository(db.DB)
	recordRepo := persistence.NewGormInventoryRecordRepository(db.DB)
	transactionRepo := persistence.NewGormStockTransactionRepository(db.DB)
	orderRepo := persistence.NewGormProductionOrderRepository(db.DB)

	// Initialize event bus; events are published after their unit commits
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLoggingHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	inventoryMetrics, err := telemetry.NewInventoryMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create inventory metrics", zap.Error(err))
	}

	engine := inventoryapp.NewEngine(
		persistence.NewGormTransactionScope(db.DB, locker),
		inventoryapp.WithLogger(log),
	)
	engine.SetEventPublisher(eventBus)
	engine.SetMetrics(inventoryMetrics)

	// Initialize application services
	inventoryService := inventoryapp.NewInventoryService(engine, batchRepo, recordRepo, transactionRepo, warehouseRepo, productRepo)
	inventoryService.SetWriteOffLimit(cfg.Scheduler.WriteOffPageSize)
	transferCoordinator := inventoryapp.NewTransferCoordinator(engine, warehouseRepo, productRepo)

	rawMaterial, finishedGoods := cfg.Warehouse.Roles()
	productionService := productionapp.NewService(engine, orderRepo, warehouseRepo, productRepo, production.WarehouseRoles{
		RawMaterial:   rawMaterial,
		FinishedGoods: finishedGoods,
	}, log)

	importService := importapp.NewReceiptImportService(engine, warehouseRepo, productRepo, transactionRepo, importapp.Config{
		MaxRows:       cfg.Import.MaxRows,
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxErrors:     cfg.Import.MaxErrors,
		DefaultPrefix: cfg.Import.DefaultPrefix,
	}, log)

	// Archive raw uploads when object storage is configured
	var archiveLinker handler.ArchiveLinker
	if cfg.Storage.Enabled {
		archiver, err := storage.NewS3Archiver(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize import archive", zap.Error(err))
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare import archive bucket", zap.Error(err))
		}
		importService.SetArchiver(archiver)
		archiveLinker = archiver
		log.Info("Import archive enabled", zap.String("bucket", archiver.Bucket()))
	}

	// Initialize the expiry sweep (if enabled)
	var sweepScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		schedulerConfig := scheduler.DefaultSchedulerConfig()
		schedulerConfig.JobTimeout = cfg.Scheduler.JobTimeout
		sweepScheduler = scheduler.NewScheduler(schedulerConfig, log)
		if err := sweepScheduler.Register(cfg.Scheduler.ExpirySweepCron,
			scheduler.NewExpirySweepJob(inventoryService, time.Now, log)); err != nil {
			log.Fatal("Failed to register expiry sweep", zap.Error(err))
		}
		if err := sweepScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Expiry sweep scheduled",
			zap.String("cron", cfg.Scheduler.ExpirySweepCron),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	httpEngine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})

	router.NewRouter(httpEngine).
		Register(handler.NewHealthHandler(db)).
		Register(handler.NewInventoryHandler(inventoryService)).
		Register(handler.NewTransferHandler(transferCoordinator)).
		Register(handler.NewProductionHandler(productionService)).
		Register(handler.NewImportHandler(importService, archiveLinker, cfg.Import.MaxFileSize)).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := closeLocker(); err != nil {
		log.Error("Error closing key locker", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log exporter", zap.Error(err))
	}
}
