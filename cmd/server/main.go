package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	contributionapp "github.com/welfare/backend/internal/application/contribution"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/infrastructure/audit"
	"github.com/welfare/backend/internal/infrastructure/cache"
	"github.com/welfare/backend/internal/infrastructure/config"
	"github.com/welfare/backend/internal/infrastructure/logger"
	"github.com/welfare/backend/internal/infrastructure/persistence"
	"github.com/welfare/backend/internal/infrastructure/scheduler"
	"github.com/welfare/backend/internal/interfaces/http/handler"
	"github.com/welfare/backend/internal/interfaces/http/middleware"
	"github.com/welfare/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting welfare backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db)
	entryRepo := persistence.NewGormJournalEntryRepository(db)
	paymentRepo := persistence.NewGormPaymentRepository(db)
	allocationRepo := persistence.NewGormAllocationRepository(db)
	penaltyRepo := persistence.NewGormPenaltyRepository(db)
	memberDirectory := persistence.NewGormMemberDirectory(db)

	// Settings store, optionally fronted by Redis
	var settingsStore contribution.SettingsStore = persistence.NewGormSettingsStore(db)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		settingsStore = cache.NewCachedSettingsStore(settingsStore, redisClient, log)
		log.Info("Settings cache enabled", zap.String("redis", cfg.Redis.Host))
	}

	uow := persistence.NewUnitOfWork(db)
	auditSink := audit.NewZapSink(log)

	// Initialize application services
	journalService := ledgerapp.NewJournalService(entryRepo, accountRepo, uow, auditSink, log)
	chartService := ledgerapp.NewChartService(accountRepo, uow, auditSink, log)
	paymentService := contributionapp.NewPaymentService(
		paymentRepo, allocationRepo, penaltyRepo, memberDirectory, settingsStore,
		journalService, uow, auditSink, log,
	)
	penaltyService := contributionapp.NewPenaltyService(
		penaltyRepo, allocationRepo, memberDirectory, settingsStore,
		journalService, uow, auditSink, log,
	)

	// In-process daily assessment trigger (if enabled)
	if cfg.Scheduler.Enabled {
		trigger := scheduler.NewAssessmentTrigger(scheduler.TriggerConfig{
			RunHour:       cfg.Scheduler.RunHour,
			RunMinute:     cfg.Scheduler.RunMinute,
			CheckInterval: cfg.Scheduler.CheckInterval,
			Actor:         cfg.Assessment.Actor,
		}, penaltyService, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start assessment trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping assessment trigger", zap.Error(err))
			}
		}()
		log.Info("Assessment trigger started",
			zap.Int("run_hour", cfg.Scheduler.RunHour),
			zap.Int("run_minute", cfg.Scheduler.RunMinute),
		)
	}

	// Initialize HTTP handlers
	ledgerHandler := handler.NewLedgerHandler(chartService, journalService)
	contributionHandler := handler.NewContributionHandler(paymentService, penaltyService)
	settingsHandler := handler.NewSettingsHandler(settingsStore)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	router.Mount(engine, "v1", ledgerHandler, contributionHandler, settingsHandler)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
