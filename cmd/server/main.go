package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/application/integration"
	tradeapp "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/erp"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/pricebook"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
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

	log.Info("Starting Storefront Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("path", cfg.Database.Path))

	// ERP request gateway with its protective state
	gateway, err := erp.NewGateway(&erp.Config{
		BaseURL:             cfg.ERP.BaseURL,
		ZoneURLTemplate:     cfg.ERP.ZoneURLTemplate,
		CompanyCode:         cfg.ERP.CompanyCode,
		UserID:              cfg.ERP.UserID,
		APIKey:              cfg.ERP.APIKey,
		TimeoutSeconds:      cfg.ERP.TimeoutSeconds,
		BreakerThreshold:    cfg.ERP.BreakerThreshold,
		BreakerTimeout:      cfg.ERP.BreakerTimeout,
		BackoffBase:         cfg.ERP.BackoffBase,
		BackoffMax:          cfg.ERP.BackoffMax,
		LockoutMaxErrors:    cfg.ERP.LockoutMaxErrors,
		LockoutWindow:       cfg.ERP.LockoutWindow,
		LockoutDuration:     cfg.ERP.LockoutDuration,
		LoginMinInterval:    cfg.ERP.LoginMinInterval,
		LoginRateLimitDelay: cfg.ERP.LoginRateLimitDelay,
		SessionLifetime:     cfg.ERP.SessionLifetime,
		SessionSafetyMargin: cfg.ERP.SessionSafetyMargin,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize ERP gateway", zap.Error(err))
	}

	// Price book mapping over the merchandising spreadsheet
	priceBook := pricebook.NewExcelSource(cfg.PriceBook.Path, cfg.PriceBook.Sheet, log)
	resolver := integration.NewMappingResolver(priceBook, log)

	// Repositories and application services
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	snapshots := cache.NewSnapshotCache[[]store.CatalogProduct](cfg.Catalog.CacheTTL, log)
	catalogService := catalogapp.NewCatalogService(gateway, snapshots, resolver, log)
	submissionService := integration.NewOrderSubmissionService(gateway, resolver, orderRepo, log)
	orderService := tradeapp.NewOrderService(orderRepo, submissionService, log)

	// Background reconciliation
	reconciler, err := scheduler.NewReconcileScheduler(scheduler.ReconcileSchedulerConfig{
		Enabled:         cfg.Reconcile.Enabled,
		Interval:        cfg.Reconcile.Interval,
		InterOrderDelay: cfg.Reconcile.InterOrderDelay,
	}, catalogService, orderRepo, submissionService, log)
	if err != nil {
		log.Fatal("Failed to initialize reconciliation scheduler", zap.Error(err))
	}
	if cfg.Reconcile.Enabled {
		if err := reconciler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	if len(cfg.HTTP.CORSOrigins) > 0 {
		engine.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	}
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter := middleware.NewClientLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		defer limiter.Close()
		engine.Use(middleware.RateLimit(limiter))
	}

	engine.GET("/health", healthHandler(db, gateway))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler()).
		Register(handler.NewCatalogHandler(catalogService)).
		Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewAdminHandler(gateway, resolver, catalogService, reconciler))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := reconciler.Stop(ctx); err != nil {
		log.Error("Reconciliation scheduler shutdown error", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports process health: database reachability plus the
// integration's protective state
func healthHandler(db *persistence.Database, gateway *erp.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gateway.Status()
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
			"breaker":  status.Breaker.State,
			"locked":   status.Lockout.Locked,
		})
	}
}
