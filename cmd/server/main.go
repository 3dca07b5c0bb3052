package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/clients"
	"github.com/niaga-platform/service-replacement/internal/config"
	"github.com/niaga-platform/service-replacement/internal/database"
	"github.com/niaga-platform/service-replacement/internal/events"
	"github.com/niaga-platform/service-replacement/internal/handlers"
	applogger "github.com/niaga-platform/service-replacement/internal/logger"
	"github.com/niaga-platform/service-replacement/internal/middleware"
	"github.com/niaga-platform/service-replacement/internal/monitoring"
	"github.com/niaga-platform/service-replacement/internal/refund"
	"github.com/niaga-platform/service-replacement/internal/repository"
	"github.com/niaga-platform/service-replacement/internal/routes"
	"github.com/niaga-platform/service-replacement/internal/services"
)

func main() {
	// Load .env file in development
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := applogger.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Sentry for error tracking
	sentryMonitor, err := monitoring.NewSentryMonitor(&monitoring.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		ServiceName:      "replacement-service",
		TracesSampleRate: 0.1,
	}, logger)
	if err != nil {
		logger.Warn("Failed to initialize Sentry", zap.Error(err))
	}
	defer sentryMonitor.Flush(2 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg.Database, cfg.App.Env, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis (optional - orders are fetched uncached without it)
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unavailable, order cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			logger.Info("Connected to Redis", zap.String("addr", addr))
			defer redisClient.Close()
		}
		cancel()
	}

	// Initialize clients
	orderClient := clients.NewOrderClient(cfg.Services.OrderURL, cfg.Services.Timeout, logger).
		WithPageSize(cfg.Services.OrderPageSize)
	refundClient := clients.NewRefundClient(cfg.Services.RefundURL, cfg.Services.Timeout, logger)

	var refundSink refund.Sink
	if refundClient.Configured() {
		refundSink = refundClient
	} else {
		logger.Warn("Refund system URL not set, replacement requests will not create refund requests")
	}
	bridge := refund.NewBridge(refundSink, cfg.Replacement.RefundStatus, logger)

	// Initialize repository and order lookup
	replacementRepo := repository.NewReplacementRepository(db)
	orderCache := services.NewOrderCacheService(redisClient, cfg.Redis.OrderCacheTTL, logger)
	orderLookup := services.NewOrderLookup(orderClient, orderCache)

	// Connect to NATS (optional - only if configured)
	var natsConn *nats.Conn
	var eventPublisher services.EventPublisher
	var eventSubscriber *events.Subscriber

	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Warn("Failed to connect to NATS, replacement events disabled", zap.Error(err))
		} else {
			logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
			defer natsConn.Close()
			eventPublisher = events.NewPublisher(natsConn, logger)

			eventSubscriber = events.NewSubscriber(natsConn, orderLookup, logger)
			if err := eventSubscriber.Start(); err != nil {
				logger.Warn("Failed to start event subscriber", zap.Error(err))
			}
			defer eventSubscriber.Stop()
		}
	}

	// Initialize services
	replacementService := services.NewReplacementService(
		orderLookup,
		replacementRepo,
		bridge,
		eventPublisher,
		&services.ReplacementServiceConfig{
			Window: cfg.Replacement.Window(),
		},
		logger,
	)
	adminService := services.NewAdminService(replacementRepo, logger)

	// Initialize handlers
	replacementHandler := handlers.NewReplacementHandler(replacementService, orderLookup, adminService, cfg.Replacement.OrdersURL, logger)
	adminHandler := handlers.NewAdminHandler(adminService, logger)

	// Set Gin mode
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// Apply global middleware
	router.Use(sentryMonitor.GinMiddleware())
	router.Use(sentryMonitor.RecoveryMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))

	// Rate limiting on submissions
	submitLimiter := middleware.NewRateLimiter(cfg.Replacement.SubmitRPS, cfg.Replacement.SubmitBurst)
	stopCleanup := make(chan struct{})
	submitLimiter.StartCleanup(5*time.Minute, stopCleanup)
	defer close(stopCleanup)

	routes.SetupRoutes(router, &routes.RouteConfig{
		ReplacementHandler: replacementHandler,
		AdminHandler:       adminHandler,
		JWTManager:         middleware.NewJWTManager(cfg.JWT.Secret, 15*time.Minute),
		SubmitLimiter:      submitLimiter,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Replacement service starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
