package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/handlers"
	"github.com/alrena-group/amqms-portal/internal/notifications"
	"github.com/alrena-group/amqms-portal/internal/repositories/postgres"
	"github.com/alrena-group/amqms-portal/internal/scheduler"
	"github.com/alrena-group/amqms-portal/internal/services"
	"github.com/alrena-group/amqms-portal/internal/utils"
	"github.com/alrena-group/amqms-portal/internal/validator"
	"github.com/alrena-group/amqms-portal/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured). Without it the catalog is uncached,
	// magic links are only expiry-bound and rate limiting is off.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:           db,
		RedisClient:  redisClient,
		CacheManager: cacheManager,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Event bus and notification worker
	bus, err := events.NewBus(cfg.Kafka, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	publisher := events.NewWatermillPublisher(bus.Publisher, slogLogger)

	renderer, err := notifications.NewRenderer(cfg.Email.WhatsAppNumber, location)
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}
	worker, err := notifications.NewWorker(
		bus,
		notifications.NewMailer(cfg.Email, slogLogger),
		renderer,
		cfg.Email,
		notifications.DefaultWorkerConfig(),
		slogLogger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize notification worker: %v", err)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("Notification worker stopped", "error", err)
		}
	}()
	<-worker.Running()
	logger.Info("Notification worker running", "transport", bus.Transport)

	// Authentication
	sessions := auth.NewSessionManager(cfg.Session)
	magicLinks := auth.NewMagicLinkIssuer(cfg.MagicLink, cacheManager.Token)

	var casdoorVerifier *auth.CasdoorVerifier
	if cfg.Casdoor.Enabled() {
		casdoorVerifier = auth.NewCasdoorVerifier(cfg.Casdoor)
		logger.Info("Hosted identity enabled", "endpoint", cfg.Casdoor.Endpoint)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceManagerConfig{
		Repo:          repoManager.GetRepository(),
		CacheManager:  cacheManager,
		Publisher:     publisher,
		MagicLinks:    magicLinks,
		PublicBaseURL: cfg.PublicBaseURL,
		Location:      location,
	}, slogLogger, validator.New())
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Scheduled housekeeping
	jobs, err := scheduler.New(serviceManager.Housekeeping(), location, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	jobs.Start()

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, handlers.HandlerManagerConfig{
		Sessions:           sessions,
		Casdoor:            casdoorVerifier,
		RateLimiter:        cacheManager.RateLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests first so no new events are published
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Let running jobs finish
	select {
	case <-jobs.Stop().Done():
	case <-ctx.Done():
		logger.Warn("Scheduled jobs still running at shutdown")
	}

	if err := worker.Close(); err != nil {
		logger.Error("Failed to stop notification worker", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	// Closes the database pool and Redis
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
