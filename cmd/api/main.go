package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/database"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/metrics"
	"github.com/echodeck/echodeck/internal/middleware"
	"github.com/echodeck/echodeck/internal/queue"
	"github.com/echodeck/echodeck/internal/storage"
	"github.com/echodeck/echodeck/internal/tracing"
)

// API holds the HTTP surface's dependencies
type API struct {
	repo    *database.Repository
	storage *storage.Storage
	queue   *queue.Queue
	cache   *cache.Cache
	logger  *logging.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName+"-api", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.WithError(err).Warn("Tracing disabled, failed to initialize tracer")
		} else {
			defer closer.Close()
		}
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	statusCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer statusCache.Close()

	api := &API{
		repo:    repo,
		storage: stor,
		queue:   q,
		cache:   statusCache,
		logger:  logger,
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()

	router := setupRouter(api, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Metrics server shutdown failed")
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", api.healthCheck)

	limiter := middleware.NewRateLimiter(10, 20)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	v1.Use(middleware.RateLimit(limiter))
	{
		// Source audio
		v1.POST("/audio/upload", api.uploadAudio)

		// Presentations
		v1.POST("/presentations", api.createPresentation)
		v1.GET("/presentations", api.listPresentations)
		v1.GET("/presentations/:id", api.getPresentation)
		v1.PUT("/presentations/:id/slides/:slideId", api.updateSlide)

		// Exports
		v1.POST("/presentations/:id/export", api.createExport)
		v1.GET("/presentations/:id/exports", api.listExports)
		v1.GET("/exports/:id", api.getExportStatus)
		v1.GET("/exports/:id/download", api.downloadExport)
	}

	return router
}
