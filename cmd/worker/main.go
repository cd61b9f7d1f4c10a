package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echodeck/echodeck/internal/assembly"
	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/cleanup"
	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/database"
	"github.com/echodeck/echodeck/internal/export"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/media"
	"github.com/echodeck/echodeck/internal/metrics"
	"github.com/echodeck/echodeck/internal/narration"
	"github.com/echodeck/echodeck/internal/queue"
	"github.com/echodeck/echodeck/internal/rasterizer"
	"github.com/echodeck/echodeck/internal/scheduler"
	"github.com/echodeck/echodeck/internal/storage"
	"github.com/echodeck/echodeck/internal/tracing"
	"github.com/echodeck/echodeck/internal/webhook"
	"github.com/echodeck/echodeck/pkg/models"
)

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

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName+"-worker", cfg.Tracing.JaegerEndpoint)
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

	if err := os.MkdirAll(cfg.Pipeline.ScratchDir, 0755); err != nil {
		logger.Fatalf("Failed to create scratch directory: %v", err)
	}

	ffmpeg := media.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath)
	speechClient := narration.NewOpenAIClient(cfg.Narration)
	synthesizer := narration.NewSynthesizer(speechClient, ffmpeg, cfg.Narration, logger)
	renderer := rasterizer.NewEngine(cfg.Rasterizer, logger)
	assembler := assembly.NewAssembler(ffmpeg, cfg.Pipeline, logger)
	webhooks := webhook.NewService(cfg.Webhook, logger)

	service := export.NewService(repo, statusCache, stor, synthesizer, renderer, assembler, webhooks, cfg.Pipeline, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully")
		cancel()
	}()

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Warn("Metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sweeper := cleanup.NewSweeper(cfg.Pipeline.ScratchDir, cfg.Cleanup, logger)
	go sweeper.Run(ctx)

	reconciler := scheduler.NewReconciler(repo, q, 5*time.Minute, 15*time.Minute, logger)
	go reconciler.Run(ctx)

	go reportQueueDepth(ctx, q)

	jobHandler := func(job *models.ExportJob) error {
		logger.WithJobID(job.ID).WithPresentationID(job.PresentationID).Info("Processing export job")

		if err := service.ProcessJob(ctx, job); err != nil {
			logger.WithJobID(job.ID).WithError(err).Error("Failed to process export job")
			return err
		}

		logger.WithJobID(job.ID).Info("Finished export job")
		return nil
	}

	logger.Info("Worker started, waiting for export jobs")
	if err := q.ConsumeExportJobs(ctx, jobHandler); err != nil {
		logger.Fatalf("Failed to consume export jobs: %v", err)
	}

	<-ctx.Done()
	logger.Info("Worker stopped")
}

// reportQueueDepth keeps the queue depth gauge current
func reportQueueDepth(ctx context.Context, q *queue.Queue) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := q.GetQueueDepth(); err == nil {
				metrics.UpdateQueueDepth(depth)
			}
		}
	}
}
