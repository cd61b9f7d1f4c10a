package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/echodeck/echodeck/internal/assembly"
	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/database"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/metrics"
	"github.com/echodeck/echodeck/internal/narration"
	"github.com/echodeck/echodeck/internal/progress"
	"github.com/echodeck/echodeck/internal/rasterizer"
	"github.com/echodeck/echodeck/internal/tracing"
	"github.com/echodeck/echodeck/internal/webhook"
	"github.com/echodeck/echodeck/pkg/models"
)

var (
	// ErrNoNarration means no slide produced usable narration audio
	ErrNoNarration = errors.New("no narration audio produced")

	// ErrNoPairs means no slide ended up with both an image and audio
	ErrNoPairs = errors.New("no slide has both image and narration")

	// ErrNoSlides means the presentation has nothing to export
	ErrNoSlides = errors.New("presentation has no slides")
)

// Narrator produces per-slide narration clips. *narration.Synthesizer
// satisfies it.
type Narrator interface {
	SynthesizeAll(ctx context.Context, slides []*models.Slide, voice, model, outputDir string) ([]narration.Clip, error)
}

// Renderer produces per-slide images. *rasterizer.Engine satisfies it.
type Renderer interface {
	RasterizeAll(ctx context.Context, slides []*models.Slide, style, outputDir string) ([]rasterizer.Image, error)
}

// Assembler joins slide pairs into the final video. *assembly.Assembler
// satisfies it.
type Assembler interface {
	Assemble(ctx context.Context, segments []assembly.Segment, transition models.TransitionSpec, profile models.EncodingProfile, tracker *progress.Tracker, workDir, outputPath string) (float64, error)
}

// Uploader stores the finished artifact. *storage.Storage satisfies it.
type Uploader interface {
	UploadFile(ctx context.Context, objectName, filePath string) error
}

// Service runs the export pipeline for one job at a time
type Service struct {
	repo      *database.Repository
	cache     *cache.Cache
	uploader  Uploader
	narrator  Narrator
	renderer  Renderer
	assembler Assembler
	webhooks  *webhook.Service
	cfg       config.PipelineConfig
	logger    *logging.Logger
}

// NewService creates an export Service
func NewService(repo *database.Repository, statusCache *cache.Cache, uploader Uploader, narrator Narrator, renderer Renderer, assembler Assembler, webhooks *webhook.Service, cfg config.PipelineConfig, logger *logging.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     statusCache,
		uploader:  uploader,
		narrator:  narrator,
		renderer:  renderer,
		assembler: assembler,
		webhooks:  webhooks,
		cfg:       cfg,
		logger:    logger,
	}
}

// ResolveOptions fills in defaults for unset export options. Format on the
// job wins over format in options.
func ResolveOptions(job *models.ExportJob) models.ExportOptions {
	opts := job.Options

	if opts.Quality == "" {
		opts.Quality = models.QualityMedium
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	if opts.TTSModel == "" {
		opts.TTSModel = models.TTSModelStandard
	}
	if job.Format != "" {
		opts.Format = job.Format
	}
	if opts.Format == "" {
		opts.Format = models.FormatMP4
	}
	if opts.Transition.Type == "" {
		opts.Transition = models.TransitionSpec{Type: models.TransitionCrossfade, Duration: 1.0}
	}

	return opts
}

// PairSegments joins images and clips on slide ID, ordered by position.
// Slides missing either half are dropped; the pipeline works with what it
// has.
func PairSegments(images []rasterizer.Image, clips []narration.Clip) []assembly.Segment {
	audioBySlide := make(map[string]narration.Clip, len(clips))
	for _, clip := range clips {
		audioBySlide[clip.SlideID] = clip
	}

	segments := make([]assembly.Segment, 0, len(images))
	for _, img := range images {
		clip, ok := audioBySlide[img.SlideID]
		if !ok {
			continue
		}
		segments = append(segments, assembly.Segment{
			SlideID:   img.SlideID,
			Position:  img.Position,
			ImagePath: img.Path,
			AudioPath: clip.Path,
		})
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Position < segments[j].Position
	})

	return segments
}

// ProcessJob runs the full export pipeline for one queued job. A non-nil
// return means the job could not even be loaded and should be redelivered;
// pipeline failures mark the job failed and return nil.
func (s *Service) ProcessJob(ctx context.Context, queued *models.ExportJob) error {
	job, err := s.repo.GetExportJob(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("failed to load export job %s: %w", queued.ID, err)
	}

	if job.Terminal() {
		s.logger.WithJobID(job.ID).Info("Job already in terminal state, skipping redelivery")
		return nil
	}

	span, ctx := tracing.StartSpan(ctx, "export.process")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "export.job_id", job.ID)
	tracing.SetTag(span, "export.presentation_id", job.PresentationID)

	opts := ResolveOptions(job)
	started := time.Now()
	metrics.RecordExportStarted(opts.Format)

	tracker := progress.NewTracker(job.ID, s.repo, s.cache, s.logger)

	status := "completed"
	defer func() {
		metrics.RecordExportCompleted(status, opts.Format, opts.Quality, time.Since(started).Seconds())
	}()

	now := time.Now()
	job.StartedAt = &now
	job.Phase = models.PhaseInitializing
	if err := s.repo.UpdateExportJob(ctx, job); err != nil {
		s.logger.WithJobID(job.ID).WithError(err).Warn("Failed to mark job started")
	}
	tracker.Update(ctx, 0, models.PhaseInitializing, "Preparing export")

	if err := s.run(ctx, job, opts, tracker); err != nil {
		status = "error"
		s.failJob(ctx, job, tracker, err)
		tracing.LogError(span, err)
		return nil
	}

	return nil
}

// run executes the pipeline phases. Any error it returns is terminal for
// the job.
func (s *Service) run(ctx context.Context, job *models.ExportJob, opts models.ExportOptions, tracker *progress.Tracker) error {
	presentation, err := s.repo.GetPresentation(ctx, job.PresentationID)
	if err != nil {
		return fmt.Errorf("failed to load presentation: %w", err)
	}
	if len(presentation.Slides) == 0 {
		return ErrNoSlides
	}
	slides := presentation.Slides

	workDir := filepath.Join(s.cfg.ScratchDir, job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Narration
	phaseStart := time.Now()
	tracker.Phase(ctx, models.PhaseTTS, fmt.Sprintf("Synthesizing narration for %d slides", len(slides)))
	ttsSpan, ttsCtx := tracing.StartPhaseSpan(ctx, models.PhaseTTS, job.ID)
	clips, err := s.narrator.SynthesizeAll(ttsCtx, slides, opts.Voice, opts.TTSModel, workDir)
	tracing.FinishSpan(ttsSpan)
	if err != nil {
		if errors.Is(err, narration.ErrAllSlidesFailed) {
			return ErrNoNarration
		}
		return fmt.Errorf("narration failed: %w", err)
	}
	if len(clips) == 0 {
		return ErrNoNarration
	}
	for i := 0; i < len(slides)-len(clips); i++ {
		metrics.RecordSlideFailure("tts")
	}
	metrics.RecordPhaseDuration(models.PhaseTTS, time.Since(phaseStart).Seconds())

	// Slide images
	phaseStart = time.Now()
	tracker.Phase(ctx, models.PhaseRendering, fmt.Sprintf("Rendering %d slides", len(slides)))
	renderSpan, renderCtx := tracing.StartPhaseSpan(ctx, models.PhaseRendering, job.ID)
	images, err := s.renderer.RasterizeAll(renderCtx, slides, presentation.Style, workDir)
	tracing.FinishSpan(renderSpan)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	for i := 0; i < len(slides)-len(images); i++ {
		metrics.RecordSlideFailure("render")
	}
	metrics.RecordPhaseDuration(models.PhaseRendering, time.Since(phaseStart).Seconds())

	segments := PairSegments(images, clips)
	if len(segments) == 0 {
		return ErrNoPairs
	}

	// Video assembly
	phaseStart = time.Now()
	profile := models.ProfileForQuality(opts.Quality, opts.Format)
	finalPath := filepath.Join(workDir, "final."+opts.Format)
	assembleSpan, assembleCtx := tracing.StartPhaseSpan(ctx, models.PhaseConcatenating, job.ID)
	duration, err := s.assembler.Assemble(assembleCtx, segments, opts.Transition, profile, tracker, workDir, finalPath)
	tracing.FinishSpan(assembleSpan)
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}
	metrics.RecordPhaseDuration(models.PhaseConcatenating, time.Since(phaseStart).Seconds())

	// Upload and finalize
	info, err := os.Stat(finalPath)
	if err != nil {
		return fmt.Errorf("final video missing: %w", err)
	}

	objectName := fmt.Sprintf("exports/%s.%s", job.ID, opts.Format)
	uploadStart := time.Now()
	if err := s.uploader.UploadFile(ctx, objectName, finalPath); err != nil {
		metrics.RecordStorageOperation("upload", "error", time.Since(uploadStart).Seconds())
		return fmt.Errorf("upload failed: %w", err)
	}
	metrics.RecordStorageOperation("upload", "success", time.Since(uploadStart).Seconds())
	metrics.OutputVideoSizeBytes.Observe(float64(info.Size()))
	s.logger.LogStorageOperation("upload", "exports", objectName, info.Size(), time.Since(uploadStart), nil)

	s.logger.LogJobEvent(job.ID, "export_finished", models.PhaseCompleted, map[string]interface{}{
		"duration_secs": duration,
		"size_bytes":    info.Size(),
		"segments":      len(segments),
		"object":        objectName,
	})

	completedAt := time.Now()
	job.IsReady = true
	job.Progress = 100
	job.Phase = models.PhaseCompleted
	job.Message = "Export complete"
	job.FilePath = objectName
	job.FileSize = info.Size()
	job.CompletedAt = &completedAt
	if err := s.repo.UpdateExportJob(ctx, job); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	s.cacheStatus(ctx, job)
	s.webhooks.NotifyExportCompleted(ctx, job)

	return nil
}

// failJob marks a job failed. The progress number is left where it was so
// pollers see how far the export got; the message carries the failing
// phase.
func (s *Service) failJob(ctx context.Context, job *models.ExportJob, tracker *progress.Tracker, cause error) {
	s.logger.WithJobID(job.ID).WithError(cause).Error("Export failed")
	metrics.RecordError("export", "pipeline_failure")

	failedPhase := tracker.LastPhase()
	if failedPhase == "" {
		failedPhase = models.PhaseInitializing
	}
	completedAt := time.Now()
	job.Phase = models.PhaseError
	job.Progress = tracker.Progress()
	job.Message = fmt.Sprintf("%s: %v", failedPhase, cause)
	job.ErrorMsg = cause.Error()
	job.CompletedAt = &completedAt
	if err := s.repo.UpdateExportJob(ctx, job); err != nil {
		s.logger.WithJobID(job.ID).WithError(err).Error("Failed to persist job failure")
	}

	s.cacheStatus(ctx, job)
	s.webhooks.NotifyExportFailed(ctx, job)
}

func (s *Service) cacheStatus(ctx context.Context, job *models.ExportJob) {
	status := &cache.JobStatus{
		Progress: job.Progress,
		Phase:    job.Phase,
		Message:  job.Message,
		Error:    job.ErrorMsg,
		IsReady:  job.IsReady,
	}
	if err := s.cache.SetJobStatus(ctx, job.ID, status, 24*time.Hour); err != nil {
		s.logger.WithJobID(job.ID).WithError(err).Warn("Failed to cache job status")
	}
}
