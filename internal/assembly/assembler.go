package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/media"
	"github.com/echodeck/echodeck/internal/progress"
	"github.com/echodeck/echodeck/pkg/models"
)

// Segment is one slide's paired inputs for video composition
type Segment struct {
	SlideID   string
	Position  int
	ImagePath string
	AudioPath string
}

// VideoToolkit is the slice of media operations assembly needs.
// *media.FFmpeg satisfies it.
type VideoToolkit interface {
	ComposeSlideVideo(ctx context.Context, imagePath, audioPath, outputPath string, profile models.EncodingProfile, progressCB media.ProgressCallback) (float64, error)
	Reencode(ctx context.Context, inputPath, outputPath string, profile models.EncodingProfile, progressCB media.ProgressCallback) error
	ConcatDemuxer(ctx context.Context, inputPaths []string, outputPath string, profile models.EncodingProfile, progressCB media.ProgressCallback) error
	RunFilterGraph(ctx context.Context, inputPaths []string, graph *media.Graph, outputPath string, profile models.EncodingProfile, totalDuration float64, progressCB media.ProgressCallback) error
}

// Assembler turns per-slide image/audio pairs into one final video
type Assembler struct {
	ffmpeg VideoToolkit
	cfg    config.PipelineConfig
	logger *logging.Logger
}

// NewAssembler creates an Assembler
func NewAssembler(ffmpeg VideoToolkit, cfg config.PipelineConfig, logger *logging.Logger) *Assembler {
	return &Assembler{
		ffmpeg: ffmpeg,
		cfg:    cfg,
		logger: logger,
	}
}

// NormalizeTransition maps requested transition types onto the ones the
// encoder implements. Anything outside that set renders as crossfade with a
// logged warning; an empty type means no transition.
func NormalizeTransition(spec models.TransitionSpec, logger *logging.Logger) models.TransitionSpec {
	if spec.Type == "" {
		spec.Type = models.TransitionNone
	}

	switch spec.Type {
	case models.TransitionNone, models.TransitionCrossfade, models.TransitionFadeBlack:
	default:
		logger.WithField("requested", spec.Type).
			Warn("Transition type not supported by encoder, using crossfade")
		spec.Type = models.TransitionCrossfade
	}

	if spec.Type != models.TransitionNone && spec.Duration <= 0 {
		spec.Duration = 1.0
	}

	return spec
}

// Assemble composes one video segment per slide pair, then joins the
// segments with the requested transition into outputPath. Returns the
// final video duration in seconds. Segment composition occupies the first
// 30% of the tracker's progress, concatenation runs to 95%, and cleanup of
// intermediates ends at 95 with the terminal mark left to the caller.
func (a *Assembler) Assemble(ctx context.Context, segments []Segment, transition models.TransitionSpec, profile models.EncodingProfile, tracker *progress.Tracker, workDir, outputPath string) (float64, error) {
	if len(segments) == 0 {
		return 0, fmt.Errorf("no segments to assemble")
	}

	transition = NormalizeTransition(transition, a.logger)

	profile = media.ValidateProfile(profile, a.logger)

	segmentPaths := make([]string, len(segments))
	durations := make([]float64, len(segments))

	n := float64(len(segments))
	for i, seg := range segments {
		segPath := filepath.Join(workDir, fmt.Sprintf("segment_%03d.%s", seg.Position, profile.Format))
		low := 30 * float64(i) / n
		high := 30 * float64(i+1) / n
		cb := tracker.Band(ctx, low, high, models.PhaseSlideVideos,
			fmt.Sprintf("Creating video for slide %d of %d", i+1, len(segments)))

		var dur float64
		composeErr := media.Retry(ctx, a.cfg.MaxAttempts, a.cfg.BaseDelay, segPath, func() error {
			var err error
			dur, err = a.ffmpeg.ComposeSlideVideo(ctx, seg.ImagePath, seg.AudioPath, segPath, profile, cb)
			return err
		})
		if composeErr != nil {
			return 0, fmt.Errorf("slide %s: %w", seg.SlideID, composeErr)
		}

		segmentPaths[i] = segPath
		durations[i] = dur
	}

	totalDuration, err := a.join(ctx, segmentPaths, durations, transition, profile, tracker, outputPath)
	if err != nil {
		return 0, err
	}

	tracker.Update(ctx, 95, models.PhaseCleaningUp, "Removing intermediate files")
	for _, p := range segmentPaths {
		os.Remove(p)
	}

	return totalDuration, nil
}

// join concatenates composed segments per the transition type
func (a *Assembler) join(ctx context.Context, segmentPaths []string, durations []float64, transition models.TransitionSpec, profile models.EncodingProfile, tracker *progress.Tracker, outputPath string) (float64, error) {
	total := 0.0
	for _, d := range durations {
		total += d
	}

	cb := tracker.Band(ctx, 30, 95, models.PhaseConcatenating, "Joining slide videos")

	// A single segment only needs the container/codec pass
	if len(segmentPaths) == 1 {
		err := media.Retry(ctx, a.cfg.MaxAttempts, a.cfg.BaseDelay, outputPath, func() error {
			return a.ffmpeg.Reencode(ctx, segmentPaths[0], outputPath, profile, cb)
		})
		if err != nil {
			return 0, err
		}
		return durations[0], nil
	}

	switch transition.Type {
	case models.TransitionCrossfade:
		graph, err := media.BuildCrossfadeGraph(durations, transition.Duration)
		if err != nil {
			// A transition longer than a segment cannot overlap; fall
			// back to a hard cut rather than failing the export.
			a.logger.WithError(err).Warn("Crossfade not applicable, joining with hard cuts")
			break
		}

		expected := media.CrossfadeDuration(durations, transition.Duration)
		runErr := media.Retry(ctx, a.cfg.MaxAttempts, a.cfg.BaseDelay, outputPath, func() error {
			return a.ffmpeg.RunFilterGraph(ctx, segmentPaths, graph, outputPath, profile, expected, cb)
		})
		if runErr != nil {
			return 0, runErr
		}
		return expected, nil

	case models.TransitionFadeBlack:
		// The fade filter chain for black gaps is not wired into the
		// encoder yet; degrade to a hard cut and say so.
		a.logger.Warn("Fade-to-black transition degraded to hard cuts")
	}

	err := media.Retry(ctx, a.cfg.MaxAttempts, a.cfg.BaseDelay, outputPath, func() error {
		return a.ffmpeg.ConcatDemuxer(ctx, segmentPaths, outputPath, profile, cb)
	})
	if err != nil {
		return 0, err
	}

	// Overlapping transitions shorten the total, insertion transitions
	// lengthen it by one gap per cut.
	if transition.Type != models.TransitionNone && !transition.Overlapping() {
		total += float64(len(segmentPaths)-1) * transition.Duration
	}

	return total, nil
}
