package assembly

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/media"
	"github.com/echodeck/echodeck/internal/progress"
	"github.com/echodeck/echodeck/pkg/models"
)

// fakeToolkit records encoder calls and hands back canned durations
type fakeToolkit struct {
	durations     []float64
	composeCalls  int
	concatCalls   int
	graphCalls    int
	reencodeCalls int
	lastGraph     *media.Graph
	lastGraphDur  float64
}

func (f *fakeToolkit) ComposeSlideVideo(ctx context.Context, imagePath, audioPath, outputPath string, profile models.EncodingProfile, cb media.ProgressCallback) (float64, error) {
	d := f.durations[f.composeCalls]
	f.composeCalls++
	if cb != nil {
		cb(100)
	}
	return d, nil
}

func (f *fakeToolkit) Reencode(ctx context.Context, inputPath, outputPath string, profile models.EncodingProfile, cb media.ProgressCallback) error {
	f.reencodeCalls++
	if cb != nil {
		cb(100)
	}
	return nil
}

func (f *fakeToolkit) ConcatDemuxer(ctx context.Context, inputPaths []string, outputPath string, profile models.EncodingProfile, cb media.ProgressCallback) error {
	f.concatCalls++
	if cb != nil {
		cb(100)
	}
	return nil
}

func (f *fakeToolkit) RunFilterGraph(ctx context.Context, inputPaths []string, graph *media.Graph, outputPath string, profile models.EncodingProfile, totalDuration float64, cb media.ProgressCallback) error {
	f.graphCalls++
	f.lastGraph = graph
	f.lastGraphDur = totalDuration
	if cb != nil {
		cb(100)
	}
	return nil
}

type nopStore struct{}

func (nopStore) UpdateExportProgress(ctx context.Context, id string, progress float64, phase, message string) error {
	return nil
}

type nopCache struct{}

func (nopCache) SetJobStatus(ctx context.Context, jobID string, status *cache.JobStatus, ttl time.Duration) error {
	return nil
}

func newTestAssembler(t *testing.T, toolkit VideoToolkit) (*Assembler, *progress.Tracker) {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	cfg := config.PipelineConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}
	tracker := progress.NewTracker("job-1", nopStore{}, nopCache{}, logger)
	return NewAssembler(toolkit, cfg, logger), tracker
}

func makeSegments(n int) []Segment {
	segments := make([]Segment, n)
	for i := range segments {
		segments[i] = Segment{
			SlideID:   fmt.Sprintf("slide-%d", i),
			Position:  i,
			ImagePath: fmt.Sprintf("/scratch/slide_%03d.png", i),
			AudioPath: fmt.Sprintf("/scratch/narration_%03d.mp3", i),
		}
	}
	return segments
}

func TestAssembleCrossfadeShortensTotal(t *testing.T) {
	toolkit := &fakeToolkit{durations: []float64{8, 6, 7}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionCrossfade, Duration: 1.0}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(3), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	// 21s of content minus two 1s overlaps
	assert.InDelta(t, 19.0, total, 0.001)
	assert.Equal(t, 3, toolkit.composeCalls)
	assert.Equal(t, 1, toolkit.graphCalls)
	assert.Equal(t, 0, toolkit.concatCalls)
	assert.InDelta(t, 19.0, toolkit.lastGraphDur, 0.001)
}

func TestAssembleNoneUsesPlainConcat(t *testing.T) {
	toolkit := &fakeToolkit{durations: []float64{8, 6, 7}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionNone}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(3), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	assert.InDelta(t, 21.0, total, 0.001)
	assert.Equal(t, 1, toolkit.concatCalls)
	assert.Equal(t, 0, toolkit.graphCalls)
}

func TestAssembleSingleSegmentReencodes(t *testing.T) {
	toolkit := &fakeToolkit{durations: []float64{10}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionCrossfade, Duration: 1.0}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(1), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	assert.InDelta(t, 10.0, total, 0.001)
	assert.Equal(t, 1, toolkit.reencodeCalls)
	assert.Equal(t, 0, toolkit.concatCalls)
	assert.Equal(t, 0, toolkit.graphCalls)
}

func TestAssembleCrossfadeFallsBackWhenTransitionTooLong(t *testing.T) {
	// The 2s middle segment cannot overlap a 3s transition on both sides
	toolkit := &fakeToolkit{durations: []float64{8, 2, 7}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionCrossfade, Duration: 3.0}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(3), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	assert.InDelta(t, 17.0, total, 0.001)
	assert.Equal(t, 1, toolkit.concatCalls)
	assert.Equal(t, 0, toolkit.graphCalls)
}

func TestAssembleFadeToBlackDegradesToConcat(t *testing.T) {
	toolkit := &fakeToolkit{durations: []float64{5, 5}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionFadeBlack, Duration: 1.0}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(2), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	// Insertion transitions lengthen: 10s of content plus one 1s gap
	assert.InDelta(t, 11.0, total, 0.001)
	assert.Equal(t, 1, toolkit.concatCalls)
}

func TestAssembleFadeToBlackAddsGapPerCut(t *testing.T) {
	toolkit := &fakeToolkit{durations: []float64{8, 6, 7}}
	assembler, tracker := newTestAssembler(t, toolkit)

	transition := models.TransitionSpec{Type: models.TransitionFadeBlack, Duration: 2.0}
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatMP4)

	total, err := assembler.Assemble(context.Background(), makeSegments(3), transition, profile, tracker, t.TempDir(), "/scratch/final.mp4")
	require.NoError(t, err)

	// 21s of content plus two 2s gaps
	assert.InDelta(t, 25.0, total, 0.001)
}

func TestAssembleRejectsEmptySegments(t *testing.T) {
	assembler, tracker := newTestAssembler(t, &fakeToolkit{})

	_, err := assembler.Assemble(context.Background(), nil, models.TransitionSpec{}, models.EncodingProfile{}, tracker, t.TempDir(), "/scratch/final.mp4")
	assert.Error(t, err)
}

func TestNormalizeTransition(t *testing.T) {
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       models.TransitionSpec
		wantType string
	}{
		{"empty means none", models.TransitionSpec{}, models.TransitionNone},
		{"crossfade passes", models.TransitionSpec{Type: models.TransitionCrossfade, Duration: 0.5}, models.TransitionCrossfade},
		{"wipe coerced", models.TransitionSpec{Type: models.TransitionWipe, Duration: 1}, models.TransitionCrossfade},
		{"slide coerced", models.TransitionSpec{Type: models.TransitionSlide, Duration: 1}, models.TransitionCrossfade},
		{"fade-to-black passes", models.TransitionSpec{Type: models.TransitionFadeBlack, Duration: 1}, models.TransitionFadeBlack},
		{"unknown coerced", models.TransitionSpec{Type: "dissolve"}, models.TransitionCrossfade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTransition(tt.in, logger)
			assert.Equal(t, tt.wantType, got.Type)
		})
	}
}

func TestNormalizeTransitionDefaultsDuration(t *testing.T) {
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	got := NormalizeTransition(models.TransitionSpec{Type: models.TransitionCrossfade}, logger)
	assert.InDelta(t, 1.0, got.Duration, 0.001)
}
