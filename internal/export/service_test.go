package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodeck/echodeck/internal/narration"
	"github.com/echodeck/echodeck/internal/rasterizer"
	"github.com/echodeck/echodeck/pkg/models"
)

func TestResolveOptionsDefaults(t *testing.T) {
	job := &models.ExportJob{ID: "j1", Format: models.FormatMP4}

	opts := ResolveOptions(job)

	assert.Equal(t, models.QualityMedium, opts.Quality)
	assert.Equal(t, "alloy", opts.Voice)
	assert.Equal(t, models.TTSModelStandard, opts.TTSModel)
	assert.Equal(t, models.FormatMP4, opts.Format)
	assert.Equal(t, models.TransitionCrossfade, opts.Transition.Type)
	assert.InDelta(t, 1.0, opts.Transition.Duration, 0.001)
}

func TestResolveOptionsKeepsExplicitValues(t *testing.T) {
	job := &models.ExportJob{
		ID:     "j1",
		Format: models.FormatAVI,
		Options: models.ExportOptions{
			Quality:    models.QualityHigh,
			Voice:      "nova",
			TTSModel:   models.TTSModelHD,
			Format:     models.FormatMOV, // job format wins
			Transition: models.TransitionSpec{Type: models.TransitionNone},
		},
	}

	opts := ResolveOptions(job)

	assert.Equal(t, models.QualityHigh, opts.Quality)
	assert.Equal(t, "nova", opts.Voice)
	assert.Equal(t, models.TTSModelHD, opts.TTSModel)
	assert.Equal(t, models.FormatAVI, opts.Format)
	assert.Equal(t, models.TransitionNone, opts.Transition.Type)
}

func TestPairSegmentsJoinsOnSlideID(t *testing.T) {
	images := []rasterizer.Image{
		{SlideID: "a", Position: 0, Path: "/w/slide_000.png"},
		{SlideID: "b", Position: 1, Path: "/w/slide_001.png"},
		{SlideID: "c", Position: 2, Path: "/w/slide_002.png"},
	}
	clips := []narration.Clip{
		{SlideID: "c", Position: 2, Path: "/w/narration_002.mp3", Duration: 5},
		{SlideID: "a", Position: 0, Path: "/w/narration_000.mp3", Duration: 8},
	}

	segments := PairSegments(images, clips)

	// Slide b has no narration; the other two pair up in position order
	require.Len(t, segments, 2)
	assert.Equal(t, "a", segments[0].SlideID)
	assert.Equal(t, "/w/slide_000.png", segments[0].ImagePath)
	assert.Equal(t, "/w/narration_000.mp3", segments[0].AudioPath)
	assert.Equal(t, "c", segments[1].SlideID)
}

func TestPairSegmentsEmptyWhenNoOverlap(t *testing.T) {
	images := []rasterizer.Image{{SlideID: "a", Position: 0, Path: "/w/a.png"}}
	clips := []narration.Clip{{SlideID: "b", Position: 1, Path: "/w/b.mp3"}}

	assert.Empty(t, PairSegments(images, clips))
}

func TestPairSegmentsOrderedByPosition(t *testing.T) {
	images := []rasterizer.Image{
		{SlideID: "later", Position: 5, Path: "/w/slide_005.png"},
		{SlideID: "first", Position: 1, Path: "/w/slide_001.png"},
	}
	clips := []narration.Clip{
		{SlideID: "first", Position: 1, Path: "/w/n1.mp3"},
		{SlideID: "later", Position: 5, Path: "/w/n5.mp3"},
	}

	segments := PairSegments(images, clips)

	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].Position)
	assert.Equal(t, 5, segments[1].Position)
}
