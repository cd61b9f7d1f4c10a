package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlideNarrationText(t *testing.T) {
	tests := []struct {
		name  string
		slide Slide
		want  string
	}{
		{
			name:  "speaker notes take precedence",
			slide: Slide{Title: "Intro", Bullets: StringList{"a", "b"}, SpeakerNotes: "Welcome everyone."},
			want:  "Welcome everyone.",
		},
		{
			name:  "title plus bullets fallback",
			slide: Slide{Title: "Roadmap", Bullets: StringList{"Q1 launch", "Q2 scale"}},
			want:  "Roadmap. Q1 launch. Q2 scale",
		},
		{
			name:  "blank bullets skipped",
			slide: Slide{Title: "Summary", Bullets: StringList{"", "  ", "done"}},
			want:  "Summary. done",
		},
		{
			name:  "whitespace-only notes ignored",
			slide: Slide{Title: "End", SpeakerNotes: "   "},
			want:  "End",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slide.NarrationText())
		})
	}
}

func TestSlideIsTitleSlide(t *testing.T) {
	assert.True(t, (&Slide{Position: 0, Bullets: StringList{"x"}}).IsTitleSlide())
	assert.True(t, (&Slide{Position: 3}).IsTitleSlide())
	assert.False(t, (&Slide{Position: 1, Bullets: StringList{"x"}}).IsTitleSlide())
}

func TestProfileForQuality(t *testing.T) {
	high := ProfileForQuality(QualityHigh, FormatMP4)
	assert.Equal(t, 18, high.CRF)
	assert.Equal(t, "slow", high.Preset)
	assert.Equal(t, 1920, high.Width)
	assert.Empty(t, high.VideoBitrate, "CRF profiles must not carry a bitrate")

	medium := ProfileForQuality(QualityMedium, FormatMOV)
	assert.Equal(t, 23, medium.CRF)
	assert.Equal(t, FormatMOV, medium.Format)

	low := ProfileForQuality(QualityLow, FormatAVI)
	assert.Equal(t, 28, low.CRF)
	assert.Equal(t, 480, low.Height)

	// Unknown quality falls back to medium with the default container.
	def := ProfileForQuality("ultra", "")
	assert.Equal(t, 23, def.CRF)
	assert.Equal(t, FormatMP4, def.Format)
}

func TestTransitionOverlapping(t *testing.T) {
	assert.True(t, TransitionSpec{Type: TransitionCrossfade}.Overlapping())
	assert.False(t, TransitionSpec{Type: TransitionNone}.Overlapping())
	assert.False(t, TransitionSpec{Type: TransitionFadeBlack}.Overlapping())
}

func TestExportJobTerminal(t *testing.T) {
	assert.True(t, (&ExportJob{Phase: PhaseCompleted}).Terminal())
	assert.True(t, (&ExportJob{Phase: PhaseError}).Terminal())
	assert.False(t, (&ExportJob{Phase: PhaseTTS}).Terminal())
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidExportFormat("mp4"))
	assert.False(t, ValidExportFormat("webm"))
	assert.True(t, ValidVoice("nova"))
	assert.False(t, ValidVoice("hal9000"))
	assert.True(t, ValidQuality("low"))
	assert.False(t, ValidQuality("potato"))
	assert.True(t, ValidStyle("academic"))
	assert.False(t, ValidStyle("brutalist"))
}
