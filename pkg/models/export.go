package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ExportJob represents one export request's unit of background work
type ExportJob struct {
	ID             string        `json:"id" db:"id"`
	PresentationID string        `json:"presentation_id" db:"presentation_id"`
	Format         string        `json:"format" db:"format"`
	IsReady        bool          `json:"is_ready" db:"is_ready"`
	Progress       float64       `json:"progress" db:"progress"`
	Phase          string        `json:"phase" db:"phase"`
	Message        string        `json:"message,omitempty" db:"message"`
	ErrorMsg       string        `json:"error,omitempty" db:"error_msg"`
	FilePath       string        `json:"file_path,omitempty" db:"file_path"`
	FileSize       int64         `json:"file_size,omitempty" db:"file_size"`
	RetryCount     int           `json:"retry_count" db:"retry_count"`
	Options        ExportOptions `json:"options" db:"options"`
	StartedAt      *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the job has reached a state that must not mutate
func (j *ExportJob) Terminal() bool {
	return j.Phase == PhaseCompleted || j.Phase == PhaseError
}

// ExportOptions holds the caller-supplied export settings
type ExportOptions struct {
	Quality    string         `json:"quality"`
	Voice      string         `json:"voice"`
	TTSModel   string         `json:"tts_model"`
	Transition TransitionSpec `json:"transition"`
	Format     string         `json:"format"`
}

// Value implements driver.Valuer for database storage
func (o ExportOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner for database retrieval
func (o *ExportOptions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// TransitionSpec describes how consecutive slide videos are joined
type TransitionSpec struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// Transition type constants. Slide and wipe are accepted at the request
// schema level but coerced to crossfade during assembly.
const (
	TransitionNone      = "none"
	TransitionCrossfade = "crossfade"
	TransitionFadeBlack = "fade-to-black"
	TransitionSlide     = "slide"
	TransitionWipe      = "wipe"
)

// Overlapping reports whether the transition overlaps adjacent segments
// (shortening total runtime) rather than inserting time between them.
func (t TransitionSpec) Overlapping() bool {
	return t.Type == TransitionCrossfade
}

// Export phase constants, in lifecycle order
const (
	PhaseInitializing  = "initializing"
	PhaseTTS           = "tts"
	PhaseRendering     = "rendering"
	PhaseSlideVideos   = "creating-slide-videos"
	PhaseConcatenating = "concatenating-videos"
	PhaseCleaningUp    = "cleaning-up"
	PhaseCompleted     = "completed"
	PhaseError         = "error"
)

// Export format constants
const (
	FormatMP4 = "mp4"
	FormatAVI = "avi"
	FormatMOV = "mov"
)

// ValidExportFormat reports whether the format is one of the supported set
func ValidExportFormat(format string) bool {
	switch format {
	case FormatMP4, FormatAVI, FormatMOV:
		return true
	}
	return false
}

// Voices supported by the speech API
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// ValidVoice reports whether the voice name is supported
func ValidVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// TTS model constants
const (
	TTSModelStandard = "tts-1"
	TTSModelHD       = "tts-1-hd"
)
