package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// Presentation represents a slide deck generated from user content
type Presentation struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Style      string    `json:"style" db:"style"`
	Transcript string    `json:"transcript,omitempty" db:"transcript"`
	Status     string    `json:"status" db:"status"`
	Slides     []*Slide  `json:"slides,omitempty" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Slide represents one slide within a presentation
type Slide struct {
	ID             string     `json:"id" db:"id"`
	PresentationID string     `json:"presentation_id" db:"presentation_id"`
	Position       int        `json:"position" db:"position"`
	Title          string     `json:"title" db:"title"`
	Bullets        StringList `json:"bullets" db:"bullets"`
	SpeakerNotes   string     `json:"speaker_notes,omitempty" db:"speaker_notes"`
	ImageRef       string     `json:"image_ref,omitempty" db:"image_ref"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// NarrationText returns the text to narrate for this slide: speaker notes if
// present, otherwise title plus bullets.
func (s *Slide) NarrationText() string {
	notes := strings.TrimSpace(s.SpeakerNotes)
	if notes != "" {
		return notes
	}

	parts := make([]string, 0, len(s.Bullets)+1)
	if title := strings.TrimSpace(s.Title); title != "" {
		parts = append(parts, title)
	}
	for _, b := range s.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			parts = append(parts, b)
		}
	}
	return strings.Join(parts, ". ")
}

// IsTitleSlide reports whether the slide renders with the centered-title
// layout (the first slide, or any slide with no bullet content).
func (s *Slide) IsTitleSlide() bool {
	return s.Position == 0 || len(s.Bullets) == 0
}

// StringList holds an ordered list of strings stored as JSONB
type StringList []string

// Value implements driver.Valuer for database storage
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// PresentationStatus constants
const (
	PresentationStatusProcessing = "processing"
	PresentationStatusCompleted  = "completed"
	PresentationStatusFailed     = "failed"
)

// Presentation style constants
const (
	StyleProfessional = "professional"
	StyleCreative     = "creative"
	StyleAcademic     = "academic"
	StyleCasual       = "casual"
)

// ValidStyle reports whether the style is one of the supported set
func ValidStyle(style string) bool {
	switch style {
	case StyleProfessional, StyleCreative, StyleAcademic, StyleCasual:
		return true
	}
	return false
}
