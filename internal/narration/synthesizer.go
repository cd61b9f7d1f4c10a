package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/metrics"
	"github.com/echodeck/echodeck/pkg/models"
)

// ErrAllSlidesFailed is returned when not a single slide produced audio
var ErrAllSlidesFailed = errors.New("narration failed for every slide")

// ErrRateLimited marks a speech API 429 response
var ErrRateLimited = errors.New("speech API rate limited")

// minNarrationChars is the threshold below which a slide's text is skipped
// rather than synthesized.
const minNarrationChars = 5

// SpeechClient synthesizes one piece of text into audio bytes
type SpeechClient interface {
	Synthesize(ctx context.Context, text, voice, model string) ([]byte, error)
}

// AudioToolkit is the slice of media operations narration needs.
// *media.FFmpeg satisfies it.
type AudioToolkit interface {
	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
	GenerateSilence(ctx context.Context, outputPath string, seconds float64) error
	ConcatAudio(ctx context.Context, inputPaths []string, outputPath string) error
}

// Clip is one successfully synthesized narration clip
type Clip struct {
	SlideID  string
	Position int
	Path     string
	Duration float64
}

// Synthesizer turns slide text into per-slide narration audio files
type Synthesizer struct {
	client SpeechClient
	ffmpeg AudioToolkit
	cfg    config.NarrationConfig
	logger *logging.Logger
}

// NewSynthesizer creates a Synthesizer backed by the given speech client
func NewSynthesizer(client SpeechClient, ffmpeg AudioToolkit, cfg config.NarrationConfig, logger *logging.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		ffmpeg: ffmpeg,
		cfg:    cfg,
		logger: logger,
	}
}

// SynthesizeSlide synthesizes one slide's narration to an audio file,
// retrying rate-limited and transient failures with exponential backoff
// plus jitter. Returns ("", nil) when the slide's text is too short to
// narrate.
func (s *Synthesizer) SynthesizeSlide(ctx context.Context, slide *models.Slide, voice, model, outputDir string) (string, error) {
	text := strings.TrimSpace(slide.NarrationText())
	if len(text) < minNarrationChars {
		s.logger.WithSlideID(slide.ID).Debug("Slide text too short to narrate, skipping")
		return "", nil
	}

	if len(text) > s.cfg.MaxChars {
		s.logger.WithSlideID(slide.ID).
			WithField("length", len(text)).
			WithField("max", s.cfg.MaxChars).
			Warn("Narration text exceeds limit, truncating")
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := s.cfg.MaxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("narration_%03d.%s", slide.Position, s.cfg.AudioFormat))

	var audio []byte
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		audio, lastErr = s.client.Synthesize(ctx, text, voice, model)
		if lastErr == nil {
			break
		}

		s.logger.LogSlideEvent("", slide.ID, "tts", attempt, lastErr)

		// Only rate limiting is worth waiting out; anything else fails
		// the slide immediately.
		if !errors.Is(lastErr, ErrRateLimited) {
			return "", fmt.Errorf("synthesis failed: %w", lastErr)
		}

		if attempt == s.cfg.MaxAttempts {
			return "", fmt.Errorf("synthesis failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
		}

		delay := s.cfg.BaseDelay * time.Duration(1<<(attempt-1))
		delay += time.Duration(rand.Int63n(int64(time.Second)))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	if err := os.WriteFile(outputPath, audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write narration file: %w", err)
	}
	metrics.NarrationCharsTotal.Add(float64(len(text)))

	return outputPath, nil
}

// SynthesizeAll synthesizes narration for every slide in order, pausing
// between requests to stay under the API's rate window. Individual slide
// failures are tolerated; only zero successes is fatal.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, slides []*models.Slide, voice, model, outputDir string) ([]Clip, error) {
	clips := make([]Clip, 0, len(slides))
	failures := 0

	for i, slide := range slides {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.InterSlideDelay):
			}
		}

		path, err := s.SynthesizeSlide(ctx, slide, voice, model, outputDir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			s.logger.WithSlideID(slide.ID).WithError(err).
				Warn("Slide narration failed, continuing with remaining slides")
			continue
		}
		if path == "" {
			continue // too short, skipped
		}

		duration, err := s.ffmpeg.ProbeDuration(ctx, path)
		if err != nil {
			failures++
			os.Remove(path)
			s.logger.WithSlideID(slide.ID).WithError(err).
				Warn("Narration clip unreadable, discarding")
			continue
		}

		clips = append(clips, Clip{
			SlideID:  slide.ID,
			Position: slide.Position,
			Path:     path,
			Duration: duration,
		})
	}

	if len(clips) == 0 && failures > 0 {
		return nil, ErrAllSlidesFailed
	}

	return clips, nil
}

// Combine joins clips into one audio file with a silence gap between
// consecutive clips. Per-clip source files are removed after a successful
// combine. Total output duration is sum(clip durations) + (n-1)*pause.
func (s *Synthesizer) Combine(ctx context.Context, clips []Clip, pauseSecs float64, outputPath string) (float64, error) {
	if len(clips) == 0 {
		return 0, fmt.Errorf("no clips to combine")
	}

	if len(clips) == 1 {
		if err := os.Rename(clips[0].Path, outputPath); err != nil {
			return 0, fmt.Errorf("failed to move narration clip: %w", err)
		}
		return clips[0].Duration, nil
	}

	var silencePath string
	inputs := make([]string, 0, len(clips)*2-1)
	total := 0.0
	for i, clip := range clips {
		if i > 0 && pauseSecs > 0 {
			if silencePath == "" {
				silencePath = filepath.Join(filepath.Dir(outputPath), "pause."+s.cfg.AudioFormat)
				if err := s.ffmpeg.GenerateSilence(ctx, silencePath, pauseSecs); err != nil {
					return 0, err
				}
			}
			inputs = append(inputs, silencePath)
			total += pauseSecs
		}
		inputs = append(inputs, clip.Path)
		total += clip.Duration
	}

	if err := s.ffmpeg.ConcatAudio(ctx, inputs, outputPath); err != nil {
		return 0, err
	}

	for _, clip := range clips {
		os.Remove(clip.Path)
	}
	if silencePath != "" {
		os.Remove(silencePath)
	}

	return total, nil
}

// openAIClient calls the OpenAI speech endpoint
type openAIClient struct {
	apiKey      string
	baseURL     string
	audioFormat string
	httpClient  *http.Client
}

// NewOpenAIClient creates a SpeechClient backed by the OpenAI speech API
func NewOpenAIClient(cfg config.NarrationConfig) SpeechClient {
	return &openAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		audioFormat: cfg.AudioFormat,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (c *openAIClient) Synthesize(ctx context.Context, text, voice, model string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: c.audioFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("speech API returned status %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}

	return audio, nil
}
