package rasterizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/pkg/models"
)

// ErrNoImages is returned when not a single slide could be rendered
var ErrNoImages = errors.New("rasterization failed for every slide")

// Image is one successfully rendered slide image
type Image struct {
	SlideID  string
	Position int
	Path     string
}

// Engine renders slide HTML to PNG via a headless browser. One Engine holds
// one browser process; callers share it across a batch and must Close it.
type Engine struct {
	cfg    config.RasterizerConfig
	logger *logging.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewEngine creates an Engine. The browser process starts on Open.
func NewEngine(cfg config.RasterizerConfig, logger *logging.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
	}
}

// Open starts the headless browser
func (e *Engine) Open(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(e.cfg.Width, e.cfg.Height),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process up now so Open fails fast when no
	// browser binary is available.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	e.allocCancel = allocCancel
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel

	return nil
}

// Close tears down the browser process. Safe to call when not open.
func (e *Engine) Close() {
	if e.browserCancel != nil {
		e.browserCancel()
		e.browserCancel = nil
	}
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCancel = nil
	}
	e.browserCtx = nil
}

// renderHTML captures one HTML document as a PNG screenshot
func (e *Engine) renderHTML(html, outputPath string) error {
	if e.browserCtx == nil {
		return fmt.Errorf("engine is not open")
	}

	renderCtx, cancel := context.WithTimeout(e.browserCtx, e.cfg.RenderTimeout)
	defer cancel()

	var buf []byte
	err := chromedp.Run(renderCtx,
		emulation.SetDeviceMetricsOverride(int64(e.cfg.Width), int64(e.cfg.Height), 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}

	if err := os.WriteFile(outputPath, buf, 0644); err != nil {
		return fmt.Errorf("failed to write slide image: %w", err)
	}

	return nil
}

// Rasterize renders one slide to PNG with per-slide retries. A failed
// attempt tears the browser down and starts a fresh one, since a wedged
// renderer rarely recovers in place.
func (e *Engine) Rasterize(ctx context.Context, slide *models.Slide, style, outputDir string) (string, error) {
	html, err := RenderSlideHTML(slide, style)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("slide_%03d.png", slide.Position))

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		lastErr = e.renderHTML(html, outputPath)
		if lastErr == nil {
			return outputPath, nil
		}

		e.logger.LogSlideEvent("", slide.ID, "render", attempt, lastErr)

		if attempt == e.cfg.MaxAttempts {
			break
		}

		e.Close()
		if err := e.Open(ctx); err != nil {
			return "", fmt.Errorf("failed to restart browser: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay(e.cfg.BaseDelay, attempt)):
		}
	}

	return "", fmt.Errorf("rasterization failed after %d attempts: %w", e.cfg.MaxAttempts, lastErr)
}

// retryDelay doubles the base delay per attempt and adds sub-second jitter
// so parallel workers don't hammer a recovering renderer in lockstep.
func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<(attempt-1))
	return delay + time.Duration(rand.Int63n(int64(time.Second)))
}

// RasterizeAll renders every slide through one shared browser, pausing
// between slides. The browser is torn down on every exit path. Individual
// slide failures are tolerated; zero successes is fatal.
func (e *Engine) RasterizeAll(ctx context.Context, slides []*models.Slide, style, outputDir string) ([]Image, error) {
	if err := e.Open(ctx); err != nil {
		return nil, err
	}
	defer e.Close()

	images := make([]Image, 0, len(slides))
	failures := 0

	for i, slide := range slides {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.InterSlideDelay):
			}
		}

		path, err := e.Rasterize(ctx, slide, style, outputDir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			e.logger.WithSlideID(slide.ID).WithError(err).
				Warn("Slide render failed, continuing with remaining slides")
			continue
		}

		images = append(images, Image{
			SlideID:  slide.ID,
			Position: slide.Position,
			Path:     path,
		})
	}

	if len(images) == 0 && failures > 0 {
		return nil, ErrNoImages
	}

	return images, nil
}
