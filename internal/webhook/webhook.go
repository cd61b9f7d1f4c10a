package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/pkg/models"
)

// Event names published to the configured endpoint
const (
	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"
)

// Event is the payload envelope sent to the webhook endpoint
type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Service delivers export lifecycle events to a single configured HTTP
// endpoint. Delivery is best effort: failures are retried with backoff and
// then logged, never surfaced to the export itself.
type Service struct {
	cfg    config.WebhookConfig
	client *http.Client
	logger *logging.Logger
}

// NewService creates a webhook delivery service
func NewService(cfg config.WebhookConfig, logger *logging.Logger) *Service {
	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Enabled reports whether an endpoint is configured
func (s *Service) Enabled() bool {
	return s.cfg.URL != ""
}

// NotifyExportCompleted sends the completion event for a finished job
func (s *Service) NotifyExportCompleted(ctx context.Context, job *models.ExportJob) {
	s.notify(ctx, EventExportCompleted, job)
}

// NotifyExportFailed sends the failure event for a dead job
func (s *Service) NotifyExportFailed(ctx context.Context, job *models.ExportJob) {
	s.notify(ctx, EventExportFailed, job)
}

func (s *Service) notify(ctx context.Context, event string, data interface{}) {
	if !s.Enabled() {
		return
	}

	payload, err := json.Marshal(Event{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal webhook payload")
		return
	}

	go s.deliverWithRetry(event, payload)
}

// deliverWithRetry runs in the background so export processing never waits
// on a slow receiver.
func (s *Service) deliverWithRetry(event string, payload []byte) {
	deliveryID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		lastErr = s.deliver(event, deliveryID, payload)
		if lastErr == nil {
			return
		}

		s.logger.WithField("event", event).
			WithField("delivery_id", deliveryID).
			WithField("attempt", attempt).
			WithError(lastErr).
			Warn("Webhook delivery failed")

		if attempt < s.cfg.MaxAttempts {
			time.Sleep(s.cfg.BaseDelay * time.Duration(1<<(attempt-1)))
		}
	}

	s.logger.WithField("event", event).
		WithField("delivery_id", deliveryID).
		WithError(lastErr).
		Error("Webhook delivery abandoned after retries")
}

func (s *Service) deliver(event, deliveryID string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "EchoDeck-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	if s.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(payload, s.cfg.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("receiver returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Sign computes the HMAC-SHA256 signature header value for a payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
