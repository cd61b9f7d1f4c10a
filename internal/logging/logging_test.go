package logging

import (
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "JSON format to stdout",
			config:  Config{Level: "info", Format: "json", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "Console format to stderr",
			config:  Config{Level: "debug", Format: "console", Output: "stderr"},
			wantErr: false,
		},
		{
			name:    "Invalid log level defaults to info",
			config:  Config{Level: "invalid", Format: "json", Output: "stdout"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected non-nil logger")
			}
		})
	}
}

func TestLoggerWithFields(t *testing.T) {
	logger, err := NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if logger.WithJobID("job-123") == nil {
		t.Error("Expected non-nil logger from WithJobID")
	}
	if logger.WithPresentationID("pres-456") == nil {
		t.Error("Expected non-nil logger from WithPresentationID")
	}
	if logger.WithSlideID("slide-789") == nil {
		t.Error("Expected non-nil logger from WithSlideID")
	}
	if logger.WithField("key", "value") == nil {
		t.Error("Expected non-nil logger from WithField")
	}
}

func TestLogEventHelpers(t *testing.T) {
	logger, err := NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Should not panic
	logger.LogExportProgress("job-1", "tts", 0, "narrating slide 2/5")
	logger.LogSlideEvent("job-1", "slide-2", "rasterize", 1, nil)
	logger.LogJobEvent("job-1", "started", "initializing", map[string]interface{}{
		"format": "mp4",
	})
	logger.LogStorageOperation("upload", "exports", "job-1.mp4", 1048576, 2*time.Second, nil)
}
