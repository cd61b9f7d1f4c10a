package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9091
  host: "127.0.0.1"

database:
  host: "testdb"
  port: 5432
  user: "testuser"
  password: "testpass"
  dbname: "testdb"

narration:
  maxChars: 2000
  interSlideDelay: "250ms"

pipeline:
  scratchDir: "/var/tmp/deck"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.Server.Port != 9091 {
		t.Errorf("Expected port 9091, got %d", cfg.Server.Port)
	}

	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}

	if cfg.Narration.MaxChars != 2000 {
		t.Errorf("Expected maxChars 2000, got %d", cfg.Narration.MaxChars)
	}

	if cfg.Narration.InterSlideDelay != 250*time.Millisecond {
		t.Errorf("Expected interSlideDelay 250ms, got %v", cfg.Narration.InterSlideDelay)
	}

	if cfg.Pipeline.ScratchDir != "/var/tmp/deck" {
		t.Errorf("Expected scratchDir /var/tmp/deck, got %s", cfg.Pipeline.ScratchDir)
	}

	// Defaults fill in unspecified sections
	if cfg.Rasterizer.Width != 1920 || cfg.Rasterizer.Height != 1080 {
		t.Errorf("Expected default 1920x1080 canvas, got %dx%d", cfg.Rasterizer.Width, cfg.Rasterizer.Height)
	}

	if cfg.Queue.Port != 5672 {
		t.Errorf("Expected default queue port 5672, got %d", cfg.Queue.Port)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
