package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_JobStatus(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	status := &JobStatus{
		Progress: 42.5,
		Phase:    "creating-slide-videos",
		Message:  "slide 3/5",
	}

	if err := cache.SetJobStatus(ctx, "job-1", status, time.Minute); err != nil {
		t.Fatalf("SetJobStatus failed: %v", err)
	}

	got, err := cache.GetJobStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobStatus failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cached status, got nil")
	}
	if got.Progress != 42.5 {
		t.Errorf("Expected progress 42.5, got %f", got.Progress)
	}
	if got.Phase != "creating-slide-videos" {
		t.Errorf("Expected phase creating-slide-videos, got %s", got.Phase)
	}

	// Miss after delete
	if err := cache.DeleteJobStatus(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJobStatus failed: %v", err)
	}

	got, err = cache.GetJobStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobStatus after delete failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss after delete")
	}
}

func TestCache_JobStatusMiss(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	got, err := cache.GetJobStatus(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetJobStatus failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil on cache miss")
	}
}

func TestCache_DownloadURL(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	url, err := cache.GetDownloadURL(ctx, "job-2")
	if err != nil {
		t.Fatalf("GetDownloadURL failed: %v", err)
	}
	if url != "" {
		t.Error("Expected empty URL on miss")
	}

	if err := cache.SetDownloadURL(ctx, "job-2", "http://example.com/x.mp4", time.Minute); err != nil {
		t.Fatalf("SetDownloadURL failed: %v", err)
	}

	url, err = cache.GetDownloadURL(ctx, "job-2")
	if err != nil {
		t.Fatalf("GetDownloadURL failed: %v", err)
	}
	if url != "http://example.com/x.mp4" {
		t.Errorf("Unexpected URL: %s", url)
	}
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := cache.CheckRateLimit(ctx, "client-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := cache.CheckRateLimit(ctx, "client-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Fourth request should exceed the limit")
	}
}

func TestCache_Stats(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	if err := cache.IncrementStat(ctx, "exports_started"); err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}
	if err := cache.IncrementStat(ctx, "exports_started"); err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	count, err := cache.GetStat(ctx, "exports_started")
	if err != nil {
		t.Fatalf("GetStat failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected stat 2, got %d", count)
	}
}
