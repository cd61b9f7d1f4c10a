package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides caching functionality using Redis. Its main job is backing
// the export status polling endpoint so pollers don't hammer Postgres.
type Cache struct {
	client *redis.Client
}

// JobStatus is the cached polling view of an export job
type JobStatus struct {
	Progress float64 `json:"progress"`
	Phase    string  `json:"phase"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`
	IsReady  bool    `json:"is_ready"`
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetJobStatus caches the polling view of an export job
func (c *Cache) SetJobStatus(ctx context.Context, jobID string, status *JobStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}

	key := fmt.Sprintf("export:status:%s", jobID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJobStatus retrieves the polling view of an export job. A cache miss
// returns (nil, nil).
func (c *Cache) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	key := fmt.Sprintf("export:status:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get job status from cache: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job status: %w", err)
	}

	return &status, nil
}

// DeleteJobStatus removes a job's cached status
func (c *Cache) DeleteJobStatus(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("export:status:%s", jobID)
	return c.client.Del(ctx, key).Err()
}

// SetDownloadURL caches a presigned download URL for a ready export
func (c *Cache) SetDownloadURL(ctx context.Context, jobID, url string, ttl time.Duration) error {
	key := fmt.Sprintf("export:url:%s", jobID)
	return c.client.Set(ctx, key, url, ttl).Err()
}

// GetDownloadURL retrieves a cached presigned download URL
func (c *Cache) GetDownloadURL(ctx context.Context, jobID string) (string, error) {
	key := fmt.Sprintf("export:url:%s", jobID)
	url, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get download URL from cache: %w", err)
	}
	return url, nil
}

// IncrementStat increments a statistic counter
func (c *Cache) IncrementStat(ctx context.Context, stat string) error {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Incr(ctx, key).Err()
}

// GetStat retrieves a statistic value
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Get(ctx, key).Int64()
}

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	// Increment counter
	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	// Check if limit exceeded
	return count <= limit, nil
}

// Exists checks if a key exists
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
