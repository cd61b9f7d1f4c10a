package rasterizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayBackoffWithJitter(t *testing.T) {
	base := 2 * time.Second

	for attempt := 1; attempt <= 3; attempt++ {
		exponential := base * time.Duration(1<<(attempt-1))

		for i := 0; i < 50; i++ {
			d := retryDelay(base, attempt)
			assert.GreaterOrEqual(t, d, exponential)
			assert.Less(t, d, exponential+time.Second)
		}
	}
}

func TestRetryDelayJitterVaries(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		seen[retryDelay(time.Second, 1)] = true
	}

	// Nanosecond-granular jitter repeating 100 times would mean no
	// jitter at all.
	assert.Greater(t, len(seen), 1)
}
