package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"broken pipe", errors.New("write |1: broken pipe"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"exit status", errors.New("ffmpeg failed: exit status 1"), true},
		{"missing input", fmt.Errorf("%w: /tmp/slide.png", ErrMissingInput), false},
		{"probe failure", fmt.Errorf("%w: no parseable duration", ErrProbe), false},
		{"validation", errors.New("invalid transition type"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, "", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("exit status 1")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonTransientError(t *testing.T) {
	attempts := 0
	structural := fmt.Errorf("%w: /tmp/audio.mp3", ErrMissingInput)
	err := Retry(context.Background(), 3, time.Millisecond, "", func() error {
		attempts++
		return structural
	})

	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, "", func() error {
		attempts++
		return errors.New("exit status 1")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryRemovesPartialOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "partial.mp4")

	attempts := 0
	err := Retry(context.Background(), 2, time.Millisecond, output, func() error {
		attempts++
		if attempts == 1 {
			// Simulate a truncated write before the failure
			require.NoError(t, os.WriteFile(output, []byte("partial"), 0644))
			return errors.New("broken pipe")
		}
		// The previous attempt's partial file must be gone by now
		_, statErr := os.Stat(output)
		assert.True(t, os.IsNotExist(statErr))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, "", func() error {
		return errors.New("exit status 1")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
