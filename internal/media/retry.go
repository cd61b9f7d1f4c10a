package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// transientSignatures are substrings of error messages that indicate a
// failure worth retrying. Anything else fails immediately.
var transientSignatures = []string{
	"broken pipe",
	"connection reset",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"resource temporarily",
	"exit status",
	"signal: killed",
}

// IsTransient reports whether an error matches a known transient failure
// signature. Structural errors (missing inputs, unreadable media) are
// never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingInput) || errors.Is(err, ErrProbe) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Retry runs op up to maxAttempts times, backing off baseDelay * 2^(n-1)
// between attempts. Before each retry the partial output at outputPath is
// removed so a truncated file never survives into the next attempt.
// Non-transient errors abort immediately.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, outputPath string, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		if outputPath != "" {
			os.Remove(outputPath)
		}

		delay := baseDelay * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
