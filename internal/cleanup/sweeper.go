package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
)

// Sweeper periodically removes abandoned export scratch directories. Each
// export works inside its own subdirectory of the scratch root; anything
// older than MaxAge belongs to a crashed or long-dead job.
type Sweeper struct {
	scratchDir string
	cfg        config.CleanupConfig
	logger     *logging.Logger
}

// NewSweeper creates a Sweeper over the given scratch root
func NewSweeper(scratchDir string, cfg config.CleanupConfig, logger *logging.Logger) *Sweeper {
	return &Sweeper{
		scratchDir: scratchDir,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep()
			if err != nil {
				s.logger.WithError(err).Warn("Scratch sweep failed")
				continue
			}
			if removed > 0 {
				s.logger.WithField("removed", removed).Info("Swept abandoned scratch directories")
			}
		}
	}
}

// Sweep removes entries under the scratch root whose modification time is
// older than MaxAge. Returns how many entries were removed.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-s.cfg.MaxAge)
	removed := 0

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.scratchDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithField("path", path).WithError(err).Warn("Failed to remove scratch entry")
			continue
		}
		removed++
	}

	return removed, nil
}
