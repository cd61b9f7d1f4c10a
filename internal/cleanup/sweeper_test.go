package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodeck/echodeck/internal/config"
	"github.com/echodeck/echodeck/internal/logging"
)

func newTestSweeper(t *testing.T, scratchDir string, maxAge time.Duration) *Sweeper {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	return NewSweeper(scratchDir, config.CleanupConfig{
		Interval: time.Minute,
		MaxAge:   maxAge,
	}, logger)
}

func TestSweepRemovesOnlyStaleEntries(t *testing.T) {
	scratch := t.TempDir()

	stale := filepath.Join(scratch, "job-stale")
	require.NoError(t, os.MkdirAll(stale, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "segment_000.mp4"), []byte("x"), 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(scratch, "job-fresh")
	require.NoError(t, os.MkdirAll(fresh, 0755))

	sweeper := newTestSweeper(t, scratch, time.Hour)
	removed, err := sweeper.Sweep()
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}

func TestSweepMissingScratchDirIsNoop(t *testing.T) {
	sweeper := newTestSweeper(t, filepath.Join(t.TempDir(), "does-not-exist"), time.Hour)

	removed, err := sweeper.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
