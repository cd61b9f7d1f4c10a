package progress

import (
	"context"
	"sync"
	"time"

	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/logging"
)

// statusTTL keeps cached status entries alive long enough for pollers but
// lets abandoned jobs age out.
const statusTTL = 24 * time.Hour

// Store persists progress updates. *database.Repository satisfies it.
type Store interface {
	UpdateExportProgress(ctx context.Context, id string, progress float64, phase, message string) error
}

// StatusCache mirrors progress into the polling cache. *cache.Cache
// satisfies it.
type StatusCache interface {
	SetJobStatus(ctx context.Context, jobID string, status *cache.JobStatus, ttl time.Duration) error
}

// Tracker reports one job's progress to the database and cache. Progress is
// clamped monotonically non-decreasing: a phase that reports a lower number
// than one already published is held at the high-water mark, so pollers
// never see progress move backwards.
type Tracker struct {
	jobID  string
	store  Store
	cache  StatusCache
	logger *logging.Logger

	mu        sync.Mutex
	highWater float64
	lastPhase string
}

// NewTracker creates a progress tracker for one job
func NewTracker(jobID string, store Store, statusCache StatusCache, logger *logging.Logger) *Tracker {
	return &Tracker{
		jobID:  jobID,
		store:  store,
		cache:  statusCache,
		logger: logger,
	}
}

// JobID returns the job this tracker reports for
func (t *Tracker) JobID() string {
	return t.jobID
}

// LastPhase returns the most recently published phase
func (t *Tracker) LastPhase() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPhase
}

// Progress returns the current high-water progress mark
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.highWater
}

// Update publishes a progress point. Failures to persist are logged, not
// returned: a lost progress update must never fail the export itself.
func (t *Tracker) Update(ctx context.Context, progress float64, phase, message string) {
	t.mu.Lock()
	if progress < t.highWater {
		progress = t.highWater
	} else {
		t.highWater = progress
	}
	t.lastPhase = phase
	t.mu.Unlock()

	t.logger.LogExportProgress(t.jobID, phase, progress, message)

	if err := t.store.UpdateExportProgress(ctx, t.jobID, progress, phase, message); err != nil {
		t.logger.WithJobID(t.jobID).WithError(err).Warn("Failed to persist progress update")
	}

	status := &cache.JobStatus{
		Progress: progress,
		Phase:    phase,
		Message:  message,
	}
	if err := t.cache.SetJobStatus(ctx, t.jobID, status, statusTTL); err != nil {
		t.logger.WithJobID(t.jobID).WithError(err).Warn("Failed to cache progress update")
	}
}

// Phase publishes a phase change without a new progress number. The cached
// progress stays at the current high-water mark.
func (t *Tracker) Phase(ctx context.Context, phase, message string) {
	t.mu.Lock()
	current := t.highWater
	t.mu.Unlock()

	t.Update(ctx, current, phase, message)
}

// Band returns a callback mapping a sub-operation's 0-100 progress into
// the [low, high] slice of overall progress, for handing to encoders.
func (t *Tracker) Band(ctx context.Context, low, high float64, phase, message string) func(float64) {
	return func(subProgress float64) {
		if subProgress < 0 {
			subProgress = 0
		}
		if subProgress > 100 {
			subProgress = 100
		}
		overall := low + (high-low)*subProgress/100
		t.Update(ctx, overall, phase, message)
	}
}
