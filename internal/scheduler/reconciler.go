package scheduler

import (
	"context"
	"time"

	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/internal/queue"
	"github.com/echodeck/echodeck/pkg/models"
)

// Repository defines the persistence operations the reconciler needs
type Repository interface {
	StaleExportJobs(ctx context.Context, olderThan time.Duration, limit int) ([]*models.ExportJob, error)
	UpdateExportJob(ctx context.Context, job *models.ExportJob) error
}

// Publisher defines the queue operations the reconciler needs
type Publisher interface {
	PublishToRetryQueue(ctx context.Context, job *models.ExportJob, retryCount int) error
	PublishToDeadLetterQueue(ctx context.Context, job *models.ExportJob, reason string) error
}

// Reconciler requeues export jobs orphaned by worker crashes. A job still
// in a non-terminal phase with no progress updates past the staleness
// cutoff has lost its worker; within the retry budget it goes back through
// the retry queue, beyond it the job is failed and dead-lettered.
type Reconciler struct {
	repo      Repository
	publisher Publisher
	interval  time.Duration
	staleness time.Duration
	logger    *logging.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(repo Repository, publisher Publisher, interval, staleness time.Duration, logger *logging.Logger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		staleness: staleness,
		logger:    logger,
	}
}

// Run reconciles on the configured interval until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.logger.WithError(err).Warn("Stale export reconciliation failed")
			}
		}
	}
}

// Reconcile performs one pass over stale export jobs
func (r *Reconciler) Reconcile(ctx context.Context) error {
	jobs, err := r.repo.StaleExportJobs(ctx, r.staleness, 100)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.RetryCount < queue.MaxRetries {
			retries := job.RetryCount
			job.RetryCount++
			if err := r.repo.UpdateExportJob(ctx, job); err != nil {
				r.logger.WithJobID(job.ID).WithError(err).Warn("Failed to bump retry count")
				continue
			}
			if err := r.publisher.PublishToRetryQueue(ctx, job, retries); err != nil {
				r.logger.WithJobID(job.ID).WithError(err).Warn("Failed to requeue stale job")
				continue
			}
			r.logger.WithJobID(job.ID).
				WithField("retry_count", job.RetryCount).
				Info("Requeued stale export job")
			continue
		}

		now := time.Now()
		job.Phase = models.PhaseError
		job.ErrorMsg = "export abandoned: no worker progress within the staleness window"
		job.Message = job.ErrorMsg
		job.CompletedAt = &now
		if err := r.repo.UpdateExportJob(ctx, job); err != nil {
			r.logger.WithJobID(job.ID).WithError(err).Warn("Failed to fail abandoned job")
			continue
		}
		if err := r.publisher.PublishToDeadLetterQueue(ctx, job, "retry budget exhausted"); err != nil {
			r.logger.WithJobID(job.ID).WithError(err).Warn("Failed to dead-letter abandoned job")
		}
		r.logger.WithJobID(job.ID).Warn("Abandoned export job moved to dead letter queue")
	}

	return nil
}
