package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/echodeck/echodeck/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Presentations

// CreatePresentation creates a presentation together with its slides
func (r *Repository) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO presentations (id, title, style, transcript, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		p.ID, p.Title, p.Style, p.Transcript, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create presentation: %w", err)
	}

	for _, slide := range p.Slides {
		if slide.ID == "" {
			slide.ID = uuid.New().String()
		}
		slide.PresentationID = p.ID

		slideQuery := `
			INSERT INTO slides (id, presentation_id, position, title, bullets, speaker_notes, image_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`

		err = tx.QueryRow(ctx, slideQuery,
			slide.ID, slide.PresentationID, slide.Position, slide.Title,
			slide.Bullets, slide.SpeakerNotes, slide.ImageRef,
		).Scan(&slide.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create slide %d: %w", slide.Position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit presentation: %w", err)
	}

	return nil
}

// GetPresentation retrieves a presentation with its slides by ID
func (r *Repository) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	var p models.Presentation

	query := `
		SELECT id, title, style, transcript, status, created_at, updated_at
		FROM presentations
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Style, &p.Transcript, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presentation: %w", err)
	}

	slides, err := r.GetSlides(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Slides = slides

	return &p, nil
}

// ListPresentations retrieves presentations with pagination
func (r *Repository) ListPresentations(ctx context.Context, limit, offset int) ([]*models.Presentation, error) {
	query := `
		SELECT id, title, style, transcript, status, created_at, updated_at
		FROM presentations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list presentations: %w", err)
	}
	defer rows.Close()

	var presentations []*models.Presentation
	for rows.Next() {
		var p models.Presentation
		err := rows.Scan(&p.ID, &p.Title, &p.Style, &p.Transcript, &p.Status, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan presentation: %w", err)
		}
		presentations = append(presentations, &p)
	}

	return presentations, nil
}

// UpdatePresentationStatus updates a presentation's status
func (r *Repository) UpdatePresentationStatus(ctx context.Context, id, status string) error {
	query := `UPDATE presentations SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update presentation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Slides

// GetSlides retrieves all slides for a presentation in position order
func (r *Repository) GetSlides(ctx context.Context, presentationID string) ([]*models.Slide, error) {
	query := `
		SELECT id, presentation_id, position, title, bullets, speaker_notes, image_ref, created_at
		FROM slides
		WHERE presentation_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, presentationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slides: %w", err)
	}
	defer rows.Close()

	var slides []*models.Slide
	for rows.Next() {
		var s models.Slide
		err := rows.Scan(
			&s.ID, &s.PresentationID, &s.Position, &s.Title,
			&s.Bullets, &s.SpeakerNotes, &s.ImageRef, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		slides = append(slides, &s)
	}

	return slides, nil
}

// UpdateSlide updates a slide's title and bullets
func (r *Repository) UpdateSlide(ctx context.Context, slide *models.Slide) error {
	query := `
		UPDATE slides
		SET title = $2, bullets = $3, speaker_notes = $4
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, slide.ID, slide.Title, slide.Bullets, slide.SpeakerNotes)
	if err != nil {
		return fmt.Errorf("failed to update slide: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetSlide retrieves a slide by ID
func (r *Repository) GetSlide(ctx context.Context, id string) (*models.Slide, error) {
	var s models.Slide

	query := `
		SELECT id, presentation_id, position, title, bullets, speaker_notes, image_ref, created_at
		FROM slides
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.PresentationID, &s.Position, &s.Title,
		&s.Bullets, &s.SpeakerNotes, &s.ImageRef, &s.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slide: %w", err)
	}

	return &s, nil
}

// Export jobs

// CreateExportJob creates a new export job record
func (r *Repository) CreateExportJob(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	query := `
		INSERT INTO export_jobs (id, presentation_id, format, is_ready, progress, phase, message, retry_count, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.PresentationID, job.Format, job.IsReady, job.Progress,
		job.Phase, job.Message, job.RetryCount, job.Options,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}

	return nil
}

// GetExportJob retrieves an export job by ID
func (r *Repository) GetExportJob(ctx context.Context, id string) (*models.ExportJob, error) {
	var job models.ExportJob

	query := `
		SELECT id, presentation_id, format, is_ready, progress, phase, message, error_msg,
		       file_path, file_size, retry_count, options, started_at, completed_at,
		       created_at, updated_at
		FROM export_jobs
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.PresentationID, &job.Format, &job.IsReady, &job.Progress,
		&job.Phase, &job.Message, &job.ErrorMsg, &job.FilePath, &job.FileSize,
		&job.RetryCount, &job.Options, &job.StartedAt, &job.CompletedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export job: %w", err)
	}

	return &job, nil
}

// UpdateExportJob updates an export job record
func (r *Repository) UpdateExportJob(ctx context.Context, job *models.ExportJob) error {
	query := `
		UPDATE export_jobs
		SET is_ready = $2, progress = $3, phase = $4, message = $5, error_msg = $6,
		    file_path = $7, file_size = $8, retry_count = $9, started_at = $10,
		    completed_at = $11, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.IsReady, job.Progress, job.Phase, job.Message, job.ErrorMsg,
		job.FilePath, job.FileSize, job.RetryCount, job.StartedAt, job.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}

	return nil
}

// UpdateExportProgress updates only the progress fields of a non-terminal job
func (r *Repository) UpdateExportProgress(ctx context.Context, id string, progress float64, phase, message string) error {
	query := `
		UPDATE export_jobs
		SET progress = $2, phase = $3, message = $4, updated_at = now()
		WHERE id = $1 AND phase NOT IN ('completed', 'error')
	`

	_, err := r.db.Pool.Exec(ctx, query, id, progress, phase, message)
	if err != nil {
		return fmt.Errorf("failed to update export progress: %w", err)
	}

	return nil
}

// GetExportJobsByPresentationID retrieves all export jobs for a presentation
func (r *Repository) GetExportJobsByPresentationID(ctx context.Context, presentationID string) ([]*models.ExportJob, error) {
	query := `
		SELECT id, presentation_id, format, is_ready, progress, phase, message, error_msg,
		       file_path, file_size, retry_count, options, started_at, completed_at,
		       created_at, updated_at
		FROM export_jobs
		WHERE presentation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, presentationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		var job models.ExportJob
		err := rows.Scan(
			&job.ID, &job.PresentationID, &job.Format, &job.IsReady, &job.Progress,
			&job.Phase, &job.Message, &job.ErrorMsg, &job.FilePath, &job.FileSize,
			&job.RetryCount, &job.Options, &job.StartedAt, &job.CompletedAt,
			&job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// StaleExportJobs retrieves non-terminal jobs not updated within the cutoff,
// for the cleanup sweep to reconcile after worker crashes.
func (r *Repository) StaleExportJobs(ctx context.Context, olderThan time.Duration, limit int) ([]*models.ExportJob, error) {
	query := `
		SELECT id, presentation_id, format, is_ready, progress, phase, message, error_msg,
		       file_path, file_size, retry_count, options, started_at, completed_at,
		       created_at, updated_at
		FROM export_jobs
		WHERE phase NOT IN ('completed', 'error') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		var job models.ExportJob
		err := rows.Scan(
			&job.ID, &job.PresentationID, &job.Format, &job.IsReady, &job.Progress,
			&job.Phase, &job.Message, &job.ErrorMsg, &job.FilePath, &job.FileSize,
			&job.RetryCount, &job.Options, &job.StartedAt, &job.CompletedAt,
			&job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}
