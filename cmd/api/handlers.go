package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echodeck/echodeck/internal/cache"
	"github.com/echodeck/echodeck/internal/database"
	"github.com/echodeck/echodeck/internal/metrics"
	"github.com/echodeck/echodeck/pkg/models"
)

// healthCheck reports API liveness and database reachability
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// uploadAudio accepts a source audio recording and registers a presentation
// shell for it. Deck generation from the audio happens out of band, so the
// response is a 202 with the new presentation in processing state.
func (api *API) uploadAudio(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = file.Filename
	}
	style := c.PostForm("style")
	if style == "" {
		style = models.StyleProfessional
	}
	if !models.ValidStyle(style) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown style %q", style)})
		return
	}

	presentationID := uuid.New().String()

	tempPath := fmt.Sprintf("/tmp/%s", uuid.New().String())
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}
	defer os.Remove(tempPath)

	storageKey := fmt.Sprintf("audio/%s/%s", presentationID, file.Filename)
	if err := api.storage.UploadFile(c.Request.Context(), storageKey, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload: %v", err)})
		return
	}

	presentation := &models.Presentation{
		ID:     presentationID,
		Title:  title,
		Style:  style,
		Status: models.PresentationStatusProcessing,
	}

	if err := api.repo.CreatePresentation(c.Request.Context(), presentation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create presentation: %v", err)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"presentation_id": presentationID,
		"status":          presentation.Status,
		"audio_ref":       storageKey,
	})
}

type slideRequest struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	SpeakerNotes string   `json:"speaker_notes"`
}

type createPresentationRequest struct {
	Title      string         `json:"title" binding:"required"`
	Style      string         `json:"style"`
	Transcript string         `json:"transcript"`
	Slides     []slideRequest `json:"slides" binding:"required,min=1"`
}

// createPresentation registers a presentation with its slides in one shot
func (api *API) createPresentation(c *gin.Context) {
	var req createPresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	style := req.Style
	if style == "" {
		style = models.StyleProfessional
	}
	if !models.ValidStyle(style) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown style %q", style)})
		return
	}

	presentation := &models.Presentation{
		ID:         uuid.New().String(),
		Title:      req.Title,
		Style:      style,
		Transcript: req.Transcript,
		Status:     models.PresentationStatusCompleted,
	}

	for i, s := range req.Slides {
		presentation.Slides = append(presentation.Slides, &models.Slide{
			ID:             uuid.New().String(),
			PresentationID: presentation.ID,
			Position:       i,
			Title:          s.Title,
			Bullets:        models.StringList(s.Bullets),
			SpeakerNotes:   s.SpeakerNotes,
		})
	}

	if err := api.repo.CreatePresentation(c.Request.Context(), presentation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create presentation: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, presentation)
}

// getPresentation returns a presentation with its slides
func (api *API) getPresentation(c *gin.Context) {
	presentation, err := api.repo.GetPresentation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Presentation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, presentation)
}

// listPresentations returns a page of presentations
func (api *API) listPresentations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	presentations, err := api.repo.ListPresentations(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"presentations": presentations,
		"limit":         limit,
		"offset":        offset,
	})
}

// updateSlide edits one slide's content before export
func (api *API) updateSlide(c *gin.Context) {
	slideID := c.Param("slideId")

	slide, err := api.repo.GetSlide(c.Request.Context(), slideID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Slide not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if slide.PresentationID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Slide not found in presentation"})
		return
	}

	var req slideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slide.Title = req.Title
	slide.Bullets = models.StringList(req.Bullets)
	slide.SpeakerNotes = req.SpeakerNotes

	if err := api.repo.UpdateSlide(c.Request.Context(), slide); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update slide: %v", err)})
		return
	}

	c.JSON(http.StatusOK, slide)
}

type createExportRequest struct {
	Format     string                 `json:"format"`
	Quality    string                 `json:"quality"`
	Voice      string                 `json:"voice"`
	TTSModel   string                 `json:"tts_model"`
	Transition *models.TransitionSpec `json:"transition"`
}

// createExport validates an export request, persists the job, and enqueues
// it for a worker. Responds 202 with the job ID to poll.
func (api *API) createExport(c *gin.Context) {
	presentationID := c.Param("id")

	presentation, err := api.repo.GetPresentation(c.Request.Context(), presentationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Presentation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(presentation.Slides) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Presentation has no slides to export"})
		return
	}

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := req.Format
	if format == "" {
		format = models.FormatMP4
	}
	if !models.ValidExportFormat(format) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported format %q", format)})
		return
	}
	if req.Quality != "" && !models.ValidQuality(req.Quality) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown quality %q", req.Quality)})
		return
	}
	if req.Voice != "" && !models.ValidVoice(req.Voice) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown voice %q", req.Voice)})
		return
	}

	var transition models.TransitionSpec
	if req.Transition != nil {
		transition = *req.Transition
		switch transition.Type {
		case "", models.TransitionNone, models.TransitionCrossfade, models.TransitionFadeBlack,
			models.TransitionSlide, models.TransitionWipe:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown transition type %q", transition.Type)})
			return
		}
		if transition.Duration < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Transition duration must not be negative"})
			return
		}
	}

	job := &models.ExportJob{
		ID:             uuid.New().String(),
		PresentationID: presentationID,
		Format:         format,
		Phase:          models.PhaseInitializing,
		Options: models.ExportOptions{
			Quality:    req.Quality,
			Voice:      req.Voice,
			TTSModel:   req.TTSModel,
			Transition: transition,
			Format:     format,
		},
	}

	if err := api.repo.CreateExportJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create export job: %v", err)})
		return
	}

	if err := api.queue.PublishExportJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to queue export job: %v", err)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"phase":  job.Phase,
	})
}

// listExports returns all export jobs of a presentation
func (api *API) listExports(c *gin.Context) {
	jobs, err := api.repo.GetExportJobsByPresentationID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": jobs})
}

// getExportStatus serves the polling endpoint, cache first
func (api *API) getExportStatus(c *gin.Context) {
	jobID := c.Param("id")

	status, err := api.cache.GetJobStatus(c.Request.Context(), jobID)
	if err == nil && status != nil {
		metrics.RecordCacheAccess("job_status", true)
		c.JSON(http.StatusOK, gin.H{
			"job_id":   jobID,
			"progress": status.Progress,
			"phase":    status.Phase,
			"message":  status.Message,
			"error":    status.Error,
			"is_ready": status.IsReady,
		})
		return
	}
	metrics.RecordCacheAccess("job_status", false)

	job, err := api.repo.GetExportJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Backfill the cache for subsequent polls
	_ = api.cache.SetJobStatus(c.Request.Context(), jobID, &cache.JobStatus{
		Progress: job.Progress,
		Phase:    job.Phase,
		Message:  job.Message,
		Error:    job.ErrorMsg,
		IsReady:  job.IsReady,
	}, time.Hour)

	c.JSON(http.StatusOK, gin.H{
		"job_id":   job.ID,
		"progress": job.Progress,
		"phase":    job.Phase,
		"message":  job.Message,
		"error":    job.ErrorMsg,
		"is_ready": job.IsReady,
	})
}

// downloadExport hands out a presigned URL for a finished artifact
func (api *API) downloadExport(c *gin.Context) {
	jobID := c.Param("id")

	job, err := api.repo.GetExportJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !job.IsReady || job.FilePath == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Export is not ready for download",
			"phase": job.Phase,
		})
		return
	}

	if url, err := api.cache.GetDownloadURL(c.Request.Context(), jobID); err == nil && url != "" {
		metrics.RecordCacheAccess("download_url", true)
		c.JSON(http.StatusOK, gin.H{"url": url, "file_size": job.FileSize})
		return
	}
	metrics.RecordCacheAccess("download_url", false)

	url, err := api.storage.GetURL(c.Request.Context(), job.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to generate download URL: %v", err)})
		return
	}

	// Cache for half the presign window so handed-out URLs stay usable
	_ = api.cache.SetDownloadURL(c.Request.Context(), jobID, url, 30*time.Minute)

	c.JSON(http.StatusOK, gin.H{"url": url, "file_size": job.FileSize})
}
