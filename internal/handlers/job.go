package handlers

import (
	"net/http"
	"strconv"

	"github.com/kukshaus/transcribe-sub000/internal/transcription"
	"github.com/labstack/echo/v4"
)

// JobHandler exposes the transcription job API.
type JobHandler struct {
	service *transcription.Service
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(service *transcription.Service) *JobHandler {
	return &JobHandler{service: service}
}

type createJobRequest struct {
	URL       string `json:"url"`
	WithNotes bool   `json:"with_notes"`
}

// Create submits a new transcription job.
// POST /api/jobs
func (h *JobHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	job, err := h.service.CreateJob(ctx, transcription.CreateJobRequest{
		URL:       req.URL,
		Caller:    callerFrom(c),
		WithNotes: req.WithNotes,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// Get returns one job for polling.
// GET /api/jobs/:id
func (h *JobHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.service.GetJob(ctx, c.Param("id"), callerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// List returns the caller's jobs.
// GET /api/jobs
func (h *JobHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	views, err := h.service.ListJobs(ctx, callerFrom(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// GenerateNotes generates notes for a completed job.
// POST /api/jobs/:id/notes
func (h *JobHandler) GenerateNotes(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.service.GenerateNotes(ctx, c.Param("id"), callerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GenerateRequirementsDoc drafts a requirements document from a job's
// notes.
// POST /api/jobs/:id/requirements
func (h *JobHandler) GenerateRequirementsDoc(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.service.GenerateRequirementsDoc(ctx, c.Param("id"), callerFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
