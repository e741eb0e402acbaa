package models

import "time"

// TranscriptionJob is one end-to-end request to turn a URL into text.
// The row is created at submission time and mutated only by the worker
// that processes it, except for the notes/requirements fields which may
// be filled in after completion by the on-demand generators.
type TranscriptionJob struct {
	ID          string `json:"id"`
	SourceURL   string `json:"source_url"`
	OwnerID     string `json:"owner_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Status      string `json:"status"`

	StepNumber int    `json:"step_number"`
	TotalSteps int    `json:"total_steps"`
	Percentage int    `json:"percentage"`
	Details    string `json:"details,omitempty"`

	Title           string  `json:"title,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`

	Transcript      string `json:"transcript,omitempty"`
	Notes           string `json:"notes,omitempty"`
	RequirementsDoc string `json:"requirements_doc,omitempty"`
	AudioPath       string `json:"audio_path,omitempty"`

	NotesRequested bool   `json:"notes_requested,omitempty"`
	ProcessingMs   int64  `json:"processing_ms,omitempty"`
	Error          string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// IsTerminal reports whether the job reached a final state.
func (j *TranscriptionJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// IsAnonymous reports whether the job was created without an account.
func (j *TranscriptionJob) IsAnonymous() bool {
	return j.OwnerID == ""
}

// Progress is the nested progress view exposed to polling clients.
type Progress struct {
	StepNumber int    `json:"step_number"`
	TotalSteps int    `json:"total_steps"`
	Percentage int    `json:"percentage"`
	Details    string `json:"details,omitempty"`
}

// JobView is the closed shape returned to API consumers.
type JobView struct {
	ID              string     `json:"id"`
	SourceURL       string     `json:"source_url"`
	Status          string     `json:"status"`
	Progress        Progress   `json:"progress"`
	Title           string     `json:"title,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty"`
	Transcript      string     `json:"transcript,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RequirementsDoc string     `json:"requirements_doc,omitempty"`
	ProcessingMs    int64      `json:"processing_ms,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// View converts the stored job into its API shape.
func (j *TranscriptionJob) View() JobView {
	return JobView{
		ID:        j.ID,
		SourceURL: j.SourceURL,
		Status:    j.Status,
		Progress: Progress{
			StepNumber: j.StepNumber,
			TotalSteps: j.TotalSteps,
			Percentage: j.Percentage,
			Details:    j.Details,
		},
		Title:           j.Title,
		DurationSeconds: j.DurationSeconds,
		ThumbnailURL:    j.ThumbnailURL,
		Transcript:      j.Transcript,
		Notes:           j.Notes,
		RequirementsDoc: j.RequirementsDoc,
		ProcessingMs:    j.ProcessingMs,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt,
		CompletedAt:     j.CompletedAt,
	}
}
