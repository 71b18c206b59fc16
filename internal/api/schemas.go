package api

import (
	"time"

	"github.com/docuforge/docuforge-bridge/internal/history"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// ErrorResponse is the uniform failure shape for every stage: a message, a
// machine-readable code, and the external tool's captured stderr when one
// was involved.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

type JobResponse struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id,omitempty"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

func JobToResponse(j *history.StageJob) JobResponse {
	return JobResponse{
		ID:         j.ID,
		ProjectID:  j.ProjectID,
		Stage:      j.Stage,
		Status:     j.Status,
		Error:      j.Error,
		DurationMs: j.DurationMs,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}
