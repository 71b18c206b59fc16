// Package history records every dispatched stage run in SQLite. The
// dispatcher itself stays stateless; history is observability, not
// coordination.
package history

import (
	"time"

	"github.com/google/uuid"
)

const (
	StageRank      = "rank"
	StageVoiceover = "voiceover"
	StageAssemble  = "assemble"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
)

// StageJob is one recorded stage run.
type StageJob struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id,omitempty"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob creates a running job record for a stage dispatch.
func NewJob(projectID, stage string) *StageJob {
	now := time.Now().UTC()
	return &StageJob{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Stage:     stage,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
