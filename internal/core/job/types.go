package job

import "time"

// Status is the lifecycle state of a job. Transitions are monotonic:
// queued -> running -> succeeded | failed | cancelled. Nothing leaves a
// terminal state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Job is one unit of client-requested work. Owned exclusively by the Store;
// callers only ever see copies.
type Job struct {
	ID          string         `json:"job_id"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Progress    float64        `json:"progress"`
	Message     string         `json:"message,omitempty"`
	Error       string         `json:"error,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
}
