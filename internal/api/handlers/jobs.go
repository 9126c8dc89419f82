package handlers

import (
	"context"
	"time"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
)

type JobsHandler struct {
	store         *job.Store
	defaultMaxAge time.Duration
}

func NewJobsHandler(store *job.Store, defaultMaxAge time.Duration) *JobsHandler {
	return &JobsHandler{store: store, defaultMaxAge: defaultMaxAge}
}

type CleanupInput struct {
	Body struct {
		MaxAgeHours float64 `json:"max_age_hours,omitempty" minimum:"0" doc:"Retention window; server default when omitted"`
	}
}

type CleanupBody struct {
	Removed int `json:"removed" doc:"Number of job records removed"`
}

type CleanupOutput struct {
	Body CleanupBody
}

// Cleanup removes terminal job records older than the retention window.
// Running and queued jobs are never touched.
func (h *JobsHandler) Cleanup(ctx context.Context, input *CleanupInput) (*CleanupOutput, error) {
	maxAge := h.defaultMaxAge
	if input.Body.MaxAgeHours > 0 {
		maxAge = time.Duration(input.Body.MaxAgeHours * float64(time.Hour))
	}
	removed := h.store.Cleanup(maxAge)
	return &CleanupOutput{Body: CleanupBody{Removed: removed}}, nil
}
