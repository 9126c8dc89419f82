package job

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/event"
)

// Store is the in-memory job registry. Every state-changing operation
// publishes exactly one post-mutation snapshot to the event bus; terminal
// transitions additionally close the job's stream.
type Store struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	tasks map[string]context.CancelFunc
	bus   *event.Bus
}

func NewStore(bus *event.Bus) *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		tasks: make(map[string]context.CancelFunc),
		bus:   bus,
	}
}

// Create allocates a fresh job in the queued state and returns its ID.
func (s *Store) Create() string {
	id := "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	s.mu.Lock()
	s.jobs[id] = &Job{
		ID:        id,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
		Message:   "Job queued",
	}
	snap := *s.jobs[id]
	s.mu.Unlock()

	s.publish(snap)
	return id
}

// Get returns a copy of the job, if present.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns copies of all known jobs.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// Start marks the job running. No-op if the job is absent or already terminal.
func (s *Store) Start(id string) {
	s.mutate(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusRunning
		j.StartedAt = &now
		j.Message = "Job started"
	}, false)
}

// UpdateProgress stores a clamped progress fraction and, when message is
// non-empty, the latest status line. No-op if absent or terminal.
func (s *Store) UpdateProgress(id string, progress float64, message string) {
	s.mutate(id, func(j *Job) {
		j.Progress = clamp(progress)
		if message != "" {
			j.Message = message
		}
	}, false)
}

// Complete marks the job succeeded, forcing progress to 1.0.
func (s *Store) Complete(id string, summary map[string]any) {
	s.mutate(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusSucceeded
		j.CompletedAt = &now
		j.Progress = 1.0
		j.Message = "Job completed successfully"
		j.Summary = summary
	}, true)
}

// Fail marks the job failed with the given error message.
func (s *Store) Fail(id string, errMsg string) {
	s.mutate(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusFailed
		j.CompletedAt = &now
		j.Message = "Job failed"
		j.Error = errMsg
	}, true)
}

// Cancel cancels a queued or running job, stopping its registered task handle.
// Returns false when the job is absent or already terminal.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		s.mu.Unlock()
		return false
	}

	if cancel, ok := s.tasks[id]; ok {
		cancel()
		delete(s.tasks, id)
	}

	now := time.Now().UTC()
	j.Status = StatusCancelled
	j.CompletedAt = &now
	j.Message = "Job cancelled"
	snap := *j
	s.mu.Unlock()

	s.publish(snap)
	s.bus.Close(id)
	log.Info().Str("job_id", id).Msg("job cancelled")
	return true
}

// Restore seeds the store with a reconstructed job record. Existing records
// win; no event is published since the work finished in an earlier process.
func (s *Store) Restore(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return
	}
	rec := j
	s.jobs[j.ID] = &rec
}

// RegisterTask records the cancellation handle for the job's background task.
func (s *Store) RegisterTask(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = cancel
}

// Cleanup removes terminal jobs whose completion is older than maxAge and
// returns the number removed. Non-terminal jobs are never removed.
func (s *Store) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	var removed []string
	for id, j := range s.jobs {
		if j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.jobs, id)
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	for _, id := range removed {
		s.bus.Forget(id)
	}
	return len(removed)
}

// mutate applies fn to the job under the lock, skipping absent or terminal
// jobs, then publishes the post-mutation snapshot. final also closes the
// job's stream.
func (s *Store) mutate(id string, fn func(*Job), final bool) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	fn(j)
	snap := *j
	s.mu.Unlock()

	s.publish(snap)
	if final {
		s.bus.Close(id)
	}
}

func (s *Store) publish(j Job) {
	s.bus.Publish(j.ID, event.StreamEvent{
		Event: "progress",
		Data: event.JobUpdate{
			JobID:     j.ID,
			Status:    string(j.Status),
			Progress:  j.Progress,
			Message:   j.Message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
