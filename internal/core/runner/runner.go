// Package runner is the background task spawner owned by the composition
// root. It bounds concurrency, registers per-job cancellation handles in the
// job store, and converts task errors and panics into job failure.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
)

type Runner struct {
	store *job.Store
	sem   chan struct{}
	wg    sync.WaitGroup
}

func New(store *job.Store, maxConcurrent int) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		store: store,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

// Spawn runs task on a new goroutine once a concurrency slot is free. The
// task's cancellation handle is registered with the store before the slot is
// acquired, so Cancel works while the task is still waiting to run. A task
// returning an error fails the job unless the job was cancelled first.
func (r *Runner) Spawn(jobID string, task func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	r.store.RegisterTask(jobID, cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("job_id", jobID).Any("panic", p).Msg("task panicked")
				r.store.Fail(jobID, fmt.Sprintf("internal error: %v", p))
			}
		}()

		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return
		}

		if err := task(ctx); err != nil {
			if ctx.Err() != nil {
				// Cancelled: the store already recorded the terminal state.
				return
			}
			log.Error().Err(err).Str("job_id", jobID).Msg("task failed")
			r.store.Fail(jobID, err.Error())
		}
	}()
}

// Wait blocks until all spawned tasks have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
