package handlers

import (
	"context"
	"sort"

	"github.com/Sepheus7/dataforge-studio/internal/core/artifacts"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
)

type DatasetsHandler struct {
	store      *job.Store
	reconciler *artifacts.Reconciler
}

func NewDatasetsHandler(store *job.Store, reconciler *artifacts.Reconciler) *DatasetsHandler {
	return &DatasetsHandler{store: store, reconciler: reconciler}
}

type ListDatasetsInput struct {
	Status string `query:"status" doc:"Filter by job status"`
}

type ListDatasetsBody struct {
	Jobs []JobStatusBody `json:"jobs" doc:"Known jobs, newest first"`
}

type ListDatasetsOutput struct {
	Body ListDatasetsBody
}

// List returns every known job. A reconcile pass runs first so jobs finished
// by a previous process appear alongside live ones.
func (h *DatasetsHandler) List(ctx context.Context, input *ListDatasetsInput) (*ListDatasetsOutput, error) {
	h.reconciler.Reconcile()

	jobs := h.store.List()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	out := make([]JobStatusBody, 0, len(jobs))
	for _, j := range jobs {
		if input.Status != "" && string(j.Status) != input.Status {
			continue
		}
		out = append(out, newJobStatusBody(j))
	}
	return &ListDatasetsOutput{Body: ListDatasetsBody{Jobs: out}}, nil
}
