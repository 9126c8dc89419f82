package handlers

import (
	"context"
	"fmt"

	"github.com/Sepheus7/dataforge-studio/internal/agents"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/runner"
)

type DocumentsHandler struct {
	store  *job.Store
	runner *runner.Runner
	agent  *agents.DocumentAgent
}

func NewDocumentsHandler(store *job.Store, r *runner.Runner, agent *agents.DocumentAgent) *DocumentsHandler {
	return &DocumentsHandler{store: store, runner: r, agent: agent}
}

type GenerateDocumentsInput struct {
	Body struct {
		DocType      string `json:"doc_type" minLength:"1" doc:"Kind of document to generate (invoice, report, ...)"`
		Requirements string `json:"requirements,omitempty" doc:"Free-form structure requirements"`
		Count        int    `json:"count,omitempty" minimum:"1" maximum:"500" default:"10" doc:"Number of documents"`
		Seed         *int64 `json:"seed,omitempty" doc:"Deterministic generation seed"`
	}
}

// Generate produces a batch of synthetic documents as one job.
func (h *DocumentsHandler) Generate(ctx context.Context, input *GenerateDocumentsInput) (*JobAcceptedOutput, error) {
	docType := input.Body.DocType
	requirements := input.Body.Requirements
	count := input.Body.Count
	seed := input.Body.Seed

	id := h.store.Create()
	h.runner.Spawn(id, func(ctx context.Context) error {
		h.store.Start(id)
		summary, err := h.agent.GenerateDocuments(ctx, id, docType, requirements, count, seed)
		if err != nil {
			return fmt.Errorf("document generation: %w", err)
		}
		h.store.Complete(id, summary)
		return nil
	})

	return accepted(id), nil
}
