package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Sepheus7/dataforge-studio/internal/agents"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/runner"
	"github.com/Sepheus7/dataforge-studio/internal/core/schema"
	"github.com/Sepheus7/dataforge-studio/internal/generate"
)

type GenerationHandler struct {
	store     *job.Store
	runner    *runner.Runner
	agent     *agents.SchemaAgent
	generator *generate.Generator
}

func NewGenerationHandler(store *job.Store, r *runner.Runner, agent *agents.SchemaAgent, gen *generate.Generator) *GenerationHandler {
	return &GenerationHandler{store: store, runner: r, agent: agent, generator: gen}
}

// Shared types

type JobAcceptedBody struct {
	JobID     string `json:"job_id" doc:"Job ID"`
	Status    string `json:"status" doc:"Initial job status"`
	StreamURL string `json:"stream_url" doc:"SSE progress stream path"`
}

type JobAcceptedOutput struct {
	Body JobAcceptedBody
}

type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type JobStatusBody struct {
	JobID       string         `json:"job_id" doc:"Job ID"`
	Status      string         `json:"status" doc:"Job status (queued, running, succeeded, failed, cancelled)"`
	Progress    float64        `json:"progress" doc:"Progress fraction (0-1)"`
	Message     string         `json:"message" doc:"Latest status line"`
	Error       string         `json:"error,omitempty" doc:"Error message if failed"`
	CreatedAt   time.Time      `json:"created_at" doc:"Created timestamp"`
	StartedAt   *time.Time     `json:"started_at,omitempty" doc:"Started timestamp"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" doc:"Completed timestamp"`
	Summary     map[string]any `json:"summary,omitempty" doc:"Result summary for terminal jobs"`
}

func newJobStatusBody(j job.Job) JobStatusBody {
	return JobStatusBody{
		JobID:       j.ID,
		Status:      string(j.Status),
		Progress:    j.Progress,
		Message:     j.Message,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Summary:     j.Summary,
	}
}

type JobStatusOutput struct {
	Body JobStatusBody
}

type GenerateInput struct {
	Body struct {
		Prompt    string         `json:"prompt" minLength:"1" doc:"Natural-language description of the data to generate"`
		SizeHints map[string]int `json:"size_hints,omitempty" doc:"Override row counts per table"`
		Seed      *int64         `json:"seed,omitempty" doc:"Deterministic generation seed"`
	}
}

// Generate infers a schema from the prompt and generates data, as one job.
func (h *GenerationHandler) Generate(ctx context.Context, input *GenerateInput) (*JobAcceptedOutput, error) {
	prompt := input.Body.Prompt
	sizeHints := input.Body.SizeHints
	seed := input.Body.Seed

	id := h.store.Create()
	h.runner.Spawn(id, func(ctx context.Context) error {
		h.store.Start(id)
		s, err := h.agent.InferSchema(ctx, id, prompt, sizeHints, seed)
		if err != nil {
			return fmt.Errorf("schema inference: %w", err)
		}
		summary, err := h.generator.Generate(ctx, id, s)
		if err != nil {
			return err
		}
		h.store.Complete(id, summary)
		return nil
	})

	return accepted(id), nil
}

type GenerateSchemaInput struct {
	Body struct {
		Schema schema.Schema `json:"schema" doc:"Explicit generation schema"`
		Seed   *int64        `json:"seed,omitempty" doc:"Deterministic generation seed"`
	}
}

// GenerateSchema skips inference and generates directly from a caller schema.
func (h *GenerationHandler) GenerateSchema(ctx context.Context, input *GenerateSchemaInput) (*JobAcceptedOutput, error) {
	s := schema.Normalize(input.Body.Schema)
	if input.Body.Seed != nil {
		s.Seed = input.Body.Seed
	}

	result := schema.Validate(s)
	if !result.Valid {
		return nil, huma.Error422UnprocessableEntity(
			fmt.Sprintf("invalid schema: %v", result.Errors))
	}

	id := h.store.Create()
	h.runner.Spawn(id, func(ctx context.Context) error {
		h.store.Start(id)
		summary, err := h.generator.Generate(ctx, id, s)
		if err != nil {
			return err
		}
		h.store.Complete(id, summary)
		return nil
	})

	return accepted(id), nil
}

// Get returns the current job record.
func (h *GenerationHandler) Get(ctx context.Context, input *JobIDInput) (*JobStatusOutput, error) {
	j, ok := h.store.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("job not found")
	}
	return &JobStatusOutput{Body: newJobStatusBody(j)}, nil
}

type CancelBody struct {
	JobID     string `json:"job_id" doc:"Job ID"`
	Cancelled bool   `json:"cancelled" doc:"Whether the job was cancelled by this call"`
}

type CancelOutput struct {
	Body CancelBody
}

// Cancel stops a queued or running job. Cancelling a terminal job is a
// conflict; cancelling an unknown job is a 404.
func (h *GenerationHandler) Cancel(ctx context.Context, input *JobIDInput) (*CancelOutput, error) {
	if h.store.Cancel(input.ID) {
		return &CancelOutput{Body: CancelBody{JobID: input.ID, Cancelled: true}}, nil
	}
	if _, ok := h.store.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("job not found")
	}
	return nil, huma.Error409Conflict("job already finished")
}

func accepted(id string) *JobAcceptedOutput {
	return &JobAcceptedOutput{Body: JobAcceptedBody{
		JobID:     id,
		Status:    string(job.StatusQueued),
		StreamURL: "/v1/generation/" + id + "/stream",
	}}
}
