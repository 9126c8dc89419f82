package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/Sepheus7/dataforge-studio/internal/agents"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/runner"
)

type ReplicationHandler struct {
	store       *job.Store
	runner      *runner.Runner
	agent       *agents.ReplicationAgent
	datasetsDir string
}

func NewReplicationHandler(store *job.Store, r *runner.Runner, agent *agents.ReplicationAgent, datasetsDir string) *ReplicationHandler {
	return &ReplicationHandler{store: store, runner: r, agent: agent, datasetsDir: datasetsDir}
}

type UploadInput struct {
	RawBody []byte `contentType:"text/csv" doc:"CSV source data, header row first"`
}

type UploadBody struct {
	DatasetID string `json:"dataset_id" doc:"Uploaded dataset ID"`
	SizeBytes int    `json:"size_bytes" doc:"Uploaded payload size"`
}

type UploadOutput struct {
	Body UploadBody
}

// Upload stores a CSV sample and returns its dataset ID for later replication.
func (h *ReplicationHandler) Upload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error422UnprocessableEntity("empty upload")
	}

	id := "ds_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	dir := filepath.Join(h.datasetsDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if err := os.WriteFile(filepath.Join(dir, id+".csv"), input.RawBody, 0o644); err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}

	return &UploadOutput{Body: UploadBody{DatasetID: id, SizeBytes: len(input.RawBody)}}, nil
}

type ReplicateInput struct {
	DatasetID string `path:"dataset_id" doc:"Uploaded dataset ID"`
	Body      struct {
		TargetRows int    `json:"target_rows,omitempty" minimum:"0" doc:"Synthetic rows to produce; 10x source when omitted"`
		Seed       *int64 `json:"seed,omitempty" doc:"Deterministic sampling seed"`
	}
}

// Replicate expands an uploaded sample into a synthetic dataset as one job.
func (h *ReplicationHandler) Replicate(ctx context.Context, input *ReplicateInput) (*JobAcceptedOutput, error) {
	sourcePath := filepath.Join(h.datasetsDir, "uploads", input.DatasetID+".csv")
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, huma.Error404NotFound("dataset not found")
	}

	targetRows := input.Body.TargetRows
	seed := input.Body.Seed

	id := h.store.Create()
	h.runner.Spawn(id, func(ctx context.Context) error {
		h.store.Start(id)
		summary, err := h.agent.Replicate(ctx, id, sourcePath, targetRows, seed)
		if err != nil {
			return fmt.Errorf("replication: %w", err)
		}
		h.store.Complete(id, summary)
		return nil
	})

	return accepted(id), nil
}
