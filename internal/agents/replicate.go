package agents

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/retry"
	"github.com/Sepheus7/dataforge-studio/internal/llm"
	"github.com/Sepheus7/dataforge-studio/internal/replicate"
)

// ReplicationStrategy is the model's advice on how to expand the sample.
type ReplicationStrategy struct {
	Approach  string   `json:"approach"`
	Notes     string   `json:"notes"`
	Preserve  []string `json:"preserve_columns"`
	Reasoning string   `json:"reasoning"`
}

// ReplicationAgent expands an uploaded CSV sample into a synthetic dataset:
// profile -> PII scan -> model strategy -> bootstrap sample -> write.
type ReplicationAgent struct {
	llm         llm.Client
	retry       retry.Options
	reporter    job.Reporter
	datasetsDir string
}

func NewReplicationAgent(client llm.Client, reporter job.Reporter, datasetsDir string) *ReplicationAgent {
	return &ReplicationAgent{
		llm:         client,
		retry:       retry.DefaultOptions(),
		reporter:    reporter,
		datasetsDir: datasetsDir,
	}
}

// Replicate reads the uploaded source, generates targetRows synthetic rows,
// and writes the result under a fresh ds_ dataset id. It returns the job
// summary.
func (a *ReplicationAgent) Replicate(ctx context.Context, jobID, sourcePath string, targetRows int, seed *int64) (map[string]any, error) {
	a.reporter.UpdateProgress(jobID, 0.05, "Profiling source data")

	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	profile, header, records, err := replicate.ProfileCSV(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("profile source: %w", err)
	}

	a.reporter.UpdateProgress(jobID, 0.25, "Scanning for personal data")
	detector := replicate.NewRegexDetector()
	piiColumns := detector.Detect(profile, records)
	if len(piiColumns) > 0 {
		log.Info().Str("job_id", jobID).Strs("columns", piiColumns).
			Msg("PII columns will be replaced with fakes")
	}

	a.reporter.UpdateProgress(jobID, 0.40, "Choosing replication strategy")
	strategy, err := a.chooseStrategy(ctx, profile, piiColumns)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	if targetRows < 1 {
		targetRows = profile.Rows * 10
	}

	a.reporter.UpdateProgress(jobID, 0.60,
		fmt.Sprintf("Sampling %d rows", targetRows))
	var sampleSeed int64
	if seed != nil {
		sampleSeed = *seed
	} else {
		sampleSeed = time.Now().UnixNano()
	}
	sampler := replicate.NewBootstrapSampler(sampleSeed, piiColumns)
	rows := sampler.Sample(records, profile, targetRows)

	a.reporter.UpdateProgress(jobID, 0.90, "Writing dataset")
	datasetID := "ds_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	dir := filepath.Join(a.datasetsDir, datasetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	if err := writeCSV(filepath.Join(dir, "data.csv"), header, rows); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}

	meta := map[string]any{
		"dataset_id":  datasetID,
		"source_rows": profile.Rows,
		"rows":        len(rows),
		"columns":     len(header),
		"pii_columns": piiColumns,
		"strategy":    strategy,
		"profile":     profile,
		"created_at":  time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "profile.json"), raw, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return map[string]any{
		"dataset_id":  datasetID,
		"rows":        len(rows),
		"columns":     len(header),
		"pii_columns": piiColumns,
		"approach":    strategy.Approach,
	}, nil
}

func (a *ReplicationAgent) chooseStrategy(ctx context.Context, profile replicate.Profile, piiColumns []string) (ReplicationStrategy, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return ReplicationStrategy{}, err
	}

	const system = "You are a synthetic data expert who designs replication strategies."
	req := fmt.Sprintf(`Given this column profile of a source dataset, advise how to
replicate it synthetically while preserving its statistical shape.

Profile: %s
PII columns (will be replaced with fakes): %s

Return ONLY a JSON object:
{"approach": "bootstrap|parametric", "preserve_columns": ["..."], "notes": "...", "reasoning": "..."}`,
		profileJSON, strings.Join(piiColumns, ", "))

	content, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, system, req)
	}, a.retry)
	if err != nil {
		return ReplicationStrategy{}, err
	}

	var strategy ReplicationStrategy
	if err := json.Unmarshal([]byte(extractJSON(content)), &strategy); err != nil || strategy.Approach == "" {
		log.Warn().Err(err).Msg("could not parse strategy, defaulting to bootstrap")
		return ReplicationStrategy{Approach: "bootstrap", Notes: "default"}, nil
	}
	return strategy, nil
}

// writeCSV quotes properly: cells originate from user uploads and may carry
// commas, quotes, or newlines.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
