package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/retry"
	"github.com/Sepheus7/dataforge-studio/internal/llm"
)

// DocumentStructure is the model-proposed outline shared by every document
// in a batch.
type DocumentStructure struct {
	Title    string            `json:"title"`
	Sections []DocumentSection `json:"sections"`
}

type DocumentSection struct {
	Heading     string `json:"heading"`
	Description string `json:"description"`
}

// DocumentAgent produces batches of synthetic JSON documents: the model
// designs the structure once, then each document is filled with faker text.
type DocumentAgent struct {
	llm      llm.Client
	retry    retry.Options
	reporter job.Reporter
	baseDir  string
}

func NewDocumentAgent(client llm.Client, reporter job.Reporter, baseDir string) *DocumentAgent {
	return &DocumentAgent{
		llm:      client,
		retry:    retry.DefaultOptions(),
		reporter: reporter,
		baseDir:  baseDir,
	}
}

// GenerateDocuments writes count documents of docType into the job's artifact
// directory and returns the job summary.
func (a *DocumentAgent) GenerateDocuments(ctx context.Context, jobID, docType, requirements string, count int, seed *int64) (map[string]any, error) {
	if count < 1 {
		count = 1
	}

	a.reporter.UpdateProgress(jobID, 0.05, "Designing document structure")
	structure, err := a.designStructure(ctx, docType, requirements)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}

	jobDir := filepath.Join(a.baseDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}

	var faker *gofakeit.Faker
	if seed != nil {
		faker = gofakeit.New(uint64(*seed))
	} else {
		faker = gofakeit.New(0)
	}

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.reporter.UpdateProgress(jobID, 0.25+0.70*float64(i)/float64(count),
			fmt.Sprintf("Writing document %d/%d", i+1, count))

		doc := a.renderDocument(structure, docType, i, faker)
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}

		name := fmt.Sprintf("%s_%03d.json", docType, i+1)
		if err := os.WriteFile(filepath.Join(jobDir, name), raw, 0o644); err != nil {
			return nil, fmt.Errorf("write document %d: %w", i, err)
		}
		names = append(names, name)
	}

	log.Info().Str("job_id", jobID).Int("count", count).Str("doc_type", docType).
		Msg("document batch complete")

	return map[string]any{
		"doc_type":  docType,
		"count":     count,
		"documents": names,
		"sections":  len(structure.Sections),
	}, nil
}

func (a *DocumentAgent) designStructure(ctx context.Context, docType, requirements string) (DocumentStructure, error) {
	const system = "You are a technical writer who designs document templates."
	req := fmt.Sprintf(`Design a section outline for synthetic documents of this type:

Document type: %q
Requirements: %q

Return ONLY a JSON object:
{"title": "template title", "sections": [{"heading": "...", "description": "what this section covers"}]}`,
		docType, requirements)

	content, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, system, req)
	}, a.retry)
	if err != nil {
		return DocumentStructure{}, err
	}

	var structure DocumentStructure
	if err := json.Unmarshal([]byte(extractJSON(content)), &structure); err != nil || len(structure.Sections) == 0 {
		log.Warn().Err(err).Str("doc_type", docType).Msg("could not parse structure, using fallback")
		return DocumentStructure{
			Title: docType,
			Sections: []DocumentSection{
				{Heading: "Summary", Description: "overview"},
				{Heading: "Details", Description: "body"},
			},
		}, nil
	}
	return structure, nil
}

func (a *DocumentAgent) renderDocument(structure DocumentStructure, docType string, index int, faker *gofakeit.Faker) map[string]any {
	sections := make([]map[string]string, 0, len(structure.Sections))
	for _, s := range structure.Sections {
		sections = append(sections, map[string]string{
			"heading": s.Heading,
			"body":    faker.Paragraph(1, 3, 12, " "),
		})
	}
	return map[string]any{
		"doc_type": docType,
		"title":    fmt.Sprintf("%s #%d", structure.Title, index+1),
		"author":   faker.Name(),
		"sections": sections,
	}
}
