// Package agents holds the model-driven pipelines: schema inference,
// document structuring, and dataset replication strategy. Each individually
// fallible model call is wrapped in backoff retry; pipeline-level errors
// short-circuit to job failure.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/retry"
	"github.com/Sepheus7/dataforge-studio/internal/core/schema"
	"github.com/Sepheus7/dataforge-studio/internal/llm"
)

// Inference progress schedule. Generation owns 0.95-1.00, so inference stays
// strictly below it and a client UI never sees progress regress.
const (
	progressAnalyzeStart = 0.05
	progressAnalyzeDone  = 0.25
	progressDraftDone    = 0.70
	progressValidate     = 0.70
	progressFinalize     = 0.90
)

// maxRedrafts caps validate->draft cycles. After the cap the schema is
// finalized even if still invalid; callers inspect validation output
// themselves when strictness matters.
const maxRedrafts = 3

// SchemaAgent infers multi-table schemas from natural-language prompts
// through an analyze -> draft -> validate -> finalize state machine.
type SchemaAgent struct {
	llm      llm.Client
	retry    retry.Options
	reporter job.Reporter
}

func NewSchemaAgent(client llm.Client, reporter job.Reporter) *SchemaAgent {
	return &SchemaAgent{
		llm:      client,
		retry:    retry.DefaultOptions(),
		reporter: reporter,
	}
}

// InferSchema runs the full inference pipeline for jobID, reporting progress
// at every phase boundary. sizeHints and seed override the finalized schema.
func (a *SchemaAgent) InferSchema(ctx context.Context, jobID, prompt string, sizeHints map[string]int, seed *int64) (schema.Schema, error) {
	a.reporter.UpdateProgress(jobID, progressAnalyzeStart, "Analyzing prompt")

	analysis, err := a.analyze(ctx, prompt)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("analysis: %w", err)
	}
	a.reporter.UpdateProgress(jobID, progressAnalyzeDone,
		fmt.Sprintf("Analysis complete: found %d entities", len(analysis.Entities)))

	var draft schema.Schema
	iteration := 0
	for {
		draft, err = a.draft(ctx, jobID, analysis, prompt)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("draft: %w", err)
		}

		a.reporter.UpdateProgress(jobID, progressValidate, "Validating schema")
		result := schema.Validate(draft)
		if result.Valid {
			break
		}
		if iteration >= maxRedrafts {
			log.Warn().Str("job_id", jobID).Strs("errors", result.Errors).
				Msg("validation still failing, finalizing anyway")
			break
		}
		iteration++
		log.Info().Str("job_id", jobID).Int("iteration", iteration).
			Strs("errors", result.Errors).Msg("schema invalid, redrafting")
	}

	a.reporter.UpdateProgress(jobID, progressFinalize, "Finalizing schema")
	final := schema.Normalize(draft)

	if seed != nil {
		final.Seed = seed
	}
	for i := range final.Tables {
		if rows, ok := sizeHints[final.Tables[i].Name]; ok {
			final.Tables[i].Rows = schema.FlexInt(rows)
		}
	}
	return final, nil
}

func (a *SchemaAgent) analyze(ctx context.Context, prompt string) (schema.Analysis, error) {
	const system = "You are a data modeling expert who reasons about database schemas."
	req := fmt.Sprintf(`Analyze this data generation request and extract:

1. ENTITIES: what tables/entities are needed
2. RELATIONSHIPS: how the entities relate (parent/child, foreign keys)
3. DOMAIN: the business domain (ecommerce, healthcare, finance, ...)
4. ROW ESTIMATES: default to 100 rows per table unless the request asks for more

Request: %q

Return ONLY a JSON object:
{
  "entities": ["entity1", "entity2"],
  "relationships": [{"parent_table": "entity2", "child_table": "entity1", "foreign_key": "entity2_id", "reference_key": "entity2_id"}],
  "domain": "domain_name",
  "size_hints": {"entity1": 100, "entity2": 100},
  "reasoning": "brief explanation"
}`, prompt)

	content, err := a.complete(ctx, system, req)
	if err != nil {
		return schema.Analysis{}, err
	}

	var analysis schema.Analysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &analysis); err != nil || len(analysis.Entities) == 0 {
		// Unparseable analysis degrades to a single generic table rather than
		// failing the job.
		log.Warn().Err(err).Msg("could not parse analysis, using fallback")
		return schema.Analysis{
			Entities:  []string{"data"},
			Domain:    "generic",
			SizeHints: map[string]int{"data": 100},
			Reasoning: "failed to parse model response",
		}, nil
	}
	return analysis, nil
}

func (a *SchemaAgent) draft(ctx context.Context, jobID string, analysis schema.Analysis, prompt string) (schema.Schema, error) {
	tables := make([]schema.Table, 0, len(analysis.Entities))
	span := progressDraftDone - progressAnalyzeDone

	for i, entity := range analysis.Entities {
		a.reporter.UpdateProgress(jobID,
			progressAnalyzeDone+span*float64(i)/float64(len(analysis.Entities)),
			fmt.Sprintf("Drafting table: %s", entity))

		columns, err := a.suggestColumns(ctx, entity, analysis.Domain, prompt)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("columns for %s: %w", entity, err)
		}

		rows := analysis.SizeHints[entity]
		if rows == 0 {
			rows = 1000
		}

		tables = append(tables, schema.Table{
			Name:       entity,
			Rows:       schema.FlexInt(rows),
			PrimaryKey: schema.FlexString(primaryKeyFor(entity, columns)),
			Columns:    columns,
		})
	}

	relationships, err := a.inferRelationships(ctx, analysis.Entities, analysis.Domain)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("relationships: %w", err)
	}
	mergeForeignKeys(tables, relationships)

	return schema.Schema{Tables: tables}, nil
}

func (a *SchemaAgent) suggestColumns(ctx context.Context, entity, domain, context_ string) ([]schema.Column, error) {
	const system = "You are a database schema expert who designs appropriate table structures."
	req := fmt.Sprintf(`Design columns for this entity:

Entity: %q
Domain: %q
Context: %q

Available data types: uuid, int, float, string, email, first_name, last_name,
date, datetime, boolean, categorical.

Return ONLY a JSON array of column objects:
[{"name": "column_name", "type": "data_type", "unique": false, "categories": ["only", "for", "categorical"]}]`,
		entity, domain, context_)

	content, err := a.complete(ctx, system, req)
	if err != nil {
		return nil, err
	}

	var columns []schema.Column
	if err := json.Unmarshal([]byte(extractJSON(content)), &columns); err != nil || len(columns) == 0 {
		log.Warn().Err(err).Str("entity", entity).Msg("could not parse columns, using fallback")
		return []schema.Column{
			{Name: strings.TrimSuffix(entity, "s") + "_id", Type: "uuid", Unique: true},
			{Name: "name", Type: "string"},
			{Name: "created_at", Type: "datetime"},
		}, nil
	}
	return columns, nil
}

func (a *SchemaAgent) inferRelationships(ctx context.Context, entities []string, domain string) ([]schema.Relationship, error) {
	if len(entities) < 2 {
		return nil, nil
	}

	const system = "You are a database design expert who understands entity relationships."
	req := fmt.Sprintf(`Determine logical foreign-key relationships between these tables:

Tables: %s
Domain: %s

Child tables reference parent tables (orders reference customers). Return
ONLY a JSON array, or [] if none apply:
[{"parent_table": "...", "child_table": "...", "foreign_key": "column_in_child", "reference_key": "column_in_parent", "cardinality": "many_to_one"}]`,
		strings.Join(entities, ", "), domain)

	content, err := a.complete(ctx, system, req)
	if err != nil {
		return nil, err
	}

	var relationships []schema.Relationship
	if err := json.Unmarshal([]byte(extractJSON(content)), &relationships); err != nil {
		return nil, nil
	}
	return relationships, nil
}

// complete wraps one model call in backoff retry.
func (a *SchemaAgent) complete(ctx context.Context, system, prompt string) (string, error) {
	return retry.Do(ctx, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, system, prompt)
	}, a.retry)
}

// primaryKeyFor picks the unique id-like column, falling back to the
// singularized entity name.
func primaryKeyFor(entity string, columns []schema.Column) string {
	for _, c := range columns {
		if c.Unique && strings.Contains(strings.ToLower(c.Name), "id") {
			return c.Name
		}
	}
	return strings.TrimSuffix(entity, "s") + "_id"
}

// mergeForeignKeys inserts FK declarations into child tables, adding the FK
// column itself when the draft does not already carry it.
func mergeForeignKeys(tables []schema.Table, relationships []schema.Relationship) {
	for _, rel := range relationships {
		for i := range tables {
			if tables[i].Name != rel.ChildTable {
				continue
			}
			hasColumn := false
			for _, c := range tables[i].Columns {
				if c.Name == rel.ForeignKey {
					hasColumn = true
					break
				}
			}
			if !hasColumn {
				tables[i].Columns = append(tables[i].Columns, schema.Column{
					Name: rel.ForeignKey,
					Type: "uuid",
				})
			}
			tables[i].ForeignKeys = append(tables[i].ForeignKeys, schema.ForeignKey{
				Column:    rel.ForeignKey,
				RefTable:  rel.ParentTable,
				RefColumn: rel.ReferenceKey,
			})
		}
	}
}
