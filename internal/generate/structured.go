// Package generate streams synthetic tabular data to per-job artifact
// directories, preserving declared foreign-key relationships across tables.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/schema"
)

// TableSummary describes one generated table in a job summary.
type TableSummary struct {
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	SizeBytes int64  `json:"size_bytes"`
}

// Generator writes CSV artifacts for a schema. Tables are generated in
// declared order so foreign-key pools are populated before they are drawn
// from. Generation occupies the 0.95-1.00 progress range; schema inference
// owns everything below it.
type Generator struct {
	baseDir  string
	maxRows  int
	reporter job.Reporter
}

func NewGenerator(baseDir string, maxRows int, reporter job.Reporter) *Generator {
	return &Generator{baseDir: baseDir, maxRows: maxRows, reporter: reporter}
}

// JobDir returns (and creates) the artifact directory for a job.
func (g *Generator) JobDir(jobID string) (string, error) {
	dir := filepath.Join(g.baseDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// ArtifactPath returns the path of a generated table file, or "" if absent.
func (g *Generator) ArtifactPath(jobID, table, format string) string {
	p := filepath.Join(g.baseDir, jobID, table+"."+format)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// Generate produces every table declared in s and returns the job summary.
// Any write error aborts the remaining tables; partial files stay on disk.
func (g *Generator) Generate(ctx context.Context, jobID string, s schema.Schema) (map[string]any, error) {
	jobDir, err := g.JobDir(jobID)
	if err != nil {
		return nil, err
	}

	var seed int64
	if s.Seed != nil {
		seed = *s.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	faker := gofakeit.New(uint64(seed))

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, "schema.json"), raw, 0o644); err != nil {
		return nil, fmt.Errorf("write schema descriptor: %w", err)
	}

	total := len(s.Tables)
	summaries := make([]TableSummary, 0, total)
	pkValues := make(map[string][]string)

	for i, t := range s.Tables {
		g.reporter.UpdateProgress(jobID,
			0.95+0.05*float64(i)/float64(total),
			fmt.Sprintf("Generating table %d/%d: %s", i+1, total, t.Name))

		summary, err := g.generateTable(ctx, jobID, jobDir, t, faker, rng, pkValues, i, total)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		summaries = append(summaries, summary)
	}

	totalRows, totalCols := 0, 0
	for _, s := range summaries {
		totalRows += s.Rows
		totalCols += s.Columns
	}
	log.Info().Str("job_id", jobID).Int("tables", total).Int("rows", totalRows).Msg("generation complete")

	return map[string]any{
		"tables":        summaries,
		"total_rows":    totalRows,
		"total_columns": totalCols,
	}, nil
}

func (g *Generator) generateTable(
	ctx context.Context,
	jobID, jobDir string,
	t schema.Table,
	faker *gofakeit.Faker,
	rng *rand.Rand,
	pkValues map[string][]string,
	tableIdx, totalTables int,
) (TableSummary, error) {
	rows := int(t.Rows)
	if rows < 1 {
		rows = 1
	}
	if rows > g.maxRows {
		rows = g.maxRows
	}

	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name != "" {
			columns = append(columns, c.Name)
		}
	}

	pkField := string(t.PrimaryKey)
	if pkField != "" && !contains(columns, pkField) {
		columns = append([]string{pkField}, columns...)
	}

	// Foreign-key pools: column name -> parent PK values generated earlier.
	fkPools := make(map[string][]string)
	for _, fk := range t.ForeignKeys {
		if pool, ok := pkValues[fk.RefTable]; ok && len(pool) > 0 {
			fkPools[fk.Column] = pool
		}
	}

	csvPath := filepath.Join(jobDir, t.Name+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return TableSummary{}, err
	}
	defer f.Close()

	w := newLineWriter(f)
	if err := w.writeRow(columns); err != nil {
		return TableSummary{}, err
	}

	ts := newTimeseries(columns, rows, rng)

	var generatedPKs []string
	chunk := rows / 20
	if chunk < 10000 {
		chunk = 10000
	}
	lastReport := 0

	for i := 0; i < rows; i++ {
		var derived map[string]string
		if ts != nil {
			derived = ts.row(i, rng)
		}

		values := make([]string, 0, len(columns))
		for _, col := range columns {
			switch {
			case pkField != "" && col == pkField:
				pk := faker.UUID()
				generatedPKs = append(generatedPKs, pk)
				values = append(values, pk)
			case fkPools[col] != nil:
				values = append(values, fkPools[col][rng.Intn(len(fkPools[col]))])
			case derived[strings.ToLower(col)] != "":
				values = append(values, derived[strings.ToLower(col)])
			default:
				values = append(values, fakeValue(columnByName(t.Columns, col), faker, rng))
			}
		}
		if err := w.writeRow(values); err != nil {
			return TableSummary{}, err
		}

		// Bounded progress cadence: never more than one update per chunk.
		if i > 0 && i-lastReport >= chunk {
			if err := ctx.Err(); err != nil {
				return TableSummary{}, err
			}
			frac := (float64(tableIdx) + float64(i)/float64(rows)) / float64(totalTables)
			g.reporter.UpdateProgress(jobID, 0.95+0.05*frac,
				fmt.Sprintf("Generating table %d/%d: %s (%d/%d rows)", tableIdx+1, totalTables, t.Name, i, rows))
			lastReport = i
		}
	}
	if err := w.flush(); err != nil {
		return TableSummary{}, err
	}

	if len(generatedPKs) > 0 {
		pkValues[t.Name] = generatedPKs
	}

	preview := map[string]any{
		"table":       t.Name,
		"rows":        rows,
		"columns":     columns,
		"sample_size": min(100, rows),
	}
	previewRaw, _ := json.MarshalIndent(preview, "", "  ")
	if err := os.WriteFile(filepath.Join(jobDir, t.Name+".json"), previewRaw, 0o644); err != nil {
		return TableSummary{}, err
	}

	info, err := os.Stat(csvPath)
	if err != nil {
		return TableSummary{}, err
	}

	return TableSummary{
		Name:      t.Name,
		Rows:      rows,
		Columns:   len(columns),
		SizeBytes: info.Size(),
	}, nil
}

func fakeValue(col schema.Column, faker *gofakeit.Faker, rng *rand.Rand) string {
	switch strings.ToLower(col.Type) {
	case "uuid":
		return faker.UUID()
	case "int", "integer":
		lo, hi := 0, 1000
		if col.Range != nil {
			lo, hi = col.Range.Min, col.Range.Max
		}
		if hi <= lo {
			hi = lo + 1
		}
		return strconv.Itoa(lo + rng.Intn(hi-lo))
	case "float", "double":
		return strconv.FormatFloat(math.Round(rng.Float64()*100000)/100, 'f', 2, 64)
	case "string", "text":
		return faker.Word()
	case "email":
		return faker.Email()
	case "first_name":
		return faker.FirstName()
	case "last_name":
		return faker.LastName()
	case "date":
		d := faker.DateRange(time.Now().AddDate(-3, 0, 0), time.Now())
		return d.Format("2006-01-02")
	case "datetime", "timestamp":
		d := faker.DateRange(time.Now().AddDate(-3, 0, 0), time.Now())
		return d.Format(time.RFC3339)
	case "boolean", "bool":
		p := col.Probability
		if p == 0 {
			p = 0.5
		}
		return strconv.FormatBool(rng.Float64() < p)
	case "categorical":
		cats := col.Categories
		if len(cats) == 0 {
			cats = []string{"A", "B", "C"}
		}
		if len(col.Weights) == len(cats) {
			return weightedChoice(cats, col.Weights, rng)
		}
		return cats[rng.Intn(len(cats))]
	default:
		return faker.LetterN(uint(5 + rng.Intn(8)))
	}
}

func weightedChoice(items []string, weights []float64, rng *rand.Rand) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return items[i]
		}
	}
	return items[len(items)-1]
}

func columnByName(cols []schema.Column, name string) schema.Column {
	for _, c := range cols {
		if c.Name == name {
			return c
		}
	}
	return schema.Column{Type: "string"}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
