package generate

import (
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sepheus7/dataforge-studio/internal/core/schema"
)

type nopReporter struct{}

func (nopReporter) Start(id string)                               {}
func (nopReporter) UpdateProgress(id string, p float64, m string) {}
func (nopReporter) Complete(id string, s map[string]any)          {}
func (nopReporter) Fail(id string, errMsg string)                 {}

func seedPtr(v int64) *int64 { return &v }

func readCSV(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0], records[1:]
}

func columnIndex(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not in header %v", name, header)
	return -1
}

func TestGenerateWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, 1_000_000, nopReporter{})

	s := schema.Schema{
		Seed: seedPtr(1),
		Tables: []schema.Table{{
			Name:       "users",
			Rows:       25,
			PrimaryKey: "user_id",
			Columns: []schema.Column{
				{Name: "user_id", Type: "uuid", Unique: true},
				{Name: "email", Type: "email"},
				{Name: "age", Type: "int", Range: &schema.Range{Min: 18, Max: 90}},
			},
		}},
	}

	summary, err := g.Generate(context.Background(), "job_art", s)
	require.NoError(t, err)
	assert.Equal(t, 25, summary["total_rows"])

	jobDir := filepath.Join(dir, "job_art")
	for _, name := range []string{"schema.json", "users.csv", "users.json"} {
		_, err := os.Stat(filepath.Join(jobDir, name))
		assert.NoError(t, err, name)
	}

	header, rows := readCSV(t, filepath.Join(jobDir, "users.csv"))
	assert.Equal(t, []string{"user_id", "email", "age"}, header)
	assert.Len(t, rows, 25)
}

func TestForeignKeyValuesComeFromParentPrimaryKeys(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, 1_000_000, nopReporter{})

	s := schema.Schema{
		Seed: seedPtr(42),
		Tables: []schema.Table{
			{
				Name:       "customers",
				Rows:       10,
				PrimaryKey: "customer_id",
				Columns: []schema.Column{
					{Name: "customer_id", Type: "uuid", Unique: true},
					{Name: "email", Type: "email"},
				},
			},
			{
				Name:       "orders",
				Rows:       50,
				PrimaryKey: "order_id",
				Columns: []schema.Column{
					{Name: "order_id", Type: "uuid", Unique: true},
					{Name: "customer_id", Type: "uuid"},
				},
				ForeignKeys: []schema.ForeignKey{
					{Column: "customer_id", RefTable: "customers", RefColumn: "customer_id"},
				},
			},
		},
	}

	_, err := g.Generate(context.Background(), "job_fk", s)
	require.NoError(t, err)

	header, customers := readCSV(t, filepath.Join(dir, "job_fk", "customers.csv"))
	pkIdx := columnIndex(t, header, "customer_id")
	pks := make(map[string]bool, len(customers))
	for _, row := range customers {
		pks[row[pkIdx]] = true
	}

	header, orders := readCSV(t, filepath.Join(dir, "job_fk", "orders.csv"))
	fkIdx := columnIndex(t, header, "customer_id")
	require.Len(t, orders, 50)
	for _, row := range orders {
		assert.True(t, pks[row[fkIdx]], "fk value %q not among parent pks", row[fkIdx])
	}
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	s := schema.Schema{
		Seed: seedPtr(99),
		Tables: []schema.Table{{
			Name:       "items",
			Rows:       20,
			PrimaryKey: "item_id",
			Columns: []schema.Column{
				{Name: "item_id", Type: "uuid", Unique: true},
				{Name: "name", Type: "string"},
				{Name: "price", Type: "float"},
			},
		}},
	}

	dirA, dirB := t.TempDir(), t.TempDir()
	_, err := NewGenerator(dirA, 1_000_000, nopReporter{}).Generate(context.Background(), "job_a", s)
	require.NoError(t, err)
	_, err = NewGenerator(dirB, 1_000_000, nopReporter{}).Generate(context.Background(), "job_b", s)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dirA, "job_a", "items.csv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "job_b", "items.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRowCountClampedToLimit(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, 10, nopReporter{})

	s := schema.Schema{
		Seed: seedPtr(1),
		Tables: []schema.Table{{
			Name:       "big",
			Rows:       5000,
			PrimaryKey: "id",
			Columns:    []schema.Column{{Name: "id", Type: "uuid", Unique: true}},
		}},
	}

	_, err := g.Generate(context.Background(), "job_clamp", s)
	require.NoError(t, err)

	_, rows := readCSV(t, filepath.Join(dir, "job_clamp", "big.csv"))
	assert.Len(t, rows, 10)
}

func TestCategoricalValuesRespectDeclaredSet(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, 1_000_000, nopReporter{})

	s := schema.Schema{
		Seed: seedPtr(5),
		Tables: []schema.Table{{
			Name:       "tickets",
			Rows:       40,
			PrimaryKey: "id",
			Columns: []schema.Column{
				{Name: "id", Type: "uuid", Unique: true},
				{Name: "status", Type: "categorical", Categories: []string{"open", "closed"}},
			},
		}},
	}

	_, err := g.Generate(context.Background(), "job_cat", s)
	require.NoError(t, err)

	header, rows := readCSV(t, filepath.Join(dir, "job_cat", "tickets.csv"))
	idx := columnIndex(t, header, "status")
	for _, row := range rows {
		assert.Contains(t, []string{"open", "closed"}, row[idx])
	}
}

func TestTimeseriesDetection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ts := newTimeseries([]string{"date", "open", "high", "low", "close", "volume"}, 30, rng)
	require.NotNil(t, ts)

	row := ts.row(0, rng)
	assert.NotEmpty(t, row["date"])
	assert.NotEmpty(t, row["open"])
	assert.NotEmpty(t, row["volume"])

	// Non-market columns do not trigger the detector.
	assert.Nil(t, newTimeseries([]string{"id", "email"}, 30, rng))
	assert.Nil(t, newTimeseries([]string{"open", "close", "high", "low"}, 30, rng))
}

func TestArtifactPath(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, 1_000_000, nopReporter{})

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "job_x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job_x", "t.csv"), []byte("a\n1\n"), 0o644))

	assert.NotEmpty(t, g.ArtifactPath("job_x", "t", "csv"))
	assert.Empty(t, g.ArtifactPath("job_x", "t", "json"))
	assert.Empty(t, g.ArtifactPath("job_missing", "t", "csv"))
}
