package replicate

import (
	"math/rand"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
)

// Sampler expands source records into targetRows synthetic rows.
type Sampler interface {
	Sample(records [][]string, profile Profile, targetRows int) [][]string
}

// BootstrapSampler resamples whole source rows with replacement, then
// perturbs numeric cells and replaces PII cells with fakes. Row-level
// resampling keeps cross-column correlations that independent per-column
// draws would destroy.
type BootstrapSampler struct {
	rng      *rand.Rand
	faker    *gofakeit.Faker
	detector *RegexDetector
	pii      map[string]bool
}

func NewBootstrapSampler(seed int64, piiColumns []string) *BootstrapSampler {
	pii := make(map[string]bool, len(piiColumns))
	for _, c := range piiColumns {
		pii[c] = true
	}
	return &BootstrapSampler{
		rng:      rand.New(rand.NewSource(seed)),
		faker:    gofakeit.New(uint64(seed)),
		detector: NewRegexDetector(),
		pii:      pii,
	}
}

func (s *BootstrapSampler) Sample(records [][]string, profile Profile, targetRows int) [][]string {
	if targetRows < 1 || len(records) == 0 {
		return nil
	}

	out := make([][]string, 0, targetRows)
	for i := 0; i < targetRows; i++ {
		src := records[s.rng.Intn(len(records))]
		row := make([]string, len(profile.Columns))
		for ci, col := range profile.Columns {
			var v string
			if ci < len(src) {
				v = src[ci]
			}
			row[ci] = s.cell(col, v)
		}
		out = append(out, row)
	}
	return out
}

func (s *BootstrapSampler) cell(col ColumnProfile, v string) string {
	if v == "" {
		return ""
	}
	if s.pii[col.Name] {
		return s.fakePII(v)
	}
	if col.Kind == "numeric" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			span := col.Max - col.Min
			if span <= 0 {
				return v
			}
			// Jitter within 5% of the observed range, clamped to it.
			f += (s.rng.Float64() - 0.5) * span * 0.05
			if f < col.Min {
				f = col.Min
			}
			if f > col.Max {
				f = col.Max
			}
			if isIntegral(v) {
				return strconv.FormatInt(int64(f), 10)
			}
			return strconv.FormatFloat(f, 'f', 4, 64)
		}
	}
	return v
}

func (s *BootstrapSampler) fakePII(v string) string {
	switch s.detector.piiKind(v) {
	case "email":
		return s.faker.Email()
	case "phone":
		return s.faker.Phone()
	case "ssn":
		return s.faker.SSN()
	default:
		return s.faker.Name()
	}
}

func isIntegral(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}
