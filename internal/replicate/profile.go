// Package replicate turns an uploaded CSV sample into a larger synthetic
// dataset that preserves the sample's shape: column profiles drive a
// model-chosen strategy, and flagged PII columns are rewritten with fakes.
package replicate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ColumnProfile summarizes one source column.
type ColumnProfile struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"` // numeric, categorical, text
	Distinct    int      `json:"distinct"`
	NullRatio   float64  `json:"null_ratio"`
	Min         float64  `json:"min,omitempty"`
	Max         float64  `json:"max,omitempty"`
	Mean        float64  `json:"mean,omitempty"`
	TopValues   []string `json:"top_values,omitempty"`
	SampleCount int      `json:"sample_count"`
}

// Profile holds the per-column profiles plus source row count.
type Profile struct {
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// categoricalCutoff: a column with at most this many distinct values is
// treated as categorical regardless of content.
const categoricalCutoff = 20

// ProfileCSV reads a header-first CSV and profiles every column. It also
// returns the raw records (without header) for later resampling.
func ProfileCSV(r io.Reader) (Profile, []string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Profile{}, nil, nil, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Profile{}, nil, nil, fmt.Errorf("read row: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return Profile{}, nil, nil, fmt.Errorf("source has no data rows")
	}

	profile := Profile{Rows: len(records)}
	for ci, name := range header {
		profile.Columns = append(profile.Columns, profileColumn(name, ci, records))
	}
	return profile, header, records, nil
}

func profileColumn(name string, idx int, records [][]string) ColumnProfile {
	distinct := make(map[string]int)
	nulls := 0
	numeric := true
	var sum, minV, maxV float64
	seen := 0

	for _, rec := range records {
		if idx >= len(rec) || rec[idx] == "" {
			nulls++
			continue
		}
		v := rec[idx]
		distinct[v]++
		if numeric {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				numeric = false
			} else {
				if seen == 0 || f < minV {
					minV = f
				}
				if seen == 0 || f > maxV {
					maxV = f
				}
				sum += f
			}
		}
		seen++
	}

	p := ColumnProfile{
		Name:        name,
		Distinct:    len(distinct),
		NullRatio:   float64(nulls) / float64(len(records)),
		SampleCount: seen,
	}

	switch {
	case numeric && seen > 0:
		p.Kind = "numeric"
		p.Min = minV
		p.Max = maxV
		p.Mean = sum / float64(seen)
	case len(distinct) <= categoricalCutoff:
		p.Kind = "categorical"
		p.TopValues = topValues(distinct, 10)
	default:
		p.Kind = "text"
		p.TopValues = topValues(distinct, 5)
	}
	return p
}

func topValues(counts map[string]int, n int) []string {
	type kv struct {
		v string
		c int
	}
	pairs := make([]kv, 0, len(counts))
	for v, c := range counts {
		pairs = append(pairs, kv{v, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].c != pairs[j].c {
			return pairs[i].c > pairs[j].c
		}
		return pairs[i].v < pairs[j].v
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.v
	}
	return out
}
