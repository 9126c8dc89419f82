// Package schema defines the typed payloads passed between inference phases
// and the local validation/normalization applied to them.
package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Analysis is the structured extraction produced by the analyze phase.
type Analysis struct {
	Entities      []string       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Domain        string         `json:"domain"`
	SizeHints     map[string]int `json:"size_hints"`
	Reasoning     string         `json:"reasoning"`
}

// Relationship is an inferred foreign-key link between two tables.
type Relationship struct {
	ParentTable  string `json:"parent_table"`
	ChildTable   string `json:"child_table"`
	ForeignKey   string `json:"foreign_key"`
	ReferenceKey string `json:"reference_key"`
	Cardinality  string `json:"cardinality,omitempty"`
	Reasoning    string `json:"reasoning,omitempty"`
}

// Column describes one generated column.
type Column struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Unique      bool      `json:"unique,omitempty"`
	NullRatio   float64   `json:"null_ratio,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Weights     []float64 `json:"weights,omitempty"`
	Range       *Range    `json:"range,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Range bounds integer column values.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ForeignKey declares that a column references another table's column.
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// Table is one table declaration in a schema.
type Table struct {
	Name        string       `json:"name"`
	Rows        FlexInt      `json:"rows"`
	PrimaryKey  FlexString   `json:"primary_key,omitempty"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Schema is the complete multi-table declaration, draft or finalized.
type Schema struct {
	Seed   *int64  `json:"seed,omitempty"`
	Tables []Table `json:"tables"`
}

// FlexString accepts either a JSON string or a list of strings (first entry
// wins). Model output declares composite primary keys both ways.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		if len(list) > 0 {
			*f = FlexString(list[0])
		}
		return nil
	}
	// Tolerate anything else as empty rather than failing the whole schema.
	*f = ""
	return nil
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var fl float64
	if err := json.Unmarshal(b, &fl); err == nil {
		*f = FlexInt(int(fl))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = FlexInt(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// ValidationResult is the outcome of local structural validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
