package schema

import "fmt"

// Validate performs local structural validation. It is not an external call
// and never fails the pipeline: an invalid result triggers redraft cycles,
// and after the iteration cap the schema is finalized anyway.
func Validate(s Schema) ValidationResult {
	var errs, warns []string

	if len(s.Tables) == 0 {
		errs = append(errs, "schema must have at least one table")
		return ValidationResult{Valid: false, Errors: errs, Warnings: warns}
	}

	tableNames := make(map[string]bool)
	for i, t := range s.Tables {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("table %d missing name", i))
			continue
		}
		if tableNames[t.Name] {
			errs = append(errs, fmt.Sprintf("duplicate table name: %s", t.Name))
		}
		tableNames[t.Name] = true

		if len(t.Columns) == 0 {
			errs = append(errs, fmt.Sprintf("table %q must have at least one column", t.Name))
		}
		if t.Rows < 1 {
			errs = append(errs, fmt.Sprintf("table %q must have positive rows", t.Name))
		}

		colNames := make(map[string]bool)
		for j, c := range t.Columns {
			if c.Name == "" {
				errs = append(errs, fmt.Sprintf("table %q column %d missing name", t.Name, j))
				continue
			}
			if colNames[c.Name] {
				warns = append(warns, fmt.Sprintf("table %q has duplicate column: %s", t.Name, c.Name))
			}
			colNames[c.Name] = true
			if c.Type == "" {
				warns = append(warns, fmt.Sprintf("table %q column %q missing type, will default to string", t.Name, c.Name))
			}
		}

		if pk := string(t.PrimaryKey); pk != "" && !colNames[pk] {
			warns = append(warns, fmt.Sprintf("table %q primary key %q not in columns", t.Name, pk))
		}

		for _, fk := range t.ForeignKeys {
			if fk.Column == "" || fk.RefTable == "" {
				errs = append(errs, fmt.Sprintf("table %q has invalid foreign key definition", t.Name))
			}
		}
	}

	// Cross-table reference check.
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable != "" && !tableNames[fk.RefTable] {
				errs = append(errs, fmt.Sprintf("table %q references non-existent table %q", t.Name, fk.RefTable))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}
