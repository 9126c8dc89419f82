package schema

// Normalize coerces a draft into canonical form: defaults filled, nameless
// columns dropped, types defaulted to string. It is local and best-effort;
// an imperfect draft still normalizes rather than failing.
func Normalize(s Schema) Schema {
	out := Schema{Seed: s.Seed, Tables: make([]Table, 0, len(s.Tables))}

	for _, t := range s.Tables {
		nt := Table{
			Name:       t.Name,
			Rows:       t.Rows,
			PrimaryKey: t.PrimaryKey,
		}
		if nt.Name == "" {
			nt.Name = "unnamed"
		}
		if nt.Rows < 1 {
			nt.Rows = 100
		}

		for _, c := range t.Columns {
			if c.Name == "" {
				continue
			}
			nc := c
			if nc.Type == "" {
				nc.Type = "string"
			}
			nc.Description = ""
			nt.Columns = append(nt.Columns, nc)
		}

		nt.ForeignKeys = append(nt.ForeignKeys, t.ForeignKeys...)
		out.Tables = append(out.Tables, nt)
	}

	return out
}
