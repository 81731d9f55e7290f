package dataset

// Stats are the three overview numbers shown for the uploaded table.
type Stats struct {
	Rows    int
	Columns int
	Missing int
}

// ComputeStats counts rows, columns and missing cells across the whole table.
func ComputeStats(t *Table) Stats {
	s := Stats{Rows: t.Rows(), Columns: t.Cols()}
	if t == nil {
		return s
	}
	for _, c := range t.Columns {
		for _, m := range c.Missing {
			if m {
				s.Missing++
			}
		}
	}
	return s
}
