package dataset

// NumericColumns returns, in table order, the names of columns stored as numbers.
func NumericColumns(t *Table) []string {
	return columnsOfKind(t, KindNumeric)
}

// CategoricalColumns returns, in table order, the names of free-text columns.
// Boolean and datetime columns appear in neither this list nor NumericColumns.
func CategoricalColumns(t *Table) []string {
	return columnsOfKind(t, KindText)
}

func columnsOfKind(t *Table, k Kind) []string {
	if t == nil {
		return nil
	}
	out := []string{}
	for _, c := range t.Columns {
		if c.Kind == k {
			out = append(out, c.Name)
		}
	}
	return out
}
