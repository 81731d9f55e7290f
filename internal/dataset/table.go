// Package dataset holds the in-memory table model used by the dashboard:
// typed columns with per-cell missing indicators, plus the pure helpers that
// classify, filter and summarize a table.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred storage type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindText     Kind = "text"
	KindBool     Kind = "bool"
	KindDatetime Kind = "datetime"
)

// Column is a named, typed sequence of cells.
type Column struct {
	Name string
	Kind Kind
	// Texts holds the trimmed source text of every cell.
	Texts []string
	// Nums holds parsed values for numeric columns (NaN when missing); nil otherwise.
	Nums    []float64
	Missing []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.Texts) }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool { return c.Missing[i] }

// Float returns the numeric value of cell i. ok is false for missing cells
// and non-numeric columns.
func (c *Column) Float(i int) (float64, bool) {
	if c.Kind != KindNumeric || c.Missing[i] {
		return 0, false
	}
	return c.Nums[i], true
}

// Values returns the non-missing numeric values in row order.
func (c *Column) Values() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// String returns the display text of cell i; missing cells render as "NaN".
func (c *Column) String(i int) string {
	if c.Missing[i] {
		return "NaN"
	}
	return c.Texts[i]
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{
		Name:    c.Name,
		Kind:    c.Kind,
		Texts:   make([]string, len(rows)),
		Missing: make([]bool, len(rows)),
	}
	if c.Nums != nil {
		out.Nums = make([]float64, len(rows))
	}
	for k, i := range rows {
		out.Texts[k] = c.Texts[i]
		out.Missing[k] = c.Missing[i]
		if c.Nums != nil {
			out.Nums[k] = c.Nums[i]
		}
	}
	return out
}

// Table is an ordered collection of equally long columns.
type Table struct {
	Name    string
	Columns []*Column
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Cols returns the number of columns.
func (t *Table) Cols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Shape renders the table shape the way the insights prompt expects, e.g. "(3, 2)".
func (t *Table) Shape() string {
	return fmt.Sprintf("(%d, %d)", t.Rows(), t.Cols())
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Subset returns a table with the same columns restricted to the given rows, in
// the given order.
func (t *Table) Subset(rows []int) *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.subset(rows)
	}
	return out
}

// naTokens mirrors the default NA markers recognised by common dataframe readers.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {}, "-1.#QNAN": {},
}

// IsMissingToken reports whether a raw cell value denotes a missing value.
func IsMissingToken(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// FromRecords builds a table from a header row and data rows, inferring column
// kinds. Short rows are padded with missing cells and long rows truncated.
func FromRecords(name string, header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	names := cleanHeader(header)
	ncol := len(names)
	t := &Table{Name: name, Columns: make([]*Column, ncol)}
	for j := range names {
		t.Columns[j] = &Column{
			Name:    names[j],
			Texts:   make([]string, len(rows)),
			Missing: make([]bool, len(rows)),
		}
	}
	for i, rec := range rows {
		for j := 0; j < ncol; j++ {
			var v string
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			c := t.Columns[j]
			c.Texts[i] = v
			c.Missing[i] = IsMissingToken(v)
		}
	}
	for _, c := range t.Columns {
		inferKind(c)
	}
	return t, nil
}

// inferKind decides the column kind from its non-missing cells: numeric when
// every cell parses as a number, bool when every cell is true/false and none
// is missing, text otherwise. Text cells are never read as dates; sources with
// typed cells mark date columns through SetKind.
func inferKind(c *Column) {
	nums := make([]float64, c.Len())
	numeric, boolean := true, true
	for i, v := range c.Texts {
		if c.Missing[i] {
			nums[i] = math.NaN()
			boolean = false
			continue
		}
		if numeric {
			if x, err := strconv.ParseFloat(v, 64); err == nil {
				nums[i] = x
			} else {
				numeric = false
			}
		}
		if boolean {
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				boolean = false
			}
		}
	}
	switch {
	case numeric:
		c.Kind = KindNumeric
		c.Nums = nums
	case boolean:
		c.Kind = KindBool
	default:
		c.Kind = KindText
	}
}

// SetKind overrides the inferred kind with one a typed source knows better,
// such as spreadsheet date cells. Numbers only come from inference, so a
// KindNumeric override is ignored.
func (c *Column) SetKind(k Kind) {
	if k == KindNumeric {
		return
	}
	c.Kind = k
	c.Nums = nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[name]; dup {
			base := name
			for n := seen[base] + 1; ; n++ {
				cand := fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
