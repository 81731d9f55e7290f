package dataset

import (
	"math"
	"slices"
)

// AllOption is the multi-select sentinel meaning "do not filter this column".
const AllOption = "All"

// RangeControl describes the dual-ended slider for one numeric column.
type RangeControl struct {
	Column string
	Min    float64
	Max    float64
	Step   float64
}

// MultiSelectControl describes the multi-select for one categorical column.
// Options starts with AllOption followed by the distinct values in
// first-appearance order.
type MultiSelectControl struct {
	Column  string
	Options []string
}

// Controls is the full filter panel derived from a table.
type Controls struct {
	Numeric     []RangeControl
	Categorical []MultiSelectControl
}

// Range is a closed interval chosen on a RangeControl.
type Range struct {
	Lo, Hi float64
}

// Selection holds the user's current filter choices. Columns absent from the
// maps are unfiltered.
type Selection struct {
	Ranges     map[string]Range
	Categories map[string][]string
}

// BuildControls derives the filter panel from the unfiltered table. Numeric
// columns without any value get no slider.
func BuildControls(t *Table) Controls {
	var ctl Controls
	if t == nil {
		return ctl
	}
	for _, name := range NumericColumns(t) {
		c, _ := t.Column(name)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range c.Values() {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if math.IsInf(lo, 1) {
			continue
		}
		ctl.Numeric = append(ctl.Numeric, RangeControl{Column: name, Min: lo, Max: hi, Step: (hi - lo) / 100})
	}
	for _, name := range CategoricalColumns(t) {
		c, _ := t.Column(name)
		opts := []string{AllOption}
		seen := map[string]struct{}{}
		for i := 0; i < c.Len(); i++ {
			if c.Missing[i] {
				continue
			}
			v := c.Texts[i]
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			opts = append(opts, v)
		}
		ctl.Categorical = append(ctl.Categorical, MultiSelectControl{Column: name, Options: opts})
	}
	return ctl
}

// ApplyFilters narrows t to the rows satisfying every active filter. A range
// equal to (or wider than) the control's bounds is inactive, so the full
// range never drops rows. Columns are never removed or reordered.
func ApplyFilters(t *Table, ctl Controls, sel Selection) *Table {
	if t == nil {
		return nil
	}
	keep := make([]bool, t.Rows())
	for i := range keep {
		keep[i] = true
	}
	for _, rc := range ctl.Numeric {
		r, ok := sel.Ranges[rc.Column]
		if !ok {
			continue
		}
		lo, hi := r.Lo, r.Hi
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo <= rc.Min && hi >= rc.Max {
			continue
		}
		c, ok := t.Column(rc.Column)
		if !ok {
			continue
		}
		for i := range keep {
			v, present := c.Float(i)
			if !present || v < lo || v > hi {
				keep[i] = false
			}
		}
	}
	for _, mc := range ctl.Categorical {
		chosen, ok := sel.Categories[mc.Column]
		if !ok || slices.Contains(chosen, AllOption) {
			continue
		}
		c, ok := t.Column(mc.Column)
		if !ok {
			continue
		}
		set := make(map[string]struct{}, len(chosen))
		for _, v := range chosen {
			set[v] = struct{}{}
		}
		for i := range keep {
			if c.Missing[i] {
				keep[i] = false
				continue
			}
			if _, in := set[c.Texts[i]]; !in {
				keep[i] = false
			}
		}
	}
	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	return t.Subset(rows)
}
