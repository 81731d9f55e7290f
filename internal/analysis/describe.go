// Package analysis computes descriptive statistics over dataset tables: the
// describe report used in AI prompts, Pearson correlations, box-plot summaries
// and histogram bins.
package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/KaramelBytes/datadash/internal/dataset"
)

// Summary is a describe-style report: one column per table column, one row per
// statistic.
type Summary struct {
	Columns []string
	Stats   []string
	// Cells is row-major: Cells[stat][column].
	Cells [][]string
}

var (
	numericStats     = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	categoricalStats = []string{"count", "unique", "top", "freq"}
)

// Describe summarizes the numeric columns of t. Tables without numeric columns
// get the categorical summary (count, unique, top, freq) instead.
func Describe(t *dataset.Table) *Summary {
	if names := dataset.NumericColumns(t); len(names) > 0 {
		return describeNumeric(t, names)
	}
	return describeCategorical(t, dataset.CategoricalColumns(t))
}

// NumSummary holds the moments of one numeric column.
type NumSummary struct {
	Count          int
	Mean, Std      float64
	Min, Max       float64
	Q1, Median, Q3 float64
}

// SummarizeValues computes count, mean, sample standard deviation, extremes and
// quartiles. Undefined statistics are NaN.
func SummarizeValues(vals []float64) NumSummary {
	s := NumSummary{Count: len(vals)}
	nan := math.NaN()
	if len(vals) == 0 {
		s.Mean, s.Std, s.Min, s.Max, s.Q1, s.Median, s.Q3 = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	// Welford
	var mean, m2 float64
	for i, x := range vals {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	s.Mean = mean
	s.Std = nan
	if len(vals) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q3 = quantile(sorted, 0.75)
	return s
}

func describeNumeric(t *dataset.Table, names []string) *Summary {
	out := &Summary{Columns: names, Stats: numericStats, Cells: make([][]string, len(numericStats))}
	for i := range out.Cells {
		out.Cells[i] = make([]string, len(names))
	}
	for j, name := range names {
		c, _ := t.Column(name)
		s := SummarizeValues(c.Values())
		vals := []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max}
		for i, v := range vals {
			out.Cells[i][j] = formatFloat(v)
		}
	}
	return out
}

func describeCategorical(t *dataset.Table, names []string) *Summary {
	out := &Summary{Columns: names, Stats: categoricalStats, Cells: make([][]string, len(categoricalStats))}
	for i := range out.Cells {
		out.Cells[i] = make([]string, len(names))
	}
	for j, name := range names {
		c, _ := t.Column(name)
		counts := map[string]int{}
		var order []string
		n := 0
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				continue
			}
			n++
			v := c.Texts[i]
			if _, ok := counts[v]; !ok {
				order = append(order, v)
			}
			counts[v]++
		}
		top, freq := "NaN", 0
		for _, v := range order {
			if counts[v] > freq {
				top, freq = v, counts[v]
			}
		}
		out.Cells[0][j] = strconv.Itoa(n)
		out.Cells[1][j] = strconv.Itoa(len(order))
		if n == 0 {
			out.Cells[2][j] = "NaN"
			out.Cells[3][j] = "NaN"
			continue
		}
		out.Cells[2][j] = top
		out.Cells[3][j] = strconv.Itoa(freq)
	}
	return out
}

// String renders the summary as a borderless, right-aligned text table.
func (s *Summary) String() string {
	if s == nil || len(s.Columns) == 0 {
		return "Empty DataFrame"
	}
	tw := table.NewWriter()
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Options.SeparateHeader = false
	style.Options.SeparateRows = false
	tw.SetStyle(style)

	header := table.Row{""}
	for _, c := range s.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for i, stat := range s.Stats {
		row := table.Row{stat}
		for _, cell := range s.Cells[i] {
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	cfgs := make([]table.ColumnConfig, 0, len(s.Columns))
	for i := range s.Columns {
		cfgs = append(cfgs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(cfgs)
	return tw.Render()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
