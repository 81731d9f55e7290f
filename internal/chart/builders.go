package chart

import (
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/datadash/internal/analysis"
	"github.com/KaramelBytes/datadash/internal/dataset"
)

// missingLabel names the group of rows whose category is missing.
const missingLabel = "NaN"

// RdBu, low to high.
var divergingColors = []string{"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7", "#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061"}

func column(t *dataset.Table, name string) *dataset.Column {
	c, _ := t.Column(name)
	return c
}

// finite returns cell i of c when it holds a finite number. Infinite values
// cannot be encoded into the chart options, so they are skipped like missing
// cells.
func finite(c *dataset.Column, i int) (float64, bool) {
	v, ok := c.Float(i)
	if !ok || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func finiteValues(c *dataset.Column) []float64 {
	var out []float64
	for _, v := range c.Values() {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func globalOpts(title string, initOpts opts.Initialization, legend bool) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(legend), Top: "30"}),
	}
}

// groups returns the row indices of each category of c in first-appearance
// order. A nil column puts every row in one unnamed group.
func groups(c *dataset.Column, rows int) ([]string, map[string][]int) {
	idx := map[string][]int{}
	var order []string
	for i := 0; i < rows; i++ {
		key := ""
		if c != nil {
			key = missingLabel
			if !c.IsMissing(i) {
				key = c.Texts[i]
			}
		}
		if _, ok := idx[key]; !ok {
			order = append(order, key)
		}
		idx[key] = append(idx[key], i)
	}
	return order, idx
}

func buildScatter(t *dataset.Table, spec Spec, title string, initOpts opts.Initialization) *charts.Scatter {
	x, y := column(t, spec.X), column(t, spec.Y)
	var color *dataset.Column
	if spec.Color != "" {
		color = column(t, spec.Color)
	}
	order, idx := groups(color, t.Rows())

	sc := charts.NewScatter()
	sc.SetGlobalOptions(append(globalOpts(title, initOpts, color != nil),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
	)...)
	for _, g := range order {
		var data []opts.ScatterData
		for _, i := range idx[g] {
			xv, okx := finite(x, i)
			yv, oky := finite(y, i)
			if okx && oky {
				data = append(data, opts.ScatterData{Value: []float64{xv, yv}})
			}
		}
		name := g
		if name == "" {
			name = spec.Y
		}
		sc.AddSeries(name, data)
	}
	return sc
}

func buildLine(t *dataset.Table, spec Spec, title string, initOpts opts.Initialization) *charts.Line {
	x, y := column(t, spec.X), column(t, spec.Y)
	ln := charts.NewLine()
	ln.SetGlobalOptions(append(globalOpts(title, initOpts, false),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
	)...)
	// Points stay in table order; pairs with a missing side are skipped.
	var data []opts.LineData
	for i := 0; i < t.Rows(); i++ {
		xv, okx := finite(x, i)
		yv, oky := finite(y, i)
		if okx && oky {
			data = append(data, opts.LineData{Value: []float64{xv, yv}})
		}
	}
	ln.AddSeries(spec.Y, data)
	return ln
}

// barSums totals y per category of x, in first-appearance order. Rows with a
// missing category or value are left out.
func barSums(x, y *dataset.Column) ([]string, []float64) {
	pos := map[string]int{}
	var labels []string
	var sums []float64
	for i := 0; i < x.Len(); i++ {
		v, ok := finite(y, i)
		if !ok || x.IsMissing(i) {
			continue
		}
		k := x.Texts[i]
		j, seen := pos[k]
		if !seen {
			j = len(labels)
			pos[k] = j
			labels = append(labels, k)
			sums = append(sums, 0)
		}
		sums[j] += v
	}
	return labels, sums
}

func buildBar(t *dataset.Table, spec Spec, title string, initOpts opts.Initialization) *charts.Bar {
	labels, sums := barSums(column(t, spec.X), column(t, spec.Y))
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOpts(title, initOpts, false),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
	)...)
	data := make([]opts.BarData, len(sums))
	for i, s := range sums {
		data[i] = opts.BarData{Name: labels[i], Value: s}
	}
	bar.SetXAxis(labels).AddSeries(spec.Y, data)
	return bar
}

func buildHistogram(t *dataset.Table, spec Spec, title string, initOpts opts.Initialization) (*charts.Bar, []analysis.Bin) {
	bins := analysis.Histogram(finiteValues(column(t, spec.Column)), spec.Bins)
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOpts(title, initOpts, false),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.Column, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count", Type: "value"}),
	)...)
	labels := make([]string, len(bins))
	data := make([]opts.BarData, len(bins))
	for i, b := range bins {
		labels[i] = formatEdge(b.Lo) + " - " + formatEdge(b.Hi)
		data[i] = opts.BarData{Value: b.Count}
	}
	bar.SetXAxis(labels).AddSeries("count", data,
		charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "0%"}),
	)
	return bar, bins
}

func buildBox(t *dataset.Table, spec Spec, title string, initOpts opts.Initialization) *charts.BoxPlot {
	y := column(t, spec.Y)
	var group *dataset.Column
	if spec.Group != "" {
		group = column(t, spec.Group)
	}
	order, idx := groups(group, t.Rows())

	bp := charts.NewBoxPlot()
	bp.SetGlobalOptions(append(globalOpts(title, initOpts, false),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.Group, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
	)...)

	var labels []string
	var boxes []opts.BoxPlotData
	var outliers []opts.ScatterData
	for _, g := range order {
		var vals []float64
		for _, i := range idx[g] {
			if v, ok := finite(y, i); ok {
				vals = append(vals, v)
			}
		}
		b, ok := analysis.BoxStats(vals)
		if !ok {
			continue
		}
		label := g
		if label == "" {
			label = spec.Y
		}
		pos := len(labels)
		labels = append(labels, label)
		boxes = append(boxes, opts.BoxPlotData{
			Name:  label,
			Value: []float64{b.LowerWhisker, b.Q1, b.Median, b.Q3, b.UpperWhisker},
		})
		for _, o := range b.Outliers {
			outliers = append(outliers, opts.ScatterData{Value: []interface{}{pos, o}})
		}
	}
	bp.SetXAxis(labels).AddSeries(spec.Y, boxes)
	if len(outliers) > 0 {
		sc := charts.NewScatter()
		sc.AddSeries("outliers", outliers)
		bp.Overlap(sc)
	}
	return bp
}

func buildHeatmap(m *analysis.CorrMatrix, title string, initOpts opts.Initialization) *charts.HeatMap {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(globalOpts(title, initOpts, false),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: m.Columns, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Columns, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: divergingColors},
		}),
	)...)
	var data []opts.HeatMapData
	for i := range m.Columns {
		for j := range m.Columns {
			var v interface{} = "-"
			if r := m.Values[i][j]; !math.IsNaN(r) {
				v = math.Round(r*100) / 100
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}
	hm.SetXAxis(m.Columns).AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
