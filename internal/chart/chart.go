// Package chart turns a table and a chart selection into an ECharts page.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/datadash/internal/analysis"
	"github.com/KaramelBytes/datadash/internal/dataset"
)

// Kind is one of the supported chart types.
type Kind string

const (
	Scatter     Kind = "Scatter Plot"
	Line        Kind = "Line Chart"
	Bar         Kind = "Bar Chart"
	Histogram   Kind = "Histogram"
	Box         Kind = "Box Plot"
	Correlation Kind = "Correlation Matrix"
)

// Kinds lists every chart kind in menu order.
var Kinds = []Kind{Scatter, Line, Bar, Histogram, Box, Correlation}

// ParseKind resolves a menu label. An empty label selects the first kind.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Kinds[0], nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

// NoneOption is the select-box label for "no color / no grouping".
const NoneOption = "None"

// Histogram bin limits.
const (
	MinBins     = 5
	MaxBins     = 100
	DefaultBins = 30
)

// NoNumericWarning is shown instead of a correlation matrix when the table has
// no numeric columns.
const NoNumericWarning = "No numeric columns available for correlation matrix"

// Spec is a chart selection. Empty column fields take the first eligible
// column; Color and Group accept "" or NoneOption for none.
type Spec struct {
	Kind   Kind
	X      string
	Y      string
	Color  string
	Group  string
	Column string
	Bins   int
}

// Options control presentation only.
type Options struct {
	Height int
	Theme  string
}

// Renderer writes a complete HTML page for a chart.
type Renderer interface {
	Render(w io.Writer) error
}

// Result is a built chart. Chart is nil when Warning is set.
type Result struct {
	Spec    Spec
	Title   string
	Chart   Renderer
	Warning string

	// Matrix is set for correlation charts, Bins for histograms.
	Matrix *analysis.CorrMatrix
	Bins   []analysis.Bin
}

// HTML renders the chart page.
func (r *Result) HTML() ([]byte, error) {
	if r == nil || r.Chart == nil {
		return nil, errors.New("no chart to render")
	}
	var buf bytes.Buffer
	if err := r.Chart.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// Resolve fills defaults and validates spec against t.
func Resolve(t *dataset.Table, spec Spec) (Spec, error) {
	if spec.Kind == "" {
		spec.Kind = Kinds[0]
	}
	num := dataset.NumericColumns(t)
	cat := dataset.CategoricalColumns(t)
	var err error
	switch spec.Kind {
	case Scatter, Line:
		if spec.X, err = pick(spec.X, num, "X axis", "numeric"); err != nil {
			return spec, err
		}
		if spec.Y, err = pick(spec.Y, num, "Y axis", "numeric"); err != nil {
			return spec, err
		}
		if spec.Kind == Scatter {
			if spec.Color, err = optional(spec.Color, cat, "Color by", "categorical"); err != nil {
				return spec, err
			}
		}
	case Bar:
		if spec.X, err = pick(spec.X, cat, "X axis", "categorical"); err != nil {
			return spec, err
		}
		if spec.Y, err = pick(spec.Y, num, "Y axis", "numeric"); err != nil {
			return spec, err
		}
	case Histogram:
		if spec.Column, err = pick(spec.Column, num, "Column", "numeric"); err != nil {
			return spec, err
		}
		spec.Bins = ClampBins(spec.Bins)
	case Box:
		if spec.Y, err = pick(spec.Y, num, "Value", "numeric"); err != nil {
			return spec, err
		}
		if spec.Group, err = optional(spec.Group, cat, "Group by", "categorical"); err != nil {
			return spec, err
		}
	case Correlation:
	default:
		return spec, fmt.Errorf("unknown chart type %q", spec.Kind)
	}
	return spec, nil
}

// ClampBins applies the default and the [MinBins, MaxBins] limits.
func ClampBins(n int) int {
	switch {
	case n == 0:
		return DefaultBins
	case n < MinBins:
		return MinBins
	case n > MaxBins:
		return MaxBins
	}
	return n
}

func pick(name string, eligible []string, label, kind string) (string, error) {
	if name == "" {
		if len(eligible) == 0 {
			return "", fmt.Errorf("%s: no %s columns available", label, kind)
		}
		return eligible[0], nil
	}
	if !slices.Contains(eligible, name) {
		return "", fmt.Errorf("%s: column %q is not %s", label, name, kind)
	}
	return name, nil
}

func optional(name string, eligible []string, label, kind string) (string, error) {
	if name == "" || name == NoneOption {
		return "", nil
	}
	return pick(name, eligible, label, kind)
}

// Title returns the chart heading for a resolved spec.
func Title(spec Spec) string {
	switch spec.Kind {
	case Scatter, Line, Bar:
		return fmt.Sprintf("%s: %s vs %s", spec.Kind, spec.X, spec.Y)
	case Histogram:
		return "Histogram of " + spec.Column
	case Box:
		if spec.Group != "" {
			return fmt.Sprintf("Box Plot of %s by %s", spec.Y, spec.Group)
		}
		return "Box Plot of " + spec.Y
	}
	return string(spec.Kind)
}

// Build resolves spec against t and builds the chart.
func Build(t *dataset.Table, spec Spec, o Options) (*Result, error) {
	if t == nil {
		return nil, errors.New("no dataset loaded")
	}
	spec, err := Resolve(t, spec)
	if err != nil {
		return nil, err
	}
	if o.Height <= 0 {
		o.Height = 500
	}
	if o.Theme == "" {
		o.Theme = "white"
	}
	res := &Result{Spec: spec, Title: Title(spec)}
	initOpts := opts.Initialization{
		PageTitle: res.Title,
		Width:     "100%",
		Height:    fmt.Sprintf("%dpx", o.Height),
		Theme:     o.Theme,
	}
	switch spec.Kind {
	case Scatter:
		res.Chart = buildScatter(t, spec, res.Title, initOpts)
	case Line:
		res.Chart = buildLine(t, spec, res.Title, initOpts)
	case Bar:
		res.Chart = buildBar(t, spec, res.Title, initOpts)
	case Histogram:
		res.Chart, res.Bins = buildHistogram(t, spec, res.Title, initOpts)
	case Box:
		res.Chart = buildBox(t, spec, res.Title, initOpts)
	case Correlation:
		m := analysis.Correlation(t)
		if m.Size() == 0 {
			res.Warning = NoNumericWarning
			return res, nil
		}
		res.Matrix = m
		res.Chart = buildHeatmap(m, res.Title, initOpts)
	}
	return res, nil
}
