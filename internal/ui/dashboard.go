package ui

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/datadash/internal/chart"
	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/insights"
)

// Page constants.
const (
	PageTitle  = "Data Visualization Dashboard"
	PageIcon   = "📊"
	PageLayout = "wide"
)

// Query parameter names. Filters use one parameter per column, prefixed with
// the filter type.
const (
	paramLo        = "lo:"
	paramHi        = "hi:"
	paramCat       = "cat:"
	paramCatSeen   = "catset:"
	paramKind      = "kind"
	paramPrevKind  = "prev_kind"
	paramX         = "x"
	paramY         = "y"
	paramColor     = "color"
	paramGroup     = "group"
	paramColumn    = "column"
	paramBins      = "bins"
	paramShowTable = "show_table"
)

var printer = message.NewPrinter(language.English)

// parseSelection reads the filter widgets from q. Missing or malformed bounds
// fall back to the control's extent. A categorical column counts as selected
// only when its marker parameter is present, so an empty multi-select is
// distinguishable from an untouched one.
func parseSelection(ctl dataset.Controls, q url.Values) dataset.Selection {
	sel := dataset.Selection{Ranges: map[string]dataset.Range{}, Categories: map[string][]string{}}
	for _, rc := range ctl.Numeric {
		r := dataset.Range{Lo: rc.Min, Hi: rc.Max}
		if v, err := strconv.ParseFloat(q.Get(paramLo+rc.Column), 64); err == nil {
			r.Lo = v
		}
		if v, err := strconv.ParseFloat(q.Get(paramHi+rc.Column), 64); err == nil {
			r.Hi = v
		}
		sel.Ranges[rc.Column] = r
	}
	for _, mc := range ctl.Categorical {
		if !q.Has(paramCatSeen + mc.Column) {
			continue
		}
		sel.Categories[mc.Column] = append([]string{}, q[paramCat+mc.Column]...)
	}
	return sel
}

// parseChartSpec reads the chart controls. When the kind differs from the one
// the controls were rendered for, the column selections belong to the old
// kind and are dropped so every control starts from its first eligible column.
func parseChartSpec(q url.Values) (chart.Spec, error) {
	kind, err := chart.ParseKind(q.Get(paramKind))
	if err != nil {
		return chart.Spec{}, err
	}
	spec := chart.Spec{Kind: kind}
	if prev := q.Get(paramPrevKind); prev == "" || prev == string(kind) {
		spec.X = q.Get(paramX)
		spec.Y = q.Get(paramY)
		spec.Color = q.Get(paramColor)
		spec.Group = q.Get(paramGroup)
		spec.Column = q.Get(paramColumn)
	}
	if b, err := strconv.Atoi(q.Get(paramBins)); err == nil {
		spec.Bins = b
	}
	return spec, nil
}

// applyFilters recomputes the filtered table for q and returns the new state
// together with what the page needs to show for it.
func applyFilters(state State, q url.Values) (State, filterView) {
	ctl := dataset.BuildControls(state.Table)
	sel := parseSelection(ctl, q)
	state.Filtered = dataset.ApplyFilters(state.Table, ctl, sel)

	fv := filterView{}
	for _, rc := range ctl.Numeric {
		r := sel.Ranges[rc.Column]
		step := "any"
		if rc.Step > 0 {
			step = formatFloat(rc.Step)
		}
		fv.Ranges = append(fv.Ranges, rangeView{
			Column: rc.Column,
			LoName: paramLo + rc.Column, HiName: paramHi + rc.Column,
			Min: formatFloat(rc.Min), Max: formatFloat(rc.Max), Step: step,
			Lo: formatFloat(r.Lo), Hi: formatFloat(r.Hi),
		})
	}
	for _, mc := range ctl.Categorical {
		chosen, touched := sel.Categories[mc.Column]
		mv := multiView{Column: mc.Column, Name: paramCat + mc.Column, Marker: paramCatSeen + mc.Column}
		for _, opt := range mc.Options {
			selected := !touched && opt == dataset.AllOption
			for _, c := range chosen {
				if c == opt {
					selected = true
				}
			}
			mv.Options = append(mv.Options, optionView{Value: opt, Selected: selected})
		}
		fv.Multi = append(fv.Multi, mv)
	}
	return state, fv
}

type rangeView struct {
	Column, LoName, HiName string
	Min, Max, Step, Lo, Hi string
}

type optionView struct {
	Value    string
	Selected bool
}

type multiView struct {
	Column, Name, Marker string
	Options              []optionView
}

type filterView struct {
	Ranges []rangeView
	Multi  []multiView
}

type statsView struct {
	Rows, Columns, Missing string
}

type chartView struct {
	Kinds       []chart.Kind
	Spec        chart.Spec
	Numeric     []string
	Categorical []string
	NoneOption  string
	MinBins     int
	MaxBins     int
	Title       string
	Warning     string
	Error       string
	Src         template.URL
	Height      int
}

type tableView struct {
	Show      bool
	Header    []string
	Rows      [][]string
	Shown     string
	Total     string
	Truncated bool
}

type pageView struct {
	Title, Icon, Layout string
	MaxUploadMB         int

	HasData   bool
	FileName  string
	LoadError string

	Stats    statsView
	Filters  filterView
	Chart    chartView
	Table    tableView
	Insights insights.Panel
	// Query is the current dashboard query string, carried through the
	// insights form so the page comes back with the same selections.
	Query string
}

func buildStats(t *dataset.Table) statsView {
	s := dataset.ComputeStats(t)
	return statsView{
		Rows:    printer.Sprintf("%d", s.Rows),
		Columns: printer.Sprintf("%d", s.Columns),
		Missing: printer.Sprintf("%d", s.Missing),
	}
}

func buildTable(t *dataset.Table, show bool, limit int) tableView {
	tv := tableView{Show: show}
	if !show || t == nil {
		return tv
	}
	n := t.Rows()
	if limit > 0 && n > limit {
		n = limit
		tv.Truncated = true
	}
	tv.Header = t.Names()
	tv.Rows = make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, t.Cols())
		for j, c := range t.Columns {
			row[j] = c.String(i)
		}
		tv.Rows[i] = row
	}
	tv.Shown = printer.Sprintf("%d", n)
	tv.Total = printer.Sprintf("%d", t.Rows())
	return tv
}

// chartQuery keeps the filter parameters of q and pins the chart controls to
// the resolved spec, so the chart endpoint draws exactly what the page shows.
func chartQuery(q url.Values, spec chart.Spec) url.Values {
	out := url.Values{}
	for k, v := range q {
		switch k {
		case paramShowTable, paramPrevKind, paramX, paramY, paramColor, paramGroup, paramColumn, paramBins:
			continue
		}
		out[k] = v
	}
	out.Set(paramKind, string(spec.Kind))
	for k, v := range map[string]string{paramX: spec.X, paramY: spec.Y, paramColor: spec.Color, paramGroup: spec.Group, paramColumn: spec.Column} {
		if v != "" {
			out.Set(k, v)
		}
	}
	if spec.Bins > 0 {
		out.Set(paramBins, strconv.Itoa(spec.Bins))
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
