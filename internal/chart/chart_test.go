package chart

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datadash/internal/dataset"
)

func table(t *testing.T, header []string, rows [][]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.FromRecords("t.csv", header, rows)
	require.NoError(t, err)
	return tbl
}

func example(t *testing.T) *dataset.Table {
	return table(t, []string{"num", "cat"}, [][]string{{"1", "a"}, {"2", "a"}, {"3", "b"}})
}

func render(t *testing.T, res *Result) string {
	t.Helper()
	b, err := res.HTML()
	require.NoError(t, err)
	return string(b)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Scatter, k)
	for _, want := range Kinds {
		got, err := ParseKind(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = ParseKind("Pie Chart")
	assert.Error(t, err)
}

func TestHistogramExampleScenario(t *testing.T) {
	res, err := Build(example(t), Spec{Kind: Histogram, Column: "num", Bins: 5}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Histogram of num", res.Title)
	require.Len(t, res.Bins, 5)
	total := 0
	for _, b := range res.Bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Contains(t, render(t, res), "Histogram of num")
}

func TestClampBins(t *testing.T) {
	assert.Equal(t, DefaultBins, ClampBins(0))
	assert.Equal(t, MinBins, ClampBins(1))
	assert.Equal(t, MaxBins, ClampBins(1000))
	assert.Equal(t, 42, ClampBins(42))
}

func TestDefaultsToFirstEligibleColumn(t *testing.T) {
	tbl := table(t, []string{"label", "a", "b"}, [][]string{{"x", "1", "2"}, {"y", "3", "5"}})

	spec, err := Resolve(tbl, Spec{Kind: Scatter})
	require.NoError(t, err)
	assert.Equal(t, "a", spec.X)
	assert.Equal(t, "a", spec.Y)
	assert.Empty(t, spec.Color)

	spec, err = Resolve(tbl, Spec{Kind: Bar})
	require.NoError(t, err)
	assert.Equal(t, "label", spec.X)
	assert.Equal(t, "a", spec.Y)

	spec, err = Resolve(tbl, Spec{Kind: Box, Group: NoneOption})
	require.NoError(t, err)
	assert.Equal(t, "a", spec.Y)
	assert.Empty(t, spec.Group)
}

func TestResolveRejectsWrongKinds(t *testing.T) {
	tbl := example(t)
	_, err := Resolve(tbl, Spec{Kind: Scatter, X: "cat"})
	assert.Error(t, err)
	_, err = Resolve(tbl, Spec{Kind: Bar, X: "num"})
	assert.Error(t, err)
	_, err = Resolve(tbl, Spec{Kind: Histogram, Column: "missing"})
	assert.Error(t, err)

	textOnly := table(t, []string{"c"}, [][]string{{"x"}})
	_, err = Build(textOnly, Spec{Kind: Line}, Options{})
	assert.Error(t, err)
}

func TestTitles(t *testing.T) {
	tbl := example(t)
	cases := []struct {
		spec Spec
		want string
	}{
		{Spec{Kind: Scatter, X: "num", Y: "num", Color: "cat"}, "Scatter Plot: num vs num"},
		{Spec{Kind: Line, X: "num", Y: "num"}, "Line Chart: num vs num"},
		{Spec{Kind: Bar, X: "cat", Y: "num"}, "Bar Chart: cat vs num"},
		{Spec{Kind: Box, Y: "num"}, "Box Plot of num"},
		{Spec{Kind: Box, Y: "num", Group: "cat"}, "Box Plot of num by cat"},
		{Spec{Kind: Correlation}, "Correlation Matrix"},
	}
	for _, tc := range cases {
		res, err := Build(tbl, tc.spec, Options{Height: 400, Theme: "dark"})
		require.NoError(t, err, tc.want)
		assert.Equal(t, tc.want, res.Title)
		out := render(t, res)
		assert.Contains(t, out, tc.want)
		assert.Contains(t, out, "400px")
	}
}

func TestBarSumsInAppearanceOrder(t *testing.T) {
	tbl := table(t, []string{"city", "sales"}, [][]string{
		{"Rome", "1"}, {"Oslo", "2"}, {"Rome", "3"}, {"", "9"}, {"Oslo", "NA"},
	})
	x, _ := tbl.Column("city")
	y, _ := tbl.Column("sales")
	labels, sums := barSums(x, y)
	assert.Equal(t, []string{"Rome", "Oslo"}, labels)
	assert.Equal(t, []float64{4, 2}, sums)
}

func TestCorrelationMatrixShape(t *testing.T) {
	tbl := table(t, []string{"a", "b", "c", "g"}, [][]string{
		{"1", "3", "9", "x"}, {"2", "1", "7", "y"}, {"3", "2", "8", "x"},
	})
	res, err := Build(tbl, Spec{Kind: Correlation}, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	require.NotNil(t, res.Matrix)
	require.Equal(t, 3, res.Matrix.Size())
	for _, row := range res.Matrix.Values {
		assert.Len(t, row, 3)
	}
	assert.NotEmpty(t, render(t, res))
}

func TestCorrelationWithoutNumericColumns(t *testing.T) {
	tbl := table(t, []string{"g"}, [][]string{{"x"}, {"y"}})
	res, err := Build(tbl, Spec{Kind: Correlation}, Options{})
	require.NoError(t, err)
	assert.Equal(t, NoNumericWarning, res.Warning)
	assert.Nil(t, res.Chart)
	_, err = res.HTML()
	assert.Error(t, err)
}

func TestCorrelationUndefinedCellsRender(t *testing.T) {
	tbl := table(t, []string{"a", "const"}, [][]string{{"1", "5"}, {"2", "5"}})
	res, err := Build(tbl, Spec{Kind: Correlation}, Options{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.Matrix.Values[0][1]))
	assert.NotEmpty(t, render(t, res), "NaN cells must not break JSON encoding")
}

func TestBoxPlotWithOutliers(t *testing.T) {
	rows := [][]string{{"1", "a"}, {"2", "a"}, {"3", "a"}, {"4", "a"}, {"100", "a"}, {"5", "b"}}
	res, err := Build(table(t, []string{"v", "g"}, rows), Spec{Kind: Box, Y: "v", Group: "g"}, Options{})
	require.NoError(t, err)
	out := render(t, res)
	assert.Contains(t, out, "outliers")
	assert.True(t, strings.Contains(out, "boxplot"))
}

func TestEmptyFilteredTableStillRenders(t *testing.T) {
	tbl := example(t).Subset(nil)
	for _, k := range Kinds {
		res, err := Build(tbl, Spec{Kind: k}, Options{})
		require.NoError(t, err, string(k))
		if res.Warning == "" {
			assert.NotEmpty(t, render(t, res), string(k))
		}
	}
}

func TestInfiniteValuesAreSkipped(t *testing.T) {
	tbl := table(t, []string{"x", "y", "g"}, [][]string{
		{"1", "2", "a"},
		{"inf", "4", "b"},
		{"3", "Infinity", "a"},
		{"-inf", "8", "b"},
		{"5", "10", "a"},
	})
	require.Equal(t, []string{"x", "y"}, dataset.NumericColumns(tbl))

	specs := []Spec{
		{Kind: Scatter, X: "x", Y: "y", Color: "g"},
		{Kind: Line, X: "x", Y: "y"},
		{Kind: Bar, X: "g", Y: "x"},
		{Kind: Histogram, Column: "x", Bins: 5},
		{Kind: Box, Y: "y", Group: "g"},
	}
	for _, spec := range specs {
		t.Run(string(spec.Kind), func(t *testing.T) {
			res, err := Build(tbl, spec, Options{})
			require.NoError(t, err)
			assert.NotEmpty(t, render(t, res))
		})
	}

	res, err := Build(tbl, Spec{Kind: Histogram, Column: "x", Bins: 5}, Options{})
	require.NoError(t, err)
	total := 0
	for _, b := range res.Bins {
		total += b.Count
	}
	assert.Equal(t, 3, total, "only the finite values are binned")
}
