package analysis

import (
	"math"

	"github.com/KaramelBytes/datadash/internal/dataset"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Size returns the number of columns (and rows) of the matrix.
func (m *CorrMatrix) Size() int { return len(m.Columns) }

// Correlation computes pairwise Pearson correlations over all numeric columns
// of t, using for each pair only the rows where both values are present. Cells
// with fewer than two paired values or zero variance are NaN.
func Correlation(t *dataset.Table) *CorrMatrix {
	names := dataset.NumericColumns(t)
	cols := make([]*dataset.Column, len(names))
	for i, n := range names {
		cols[i], _ = t.Column(n)
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pearson(cols[a], cols[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

func pearson(x, y *dataset.Column) float64 {
	var xs, ys []float64
	for i := 0; i < x.Len(); i++ {
		xv, okx := x.Float(i)
		yv, oky := y.Float(i)
		if okx && oky {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(len(xs))
	my /= float64(len(ys))
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 {
		return math.NaN()
	}
	r := sxy / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
