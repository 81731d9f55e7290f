package analysis

import (
	"math"
	"sort"
)

// Box is the Tukey box-plot summary of a sample.
type Box struct {
	Q1, Median, Q3 float64
	// LowerWhisker and UpperWhisker are the most extreme values within 1.5 IQR
	// of the quartiles.
	LowerWhisker, UpperWhisker float64
	Outliers                   []float64
}

// BoxStats computes the box-plot summary of vals. ok is false for an empty sample.
func BoxStats(vals []float64) (Box, bool) {
	if len(vals) == 0 {
		return Box{}, false
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	b := Box{
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
	}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = math.Inf(1), math.Inf(-1)
	for _, v := range sorted {
		if v < loFence || v > hiFence {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b, true
}

// Bin is one histogram bucket covering [Lo, Hi); the last bucket is closed.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits vals into n equal-width bins spanning [min, max]. A sample
// with a single distinct value yields one bin.
func Histogram(vals []float64, n int) []Bin {
	if len(vals) == 0 || n <= 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(vals)}}
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].Count++
	}
	return bins
}
