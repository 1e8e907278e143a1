package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// ColumnStats is the per-column summary shown to operators and sent to the
// model: count, mean, sample standard deviation and the five-number summary.
// Fields that are undefined for the data (e.g. Std with one value) are NaN.
type ColumnStats struct {
	Name   string
	Unit   string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarizes every numeric column of ds in file order. It is computed
// on demand and never cached.
func Describe(ds *dataset.Dataset) []ColumnStats {
	if ds == nil {
		return nil
	}
	var out []ColumnStats
	for _, c := range ds.Numeric() {
		out = append(out, DescribeColumn(c))
	}
	return out
}

// DescribeColumn summarizes a single numeric column. Missing values are
// skipped.
func DescribeColumn(col *dataset.Column) ColumnStats {
	cs := ColumnStats{Name: col.Name, Unit: col.Unit}
	_, vals := col.Present()
	cs.Count = len(vals)
	nan := math.NaN()
	cs.Mean, cs.Std, cs.Min, cs.Q25, cs.Median, cs.Q75, cs.Max = nan, nan, nan, nan, nan, nan, nan
	if cs.Count == 0 {
		return cs
	}

	data := stats.Float64Data(vals)
	cs.Min, _ = data.Min()
	cs.Max, _ = data.Max()
	cs.Median, _ = data.Median()

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	cs.Q25 = quantile(sorted, 0.25)
	cs.Q75 = quantile(sorted, 0.75)

	if cs.Count == 1 {
		cs.Mean = vals[0]
		return cs
	}
	cs.Mean, cs.Std = stat.MeanStdDev(vals, nil)
	return cs
}

// quantile interpolates linearly between closest ranks, like pandas.
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
