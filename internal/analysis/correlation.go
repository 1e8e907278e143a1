package analysis

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// ErrInsufficientColumns is returned when fewer than two numeric columns are
// available for a correlation matrix.
var ErrInsufficientColumns = errors.New("need at least two numeric columns for correlation")

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// ComputeCorrelation computes pairwise-complete Pearson correlations between
// all numeric columns of ds. Pairs with fewer than two complete rows or zero
// variance are reported as 0.
func ComputeCorrelation(ds *dataset.Dataset) (*CorrMatrix, error) {
	if ds == nil {
		return nil, ErrInsufficientColumns
	}
	cols := ds.Numeric()
	if len(cols) < 2 {
		return nil, ErrInsufficientColumns
	}
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(cols[i].Values, cols[j].Values)
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(a, b []float64) float64 {
	var xs, ys []float64
	for k := 0; k < len(a) && k < len(b); k++ {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		xs = append(xs, a[k])
		ys = append(ys, b[k])
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// At returns the coefficient for two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

func (m *CorrMatrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TopPairs lists up to n off-diagonal pairs ordered by |r| descending.
// n <= 0 returns all pairs.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	k := len(m.Columns)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
