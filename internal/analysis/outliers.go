package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// DefaultBandWidth is the number of standard deviations around the mean
// that counts as normal.
const DefaultBandWidth = 2.0

// ErrNonNumericColumn is reported when a numeric operation (plotting,
// outlier detection on request) targets a text or date column.
var ErrNonNumericColumn = errors.New("column is not numeric")

// Anomaly is a single value outside its column's band.
type Anomaly struct {
	Column string
	Row    int
	Value  float64
}

// RequireNumeric returns ErrNonNumericColumn (wrapped with the column name)
// unless col is numeric.
func RequireNumeric(col *dataset.Column) error {
	if col == nil || !col.IsNumeric() {
		name := "<nil>"
		if col != nil {
			name = col.Name
		}
		return fmt.Errorf("%w: %s", ErrNonNumericColumn, name)
	}
	return nil
}

// Band returns [mean-2σ, mean+2σ] for col using the sample standard
// deviation. ok is false when the band is undefined (non-numeric column,
// fewer than two values).
func Band(col *dataset.Column) (lo, hi float64, ok bool) {
	return BandK(col, DefaultBandWidth)
}

// BandK is Band with a configurable width k.
func BandK(col *dataset.Column, k float64) (lo, hi float64, ok bool) {
	if !col.IsNumeric() {
		return 0, 0, false
	}
	_, vals := col.Present()
	if len(vals) < 2 {
		return 0, 0, false
	}
	mean, std := stat.MeanStdDev(vals, nil)
	return mean - k*std, mean + k*std, true
}

// DetectOutliers flags values strictly outside mean ± 2σ, in row order.
// Missing values are ignored. A constant column, a column with fewer than
// two values or a non-numeric column yields no anomalies.
func DetectOutliers(col *dataset.Column) []Anomaly {
	return DetectOutliersK(col, DefaultBandWidth)
}

// DetectOutliersK is DetectOutliers with band width k.
func DetectOutliersK(col *dataset.Column, k float64) []Anomaly {
	lo, hi, ok := BandK(col, k)
	if !ok || lo == hi {
		return nil
	}
	var out []Anomaly
	for i, v := range col.Values {
		// NaN compares false on both sides
		if v > hi || v < lo {
			out = append(out, Anomaly{Column: col.Name, Row: i, Value: v})
		}
	}
	return out
}

// DetectAll runs DetectOutliers over every numeric column; results are
// ordered by column, then row.
func DetectAll(ds *dataset.Dataset) []Anomaly {
	return DetectAllK(ds, DefaultBandWidth)
}

// DetectAllK is DetectAll with band width k.
func DetectAllK(ds *dataset.Dataset, k float64) []Anomaly {
	if ds == nil {
		return nil
	}
	var out []Anomaly
	for _, c := range ds.Numeric() {
		out = append(out, DetectOutliersK(c, k)...)
	}
	return out
}

// CountByColumn groups anomalies per column name.
func CountByColumn(anoms []Anomaly) map[string]int {
	m := make(map[string]int)
	for _, a := range anoms {
		m[a.Column]++
	}
	return m
}
