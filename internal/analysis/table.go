package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// Options controls what Analyze includes in a Report.
type Options struct {
	// SampleRows determines how many preview rows to include.
	SampleRows int
	// BandWidth is the outlier band in standard deviations; 0 means DefaultBandWidth.
	BandWidth float64
	// TopPairs limits the correlation pairs listed in Markdown.
	TopPairs int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{SampleRows: 5, BandWidth: DefaultBandWidth, TopPairs: 10}
}

// Report bundles everything the shell shows about one dataset.
type Report struct {
	Name      string
	Rows      int
	Cols      []ColumnInfo
	Stats     []ColumnStats
	Anomalies []Anomaly
	Corr      *CorrMatrix
	Samples   [][]string
	Warnings  []string
	opt       Options
}

// ColumnInfo is the schema line of one column.
type ColumnInfo struct {
	Name    string
	Kind    dataset.Kind
	Unit    string
	NonNull int
	Missing int
}

// Analyze runs describe, outlier detection and correlation over ds.
func Analyze(ds *dataset.Dataset, opt Options) *Report {
	if opt.BandWidth <= 0 {
		opt.BandWidth = DefaultBandWidth
	}
	r := &Report{Name: ds.Name, Rows: ds.Rows(), opt: opt}
	for _, c := range ds.Columns {
		miss := c.Missing()
		r.Cols = append(r.Cols, ColumnInfo{Name: c.Name, Kind: c.Kind, Unit: c.Unit, NonNull: ds.Rows() - miss, Missing: miss})
	}
	r.Stats = Describe(ds)
	r.Anomalies = DetectAllK(ds, opt.BandWidth)
	corr, err := ComputeCorrelation(ds)
	switch {
	case errors.Is(err, ErrInsufficientColumns):
		r.Warnings = append(r.Warnings, "fewer than two numeric columns; correlation skipped")
	case err == nil:
		r.Corr = corr
	}
	if opt.SampleRows > 0 {
		r.Samples = ds.Head(opt.SampleRows)
	}
	if len(ds.Numeric()) == 0 {
		r.Warnings = append(r.Warnings, "no numeric columns detected")
	}
	return r
}

// StatsTable renders stats as a fixed-width table, one row per column.
func StatsTable(cs []ColumnStats) string {
	header := []string{"kolom", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	rows := make([][]string, 0, len(cs))
	for _, s := range cs {
		rows = append(rows, []string{
			s.Name, fmt.Sprintf("%d", s.Count), num(s.Mean), num(s.Std), num(s.Min),
			num(s.Q25), num(s.Median), num(s.Q75), num(s.Max),
		})
	}
	return fixedWidth(header, rows)
}

// Table renders the matrix as a fixed-width text table.
func (m *CorrMatrix) Table() string {
	header := append([]string{""}, m.Columns...)
	rows := make([][]string, len(m.Columns))
	for i, name := range m.Columns {
		row := []string{name}
		for j := range m.Columns {
			row = append(row, fmt.Sprintf("%.3f", m.Values[i][j]))
		}
		rows[i] = row
	}
	return fixedWidth(header, rows)
}

// AnomalyLines formats anomalies as "column, rij N: value" lines.
func AnomalyLines(anoms []Anomaly) []string {
	out := make([]string, len(anoms))
	for i, a := range anoms {
		out[i] = fmt.Sprintf("%s, rij %d: %s", a.Column, a.Row, exact(a.Value))
	}
	return out
}

// ColumnBlock renders one column's statistics for a per-column prompt.
func ColumnBlock(s ColumnStats) string {
	var b strings.Builder
	name := s.Name
	if s.Unit != "" && !strings.Contains(name, s.Unit) {
		name = fmt.Sprintf("%s [%s]", name, s.Unit)
	}
	fmt.Fprintf(&b, "Kolom: %s\n", name)
	fmt.Fprintf(&b, "count: %d\nmean: %s\nstd: %s\nmin: %s\n25%%: %s\n50%%: %s\n75%%: %s\nmax: %s\n",
		s.Count, num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Median), num(s.Q75), num(s.Max))
	return b.String()
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)\n", name, c.Kind, c.NonNull, missPct))
	}

	if len(r.Stats) > 0 {
		b.WriteString("\n[STATISTICS]\n```\n")
		b.WriteString(StatsTable(r.Stats))
		b.WriteString("```\n")
	}

	b.WriteString(fmt.Sprintf("\n[ANOMALIES] (mean ± %.1fσ)\n", r.opt.BandWidth))
	if len(r.Anomalies) == 0 {
		b.WriteString("- none\n")
	}
	for _, line := range AnomalyLines(r.Anomalies) {
		b.WriteString("- " + line + "\n")
	}

	if r.Corr != nil {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(r.opt.TopPairs) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(c.Name)))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func fixedWidth(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len([]rune(h))
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && len([]rune(c)) > widths[i] {
				widths[i] = len([]rune(c))
			}
		}
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			pad := widths[i] - len([]rune(c))
			if i == 0 {
				b.WriteString(c + strings.Repeat(" ", pad))
			} else {
				b.WriteString(strings.Repeat(" ", pad) + c)
			}
		}
		b.WriteString("\n")
	}
	writeRow(header)
	for _, r := range rows {
		writeRow(r)
	}
	return b.String()
}

// FormatNumber renders v rounded to two decimals in plain notation, NaN as "NaN".
func FormatNumber(v float64) string { return num(v) }

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return exact(v)
	}
	// +0 folds a rounded negative zero into "0".
	return strconv.FormatFloat(math.Round(v*100)/100+0, 'f', -1, 64)
}

// exact renders measured values unrounded, never in exponent notation.
func exact(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
