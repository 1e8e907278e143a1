package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

var plantRows = []string{
	"BOD (mg/L),COD (mg/L),Flow [m3/h],Operator",
	"10,40,1200,Jan",
	"11,44,1180,Piet",
	"9,36,1210,Jan",
	"12,48,1190,Kees",
	"100,400,1205,Jan",
	"10,40,1195,Piet",
}

var bod = []float64{10, 11, 9, 12, 100, 10}

func loadRows(t *testing.T, rows []string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load("plant.csv", strings.NewReader(strings.Join(rows, "\n")), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ds
}

func column(t *testing.T, ds *dataset.Dataset, name string) *dataset.Column {
	t.Helper()
	c, err := ds.Lookup(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	return c
}

func TestDetectOutliersBODExample(t *testing.T) {
	ds := loadRows(t, plantRows)
	col := column(t, ds, "BOD (mg/L)")

	mu := mean(bod)
	sigma := sampleStd(bod)
	lo, hi, ok := Band(col)
	if !ok {
		t.Fatalf("band undefined")
	}
	if !almostEqual(lo, mu-2*sigma, 1e-9) || !almostEqual(hi, mu+2*sigma, 1e-9) {
		t.Fatalf("band = [%v, %v], want [%v, %v]", lo, hi, mu-2*sigma, mu+2*sigma)
	}

	got := DetectOutliers(col)
	var want []Anomaly
	for i, v := range bod {
		if v > mu+2*sigma || v < mu-2*sigma {
			want = append(want, Anomaly{Column: "BOD (mg/L)", Row: i, Value: v})
		}
	}
	if len(want) != 1 || want[0].Row != 4 {
		t.Fatalf("closed-form expectation changed: %v", want)
	}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("DetectOutliers = %v, want %v", got, want)
	}
}

func TestDetectOutliersEdgeCases(t *testing.T) {
	ds := loadRows(t, []string{
		"const,single,gaps,text",
		"5,1,1,a",
		"5,,,b",
		"5,,1,c",
		"5,,1,d",
		"5,,1,e",
		"5,,1,f",
		"5,,50,g",
	})
	if got := DetectOutliers(column(t, ds, "const")); len(got) != 0 {
		t.Fatalf("constant column flagged: %v", got)
	}
	if got := DetectOutliers(column(t, ds, "single")); len(got) != 0 {
		t.Fatalf("single-value column flagged: %v", got)
	}
	if _, _, ok := Band(column(t, ds, "single")); ok {
		t.Fatalf("band should be undefined for one value")
	}
	text := column(t, ds, "text")
	if got := DetectOutliers(text); len(got) != 0 {
		t.Fatalf("text column flagged: %v", got)
	}
	if err := RequireNumeric(text); !errors.Is(err, ErrNonNumericColumn) {
		t.Fatalf("RequireNumeric(text) = %v", err)
	}

	gaps := column(t, ds, "gaps")
	got := DetectOutliers(gaps)
	if len(got) != 1 || got[0].Row != 6 || got[0].Value != 50 {
		t.Fatalf("gaps anomalies = %v (missing rows must be skipped, indices kept)", got)
	}
}

func TestDetectOutliersBandIsStrict(t *testing.T) {
	// mean 0 and sample σ 1 for {-1, 0, 1}; k=1 puts -1 and 1 exactly on the band
	ds := loadRows(t, []string{"v", "-1", "0", "1"})
	if got := DetectOutliersK(column(t, ds, "v"), 1); len(got) != 0 {
		t.Fatalf("values on the band edge must not be flagged: %v", got)
	}
}

func TestDetectAllOrdering(t *testing.T) {
	ds := loadRows(t, plantRows)
	all := DetectAll(ds)
	if len(all) < 2 {
		t.Fatalf("expected anomalies in BOD and COD, got %v", all)
	}
	if all[0].Column != "BOD (mg/L)" || all[1].Column != "COD (mg/L)" {
		t.Fatalf("DetectAll not in column order: %v", all)
	}
	counts := CountByColumn(all)
	if counts["BOD (mg/L)"] != 1 || counts["Operator"] != 0 {
		t.Fatalf("CountByColumn = %v", counts)
	}
}

func TestComputeCorrelation(t *testing.T) {
	ds := loadRows(t, []string{"A,B,C", "1,5,2", "2,4,9", "3,3,4", "4,2,1", "5,1,7"})
	m, err := ComputeCorrelation(ds)
	if err != nil {
		t.Fatalf("ComputeCorrelation: %v", err)
	}
	if !equalStrings(m.Columns, []string{"A", "B", "C"}) {
		t.Fatalf("columns = %v", m.Columns)
	}
	if r, _ := m.At("A", "B"); !almostEqual(r, -1, 1e-12) {
		t.Fatalf("r(A,B) = %v, want -1", r)
	}
	wantAC := correlation([]float64{1, 2, 3, 4, 5}, []float64{2, 9, 4, 1, 7})
	if r, _ := m.At("A", "C"); !almostEqual(r, wantAC, 1e-12) {
		t.Fatalf("r(A,C) = %v, want %v", r, wantAC)
	}
	for i := range m.Columns {
		if m.Values[i][i] != 1 {
			t.Fatalf("diagonal[%d] = %v", i, m.Values[i][i])
		}
		for j := range m.Columns {
			if m.Values[i][j] != m.Values[j][i] {
				t.Fatalf("not symmetric at %d,%d", i, j)
			}
			if m.Values[i][j] < -1 || m.Values[i][j] > 1 {
				t.Fatalf("out of range at %d,%d: %v", i, j, m.Values[i][j])
			}
		}
	}
	top := m.TopPairs(1)
	if len(top) != 1 || top[0].A != "A" || top[0].B != "B" {
		t.Fatalf("TopPairs(1) = %v", top)
	}
	if tbl := m.Table(); !strings.Contains(tbl, "-1.000") {
		t.Fatalf("table missing coefficient:\n%s", tbl)
	}
}

func TestComputeCorrelationThreeRowAntiPattern(t *testing.T) {
	ds := loadRows(t, []string{"A,B", "1,3", "2,2", "3,1"})
	m, err := ComputeCorrelation(ds)
	if err != nil {
		t.Fatalf("ComputeCorrelation: %v", err)
	}
	if r, ok := m.At("B", "A"); !ok || !almostEqual(r, -1, 1e-12) {
		t.Fatalf("r(B,A) = %v, want -1", r)
	}
	if r, _ := m.At("A", "A"); r != 1 {
		t.Fatalf("r(A,A) = %v, want 1", r)
	}
}

func TestComputeCorrelationPairwiseComplete(t *testing.T) {
	ds := loadRows(t, []string{"x,y,flat", "1,2,3", "2,,3", "3,6,3", "4,8,3"})
	m, err := ComputeCorrelation(ds)
	if err != nil {
		t.Fatalf("ComputeCorrelation: %v", err)
	}
	if r, _ := m.At("x", "y"); !almostEqual(r, 1, 1e-12) {
		t.Fatalf("r(x,y) = %v, want 1 over complete rows", r)
	}
	if r, _ := m.At("x", "flat"); r != 0 {
		t.Fatalf("zero-variance pair = %v, want 0", r)
	}
	if r, _ := m.At("flat", "flat"); r != 1 {
		t.Fatalf("diagonal of constant column = %v, want 1", r)
	}
}

func TestComputeCorrelationInsufficientColumns(t *testing.T) {
	ds := loadRows(t, []string{"BOD,Operator", "1,Jan", "2,Piet"})
	m, err := ComputeCorrelation(ds)
	if !errors.Is(err, ErrInsufficientColumns) || m != nil {
		t.Fatalf("got %v, %v; want ErrInsufficientColumns", m, err)
	}
}

func TestDescribe(t *testing.T) {
	ds := loadRows(t, plantRows)
	st := Describe(ds)
	if len(st) != 3 {
		t.Fatalf("Describe returned %d columns, want 3", len(st))
	}
	s := st[0]
	if s.Name != "BOD (mg/L)" || s.Unit != "mg/L" || s.Count != len(bod) {
		t.Fatalf("unexpected header stats: %+v", s)
	}
	if !almostEqual(s.Mean, mean(bod), 1e-9) || !almostEqual(s.Std, sampleStd(bod), 1e-9) {
		t.Fatalf("mean/std = %v/%v", s.Mean, s.Std)
	}
	if s.Min != minFloat(bod) || s.Max != maxFloat(bod) {
		t.Fatalf("min/max = %v/%v", s.Min, s.Max)
	}
	// sorted: 9 10 10 11 12 100
	if s.Median != 10.5 || s.Q25 != 10 || !almostEqual(s.Q75, 11.75, 1e-12) {
		t.Fatalf("quartiles = %v %v %v", s.Q25, s.Median, s.Q75)
	}

	one := DescribeColumn(column(t, loadRows(t, []string{"v", "3"}), "v"))
	if one.Count != 1 || one.Mean != 3 || !math.IsNaN(one.Std) {
		t.Fatalf("single value stats = %+v", one)
	}
}

func TestAnalyzeMarkdown(t *testing.T) {
	ds := loadRows(t, plantRows)
	rep := Analyze(ds, DefaultOptions())
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: plant.csv",
		"Rows: 6",
		"BOD (mg/L) [mg/L]: numeric",
		"Operator: text",
		"[STATISTICS]",
		"[ANOMALIES]",
		"BOD (mg/L), rij 4: 100",
		"[CORRELATIONS]",
		"BOD (mg/L) ~ COD (mg/L): r=1.000",
		"[HEAD]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	text := loadRows(t, []string{"Operator", "Jan"})
	md = Analyze(text, DefaultOptions()).Markdown()
	if !strings.Contains(md, "correlation skipped") || !strings.Contains(md, "no numeric columns") {
		t.Fatalf("expected notes for text-only dataset:\n%s", md)
	}
}

func TestStatsTableAligned(t *testing.T) {
	tbl := StatsTable([]ColumnStats{{Name: "BOD", Count: 2, Mean: 1, Std: math.NaN(), Min: 1, Q25: 1, Median: 1, Q75: 1, Max: 1}})
	lines := strings.Split(strings.TrimRight(tbl, "\n"), "\n")
	if len(lines) != 2 || len(lines[0]) != len(lines[1]) {
		t.Fatalf("table not aligned:\n%s", tbl)
	}
	if !strings.Contains(lines[1], "NaN") {
		t.Fatalf("NaN std not rendered: %s", lines[1])
	}
}

func TestAnomalyLinesKeepMeasuredValue(t *testing.T) {
	got := AnomalyLines([]Anomaly{
		{Column: "Flow", Row: 4, Value: 15234},
		{Column: "Flow", Row: 5, Value: 15236},
		{Column: "Flow", Row: 6, Value: 1234567},
		{Column: "pH", Row: 2, Value: 0.0051},
	})
	want := []string{"Flow, rij 4: 15234", "Flow, rij 5: 15236", "Flow, rij 6: 1234567", "pH, rij 2: 0.0051"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatsLargeValuesPlainNotation(t *testing.T) {
	cs := ColumnStats{Name: "Flow", Count: 3, Mean: 15234.5678, Std: 1.005, Min: 1234567, Q25: -0.001, Median: 15236, Q75: 15236, Max: 1234567}
	tbl := StatsTable([]ColumnStats{cs})
	block := ColumnBlock(cs)
	for _, out := range []string{tbl, block} {
		if strings.Contains(out, "e+") {
			t.Fatalf("exponent notation in output:\n%s", out)
		}
		for _, want := range []string{"15234.57", "1234567", "15236"} {
			if !strings.Contains(out, want) {
				t.Fatalf("missing %q in:\n%s", want, out)
			}
		}
		if strings.Contains(out, "-0 ") || strings.Contains(out, "-0\n") {
			t.Fatalf("negative zero rendered:\n%s", out)
		}
	}
	if got := FormatNumber(12.345678); got != "12.35" {
		t.Fatalf("FormatNumber = %q", got)
	}
	if got := FormatNumber(math.NaN()); got != "NaN" {
		t.Fatalf("FormatNumber(NaN) = %q", got)
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func correlation(a, b []float64) float64 {
	ma := mean(a)
	mb := mean(b)
	var cov, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		da2 += da * da
		db2 += db * db
	}
	if da2 == 0 || db2 == 0 {
		return 0
	}
	return cov / math.Sqrt(da2*db2)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
