package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

var plantRows = []string{
	"Datum;BOD (mg/L);COD (mg/L);Flow [m3/h];Operator",
	"2024-01-01;10;40,5;1.200,0;Jan",
	"2024-01-02;11;42,0;1.180,5;Piet",
	"2024-01-03;;39,8;1.210,0;Jan",
	"2024-01-04;12;n/a;1.190,0;Kees",
}

func TestLoadCSVSemicolonDecimalComma(t *testing.T) {
	ds, err := Load("plant.csv", strings.NewReader(strings.Join(plantRows, "\n")), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Rows() != 4 {
		t.Fatalf("rows = %d, want 4", ds.Rows())
	}
	want := []string{"Datum", "BOD (mg/L)", "COD (mg/L)", "Flow [m3/h]", "Operator"}
	got := ds.Names()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("names = %v, want %v", got, want)
	}

	datum, _ := ds.Column("Datum")
	if datum.Kind != KindDatetime {
		t.Fatalf("Datum kind = %s, want datetime", datum.Kind)
	}
	op, _ := ds.Column("Operator")
	if op.Kind != KindText || op.IsNumeric() {
		t.Fatalf("Operator kind = %s, want text", op.Kind)
	}

	bod, err := ds.Lookup("BOD (mg/L)")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if bod.Unit != "mg/L" {
		t.Fatalf("BOD unit = %q", bod.Unit)
	}
	if !math.IsNaN(bod.Values[2]) {
		t.Fatalf("missing BOD cell should be NaN, got %v", bod.Values[2])
	}
	if bod.Missing() != 1 {
		t.Fatalf("BOD missing = %d, want 1", bod.Missing())
	}
	rows, vals := bod.Present()
	if len(rows) != 3 || rows[2] != 3 || vals[2] != 12 {
		t.Fatalf("Present = %v %v", rows, vals)
	}

	cod, _ := ds.Column("COD (mg/L)")
	if cod.Values[0] != 40.5 || !math.IsNaN(cod.Values[3]) {
		t.Fatalf("COD values = %v", cod.Values)
	}
	flow, _ := ds.Column("Flow [m3/h]")
	if flow.Unit != "m3/h" || flow.Values[1] != 1180.5 {
		t.Fatalf("Flow = %q %v", flow.Unit, flow.Values)
	}

	num := ds.Numeric()
	if len(num) != 3 || num[0].Name != "BOD (mg/L)" || num[2].Name != "Flow [m3/h]" {
		t.Fatalf("Numeric() order wrong: %v", num)
	}
}

func TestLoadCSVExplicitLocale(t *testing.T) {
	in := "a,b\n\"1,234.5\",2\n\"2,000\",3\n"
	opt := DefaultOptions()
	opt.Delimiter = ','
	opt.DecimalSeparator = '.'
	opt.ThousandsSeparator = ','
	ds, err := Load("x.csv", strings.NewReader(in), opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, _ := ds.Column("a")
	if a.Values[0] != 1234.5 || a.Values[1] != 2000 {
		t.Fatalf("a = %v", a.Values)
	}
}

func TestLoadTSVAndRaggedRows(t *testing.T) {
	in := "x\ty\tz\n1\t2\n3\t4\t5\n"
	ds, err := Load("data.tsv", strings.NewReader(in), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	z, _ := ds.Column("z")
	if !z.IsNumeric() || !math.IsNaN(z.Values[0]) || z.Values[1] != 5 {
		t.Fatalf("z = %v kind %s", z.Values, z.Kind)
	}
}

func TestLoadHeaderCleanup(t *testing.T) {
	in := "\xef\xbb\xbfA,A,,A\n1,2,3,4\n"
	ds, err := Load("dup.csv", strings.NewReader(in), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "A|A.1|Unnamed: 2|A.2"
	if got := strings.Join(ds.Names(), "|"); got != want {
		t.Fatalf("names = %s, want %s", got, want)
	}
}

func TestUniqueNamesAvoidsExistingSuffix(t *testing.T) {
	got := uniqueNames([]string{"A", "A.1", "A"})
	if strings.Join(got, "|") != "A|A.1|A.2" {
		t.Fatalf("uniqueNames = %v", got)
	}
}

func TestLoadAllMissingColumnIsNumeric(t *testing.T) {
	ds, err := Load("m.csv", strings.NewReader("a,b\n1,\n2,NA\n"), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, _ := ds.Column("b")
	if !b.IsNumeric() {
		t.Fatalf("all-missing column kind = %s", b.Kind)
	}
	if _, vals := b.Present(); len(vals) != 0 {
		t.Fatalf("expected no present values, got %v", vals)
	}
}

func TestLoadEmptyAndUnsupported(t *testing.T) {
	if _, err := Load("empty.csv", strings.NewReader(""), DefaultOptions()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty input err = %v, want ErrEmpty", err)
	}
	if _, err := Load("old.xls", strings.NewReader("x"), DefaultOptions()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("xls err = %v, want ErrUnsupported", err)
	}
}

func TestHeadAndColumnNotFound(t *testing.T) {
	ds, err := Load("p.csv", strings.NewReader(strings.Join(plantRows, "\n")), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	head := ds.Head(2)
	if len(head) != 2 || head[1][4] != "Piet" {
		t.Fatalf("Head(2) = %v", head)
	}
	if len(ds.Head(100)) != 4 {
		t.Fatalf("Head should clamp to row count")
	}
	if _, err := ds.Lookup("pH"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Lookup err = %v", err)
	}
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	path := writeXLSXFixture(t)

	ds, err := LoadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile first sheet: %v", err)
	}
	if ds.Name != "plant.xlsx" || ds.Columns[0].Name != "Notes" {
		t.Fatalf("first sheet not selected: %s %v", ds.Name, ds.Names())
	}

	opt := DefaultOptions()
	opt.Sheet = "data"
	ds, err = LoadFile(path, opt)
	if err != nil {
		t.Fatalf("LoadFile Data sheet: %v", err)
	}
	nh4, err := ds.Lookup("NH4 (mg/L)")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !nh4.IsNumeric() || nh4.Values[1] != 2.5 {
		t.Fatalf("NH4 = %v kind %s", nh4.Values, nh4.Kind)
	}

	opt.Sheet = "Missing"
	if _, err := LoadFile(path, opt); err == nil || !strings.Contains(err.Error(), "Available sheets") {
		t.Fatalf("expected sheet error, got %v", err)
	}
}

func writeXLSXFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Notes"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if err := f.SetSheetRow("Notes", "A1", &[]interface{}{"Notes"}); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Datum", "NH4 (mg/L)", "PO4 (mg/L)"},
		{"2024-02-01", 3.1, 0.8},
		{"2024-02-02", 2.5, 0.9},
		{"2024-02-03", 2.9, 1.1},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Data", cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "plant.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat fixture: %v", err)
	}
	return path
}
