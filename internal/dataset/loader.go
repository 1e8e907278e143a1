package dataset

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how a tabular file is parsed.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{}
}

// Loader parses one tabular format into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(name string, r io.Reader, opt Options) (*Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(xlsxLoader{})
	Register(csvLoader{})
}

// Binary formats that are recognised but not parsed.
var unsupportedExt = map[string]struct{}{
	".xls": {}, ".xlsm": {}, ".ods": {}, ".pdf": {}, ".docx": {}, ".parquet": {},
}

// Load selects a loader by file name and parses r. Names no loader claims
// are parsed as CSV, matching an upload of unknown extension.
func Load(name string, r io.Reader, opt Options) (*Dataset, error) {
	if _, bad := unsupportedExt[strings.ToLower(filepath.Ext(name))]; bad {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	for _, l := range registry {
		if l.CanLoad(name) {
			return l.Load(name, r, opt)
		}
	}
	return csvLoader{}.Load(name, r, opt)
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opt)
}

// fromRecords builds a Dataset from a header and string rows. Column kinds
// are inferred: numeric when every non-missing cell parses as a number
// (an all-missing column counts as numeric), datetime when every non-missing
// cell parses as a date, text otherwise.
func fromRecords(name string, header []string, records [][]string, opt Options) (*Dataset, error) {
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	names := uniqueNames(header)
	ds := &Dataset{Name: name, rows: len(records)}
	for j, colName := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		_, unit := splitUnits(colName)
		col := &Column{Name: colName, Unit: unit, Raw: raw}
		col.Kind, col.Values = infer(raw, opt)
		ds.Columns = append(ds.Columns, col)
	}
	return ds, nil
}

func infer(raw []string, opt Options) (Kind, []float64) {
	values := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		if isMissing(s) {
			values[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, opt)
		if !ok {
			numeric = false
			break
		}
		values[i] = x
	}
	if numeric {
		return KindNumeric, values
	}
	for _, s := range raw {
		if isMissing(s) {
			continue
		}
		if _, ok := parseTimeMaybe(s); !ok {
			return KindText, nil
		}
	}
	return KindDatetime, nil
}

// uniqueNames fills empty header cells and de-duplicates repeated names
// ("A", "A.1", "A.2").
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := map[string]struct{}{}
	counts := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := used[n]; dup {
			base := n
			for k := counts[base] + 1; ; k++ {
				cand := fmt.Sprintf("%s.%d", base, k)
				if _, taken := used[cand]; !taken {
					counts[base] = k
					n = cand
					break
				}
			}
		}
		used[n] = struct{}{}
		out[i] = n
	}
	return out
}
