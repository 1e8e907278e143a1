package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NA markers recognised as missing, in addition to the empty string.
var naTokens = map[string]struct{}{
	"na": {}, "n/a": {}, "nan": {}, "-nan": {}, "null": {}, "none": {},
	"#n/a": {}, "#na": {}, "<na>": {},
}

func isMissing(s string) bool {
	v := strings.TrimSpace(s)
	if v == "" {
		return true
	}
	_, ok := naTokens[strings.ToLower(v)]
	return ok
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02-01-2006", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "02-01-2006 15:04", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses s honoring the configured separators. With a zero
// DecimalSeparator the separator is auto-detected per value: when both ','
// and '.' occur the last one is the decimal mark, a lone ',' is decimal.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // BOD (mg/L)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // Flow [m3/h]
	regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|mg/l|m3/h|m3/d|°C|%|ppm|ppb)$`),
}

// splitUnits extracts a unit suffix from a header such as "NH4 (mg/L)".
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// sniffDelimiter picks the most frequent candidate delimiter in the header
// line, defaulting to ','.
func sniffDelimiter(name string, firstLine string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(firstLine, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
