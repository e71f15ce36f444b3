package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

// Normalize coerces every bound numeric-role column to a float series.
// Each value that fails to parse becomes NaN, one marker per invalid token.
// Columns that are already floats pass through untouched, so normalizing an
// already-normalized frame is exactly a no-op.
func Normalize(df dataframe.DataFrame, sm schema.Map) dataframe.DataFrame {
	out := df
	for _, role := range schema.NumericRoles {
		col, ok := sm.Column(role)
		if !ok {
			continue
		}
		s := out.Col(col)
		if s.Err != nil || s.Type() == series.Float {
			continue
		}
		recs := s.Records()
		vals := make([]float64, len(recs))
		for i, r := range recs {
			v, ok := parseNumber(r)
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		out = out.Mutate(series.New(vals, series.Float, col))
	}
	return out
}

// parseNumber parses a numeric token, tolerating percent signs, non-breaking
// spaces and locale separators. The decimal separator is detected per value:
// when both ',' and '.' appear, the rightmost wins.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)

	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	dec := '.'
	if cpos >= 0 && (dpos < 0 || cpos > dpos) {
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
