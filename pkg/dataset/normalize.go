package dataset

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// missing cell markers, the usual dataframe null tokens, matched as written.
// Other tokens such as "-" or "Néant" are values.
var naValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// numberNoise is stripped from numeric cells before parsing ("12 500,50 €").
var numberNoise = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"€", "",
	"EUR", "",
	"eur", "",
)

// normalizeCell trims the value and recomposes accents (NFC), so that an
// "É" exported as E + combining acute compares equal to the precomposed one.
func normalizeCell(v string) string {
	return strings.TrimSpace(norm.NFC.String(v))
}

// normalizeHeader strips a UTF-8 BOM and normalizes every header cell.
func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		out[i] = normalizeCell(strings.TrimPrefix(v, "\ufeff"))
	}
	return out
}

// FoldKey is the case-insensitive comparison key used for themes, statuses
// and priority flags.
func FoldKey(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// ContainsFold reports whether substr is within s, ignoring case.
// An empty s never matches: it stands for a missing cell.
func ContainsFold(s, substr string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(FoldKey(s), FoldKey(substr))
}

func isMissing(v string) bool {
	_, ok := naValues[v]
	return ok
}

// parseNumber parses French or English formatted numbers.
// ok is false when the cell is missing.
func parseNumber(raw string) (value float64, ok bool, err error) {
	v := normalizeCell(raw)
	if isMissing(v) {
		return 0, false, nil
	}
	s := normalizeDecimal(numberNoise.Replace(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, nil
	}
	return f, true, nil
}

// normalizeDecimal turns "1.234,5" / "1,234.5" / "1234,5" into "1234.5".
// The last separator is the decimal one; a repeated separator is a thousands one.
func normalizeDecimal(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
