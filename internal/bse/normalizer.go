package bse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var footnoteRe = regexp.MustCompile(`(?i)\*\s*spread|high-?low`)
var closeWordRe = regexp.MustCompile(`(?i)\bclose\b`)

// Normalize reduces a located raw table to the canonical two-column monthly
// schema. Rows with unparseable close values are retained with the missing
// marker; deciding their fate belongs to the quarter filter. Returns
// *SchemaError when no Month or Close column is resolvable after cleanup.
func Normalize(rt *RawTable) (MonthlyTable, error) {
	header := make([]string, len(rt.Header))
	for i, h := range rt.Header {
		header[i] = strings.TrimSpace(flattenLabel(h))
	}

	rows := make([][]string, 0, len(rt.Rows))
	for _, row := range rt.Rows {
		if len(row) == 0 {
			continue
		}
		first := strings.ToLower(strings.TrimSpace(row[0]))
		if first == "month" {
			continue // residual duplicate header row
		}
		if footnoteRe.MatchString(row[0]) {
			continue // footnote / legend line
		}
		rows = append(rows, row)
	}

	monthIdx, ok := ResolveMonthColumn(header)
	if !ok {
		return nil, &SchemaError{Missing: "month", Columns: header}
	}
	closeIdx, ok := ResolveCloseColumn(header)
	if !ok {
		return nil, &SchemaError{Missing: "close", Columns: header}
	}

	table := make(MonthlyTable, 0, len(rows))
	for _, row := range rows {
		if monthIdx >= len(row) {
			continue
		}
		mr := MonthlyRow{PeriodLabel: strings.TrimSpace(row[monthIdx])}
		if closeIdx < len(row) {
			mr.Close, mr.HasClose = parseClose(row[closeIdx])
		}
		table = append(table, mr)
	}

	return table, nil
}

// ResolveMonthColumn finds the Month column index: exact case-insensitive
// match first, substring match second.
func ResolveMonthColumn(columns []string) (int, bool) {
	for i, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), "month") {
			return i, true
		}
	}
	for i, c := range columns {
		if strings.Contains(strings.ToLower(c), "month") {
			return i, true
		}
	}
	return 0, false
}

// ResolveCloseColumn finds the Close column index: exact match on "close" or
// "close*" first (the report sometimes stars the column), whole-word
// substring match second.
func ResolveCloseColumn(columns []string) (int, bool) {
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if strings.EqualFold(c, "close") || strings.EqualFold(c, "close*") {
			return i, true
		}
	}
	for i, c := range columns {
		if closeWordRe.MatchString(c) {
			return i, true
		}
	}
	return 0, false
}

// flattenLabel reduces a multi-level column label to its most specific
// component: the last non-empty line of the cell text.
func flattenLabel(label string) string {
	parts := strings.Split(label, "\n")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" && !strings.EqualFold(p, "nan") {
			return p
		}
	}
	return ""
}

// parseClose parses a raw close cell, stripping thousands separators. A value
// that will not parse is reported missing, never an error.
func parseClose(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
