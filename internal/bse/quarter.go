package bse

import (
	"sort"
	"strconv"
	"strings"
)

// FilterQuarters selects the quarter-end rows (Mar/Jun/Sep/Dec) from a
// concatenated monthly table, dropping rows with missing closes, and returns
// them most recent quarter first. Duplicate months surviving page overlap are
// preserved as-is.
func FilterQuarters(table MonthlyTable) []QuarterRow {
	type keyed struct {
		row   QuarterRow
		year  int
		qIdx  int
		order int
	}

	var out []keyed
	for i, mr := range table {
		if !mr.HasClose {
			continue
		}
		label, year, qIdx, ok := normalizeQuarterLabel(mr.PeriodLabel)
		if !ok {
			continue
		}
		out = append(out, keyed{
			row:   QuarterRow{QuarterEnd: label, Close: mr.Close},
			year:  year,
			qIdx:  qIdx,
			order: i,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].year != out[j].year {
			return out[i].year > out[j].year
		}
		return out[i].qIdx > out[j].qIdx
	})

	rows := make([]QuarterRow, len(out))
	for i, k := range out {
		rows[i] = k.row
	}
	return rows
}

// NormalizeQuarterLabel converts a period label like "Mar 24" or "mar 2024"
// to the canonical "mar 2024" form. Returns false for labels that are not
// quarter-end months or do not parse. Normalization is idempotent.
func NormalizeQuarterLabel(label string) (string, bool) {
	normalized, _, _, ok := normalizeQuarterLabel(label)
	return normalized, ok
}

func normalizeQuarterLabel(label string) (string, int, int, bool) {
	parts := strings.Fields(strings.TrimSpace(label))
	if len(parts) < 2 {
		return "", 0, 0, false
	}

	token := parts[0]
	if len(token) < 3 {
		return "", 0, 0, false
	}
	abbr := titleCase(token)[:3]
	qIdx, ok := quarterMonths[abbr]
	if !ok {
		return "", 0, 0, false
	}

	yy, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, false
	}
	if yy < 100 {
		yy += 2000
	}

	return strings.ToLower(abbr) + " " + strconv.Itoa(yy), yy, qIdx, true
}

// MonthNumber maps a period label's month token to 1-12, for window
// advancement off the last fetched row.
func MonthNumber(label string) (int, bool) {
	parts := strings.Fields(strings.TrimSpace(label))
	if len(parts) == 0 || len(parts[0]) < 3 {
		return 0, false
	}
	n, ok := monthNumbers[titleCase(parts[0])[:3]]
	return n, ok
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
