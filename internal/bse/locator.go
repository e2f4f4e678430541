package bse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxHeaderScanRows bounds the search for a header row embedded as data in
// tables that expose all-numeric placeholder column names.
const maxHeaderScanRows = 6

// Locate finds the monthly price history table in raw page markup.
//
// It first parses every table structurally and accepts the first whose header
// set contains both Month and Close. If none match, it falls back to a textual
// scan: any table fragment mentioning both words anywhere is re-parsed and
// returned for the normalizer to resolve. Returns *TableNotFoundError when
// both passes come up empty; callers should persist the markup for
// diagnostics before propagating.
func Locate(markup string) (*RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &TableNotFoundError{}
	}

	tables := doc.Find("table")

	var found *RawTable
	tables.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rt := parseTable(sel)
		promoteEmbeddedHeader(rt)
		if headerContains(rt.Header, "month") && headerContains(rt.Header, "close") {
			found = rt
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	// Textual fallback: the header match can fail on pages where the table is
	// oddly shaped, but the words still appear somewhere inside the fragment.
	tables.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(sel.Text())
		if strings.Contains(text, "month") && strings.Contains(text, "close") {
			rt := parseTable(sel)
			promoteEmbeddedHeader(rt)
			if len(rt.Header) > 0 || len(rt.Rows) > 0 {
				found = rt
				return false
			}
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	return nil, &TableNotFoundError{Tables: tables.Length()}
}

// parseTable reduces a table selection to its structural form. The first row
// supplies the header (th cells preferred, td cells otherwise); remaining
// rows become data.
func parseTable(sel *goquery.Selection) *RawTable {
	rt := &RawTable{}

	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if rt.Header == nil {
			rt.Header = cells
			return
		}
		rt.Rows = append(rt.Rows, cells)
	})

	return rt
}

// promoteEmbeddedHeader handles tables whose column names are all-numeric
// placeholders with the true header embedded as a data row. If such a row is
// found within the first few rows it becomes the header, and it plus
// everything before it is discarded.
func promoteEmbeddedHeader(rt *RawTable) {
	if !allNumeric(rt.Header) {
		return
	}

	limit := maxHeaderScanRows
	if len(rt.Rows) < limit {
		limit = len(rt.Rows)
	}
	for i := 0; i < limit; i++ {
		tokens := make(map[string]bool, len(rt.Rows[i]))
		for _, v := range rt.Rows[i] {
			tokens[strings.ToLower(strings.TrimSpace(v))] = true
		}
		if tokens["month"] && tokens["close"] {
			rt.Header = rt.Rows[i]
			rt.Rows = rt.Rows[i+1:]
			return
		}
	}
}

func headerContains(header []string, name string) bool {
	for _, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return true
		}
	}
	return false
}

func allNumeric(header []string) bool {
	if len(header) == 0 {
		return false
	}
	for _, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return false
		}
		for _, r := range h {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
