// Package bse provides the table extraction, normalization and quarter
// filtering logic for BSE monthly stock price history pages. The package is
// pure: it operates on markup strings and structural tables, with no network
// or browser dependencies.
package bse

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportURLTemplate is the BSE stock price history report page, keyed by scrip code.
const ReportURLTemplate = "https://www.bseindia.com/markets/equity/EQReports/StockPrcHistori.aspx?expandable=7&scripcode=%s&flag=sp&Submit=G"

// quarterMonths are the fiscal quarter-end month abbreviations.
var quarterMonths = map[string]int{
	"Mar": 0,
	"Jun": 1,
	"Sep": 2,
	"Dec": 3,
}

var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4,
	"May": 5, "Jun": 6, "Jul": 7, "Aug": 8,
	"Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// RawTable is a structural representation of a located HTML table: an ordered
// header and ordered data rows. Heuristics operate on this shape so they can
// be tested without markup fixtures.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// MonthlyRow is one row of the monthly price history in canonical form.
// PeriodLabel is the raw Month cell (e.g. "Mar 24" or "Mar 2024"). A close
// value that failed to parse is marked missing rather than dropped; the
// quarter filter decides what to do with it.
type MonthlyRow struct {
	PeriodLabel string          `json:"period_label"`
	Close       decimal.Decimal `json:"close"`
	HasClose    bool            `json:"has_close"`
}

// MonthlyTable is an ordered sequence of monthly rows, concatenated across
// page fetches. Overlapping months across consecutive pages are tolerated and
// preserved, not deduplicated.
type MonthlyTable []MonthlyRow

// QuarterRow is a quarter-end closing price. QuarterEnd is normalized to
// "<month-abbr-lowercase> <4-digit-year>". Immutable once produced.
type QuarterRow struct {
	QuarterEnd string          `json:"quarter_end"`
	Close      decimal.Decimal `json:"close"`
}

// FetchWindow identifies one page request: a scrip code plus the month/year
// the report form is set to. Consumed exactly once by a request driver.
type FetchWindow struct {
	ScripCode string
	Month     int // 1-12
	Year      int // 4-digit
}

// URL returns the report page URL for the window's scrip code.
func (w FetchWindow) URL() string {
	return fmt.Sprintf(ReportURLTemplate, strings.TrimSpace(w.ScripCode))
}

// Next returns the chronologically following window: month+1, rolling over
// to January of the next year after December.
func (w FetchWindow) Next() FetchWindow {
	next := w
	if w.Month >= 12 {
		next.Month = 1
		next.Year = w.Year + 1
	} else {
		next.Month = w.Month + 1
	}
	return next
}

// OnOrBefore reports whether the window is at or before the given time's
// month/year. The paginator uses this as its sole loop condition.
func (w FetchWindow) OnOrBefore(t time.Time) bool {
	if w.Year != t.Year() {
		return w.Year < t.Year()
	}
	return w.Month <= int(t.Month())
}

// After reports whether the window strictly exceeds the given time's
// month/year.
func (w FetchWindow) After(t time.Time) bool {
	return !w.OnOrBefore(t)
}

func (w FetchWindow) String() string {
	return fmt.Sprintf("%s %02d/%04d", w.ScripCode, w.Month, w.Year)
}
