package interfaces

import (
	"context"
	"time"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
)

// PageFetcher obtains one monthly window of price history from the report
// page. Implementations own transport state (browser context or HTTP session
// with cookies and form tokens) that persists across fetches within one
// pagination run. A fetcher must not be shared across runs or scrip codes;
// create a fresh one per run and Close it on every exit path.
type PageFetcher interface {
	// FetchMonthly drives the report form to the given window and returns
	// the located, normalized monthly table for that page.
	FetchMonthly(ctx context.Context, window bse.FetchWindow) (bse.MonthlyTable, error)

	// Close releases browser/HTTP resources held by the session.
	Close()
}

// QuoteCollector paginates the report month-by-month from a start window to
// the present and derives quarter-end closing prices.
type QuoteCollector interface {
	Collect(ctx context.Context, scripCode string, startMonth, startYear int) (bse.MonthlyTable, error)
	CollectQuarters(ctx context.Context, scripCode string, startMonth, startYear int) ([]bse.QuarterRow, error)
}

// Snapshot is a cached collection result for one scrip code.
type Snapshot struct {
	ScripCode   string           `json:"scrip_code"`
	StartMonth  int              `json:"start_month"`
	StartYear   int              `json:"start_year"`
	CollectedAt time.Time        `json:"collected_at"`
	Rows        []bse.QuarterRow `json:"rows"`
}

// SnapshotStore persists collection snapshots keyed by scrip code.
type SnapshotStore interface {
	Put(snapshot *Snapshot) error
	Get(scripCode string) (*Snapshot, bool, error)
	Close() error
}
