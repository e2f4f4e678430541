// -----------------------------------------------------------------------
// Collector - paginates the report month-by-month until the present,
// concatenating each page's normalized table.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

// FetcherFactory creates a fetcher session for one run. Injectable for tests.
type FetcherFactory func(ctx context.Context, runID string) (interfaces.PageFetcher, error)

// Collector drives repeated window fetches from a start month/year until the
// current real-world month, one page strictly after the other. A fresh
// fetcher session is created per run and torn down on every exit path.
type Collector struct {
	config     common.ScraperConfig
	logger     arbor.ILogger
	newFetcher FetcherFactory
	now        func() time.Time
}

// NewCollector creates a collector using the configured driver strategy.
func NewCollector(config common.ScraperConfig, logger arbor.ILogger) *Collector {
	c := &Collector{
		config: config,
		logger: logger,
		now:    time.Now,
	}
	c.newFetcher = func(ctx context.Context, runID string) (interfaces.PageFetcher, error) {
		return NewFetcher(ctx, config, runID, logger)
	}
	return c
}

// NewCollectorWithFactory creates a collector with a custom fetcher factory.
func NewCollectorWithFactory(config common.ScraperConfig, factory FetcherFactory, logger arbor.ILogger) *Collector {
	c := NewCollector(config, logger)
	c.newFetcher = factory
	return c
}

// Collect fetches the monthly table from the start window to the present and
// returns the concatenation in fetch order. Overlapping months across pages
// are preserved. Any per-window fatal error aborts the whole run.
func (c *Collector) Collect(ctx context.Context, scripCode string, startMonth, startYear int) (bse.MonthlyTable, error) {
	if err := c.validate(scripCode, startMonth, startYear); err != nil {
		return nil, err
	}

	runID := common.NewRunID()
	fetcher, err := c.newFetcher(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher session: %w", err)
	}
	defer fetcher.Close()

	limiter := rate.NewLimiter(rate.Every(c.config.PageInterval), 1)
	now := c.now()

	window := bse.FetchWindow{ScripCode: scripCode, Month: startMonth, Year: startYear}
	var table bse.MonthlyTable
	pages := 0

	c.logger.Info().
		Str("run_id", runID).
		Str("scrip", scripCode).
		Str("start", window.String()).
		Msg("Starting collection run")

	for window.OnOrBefore(now) {
		if c.config.MaxPages > 0 && pages >= c.config.MaxPages {
			return nil, fmt.Errorf("collection for scrip %s exceeded page cap of %d", scripCode, c.config.MaxPages)
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := fetcher.FetchMonthly(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", window, err)
		}
		pages++
		table = append(table, page...)

		c.logger.Info().
			Str("window", window.String()).
			Int("rows", len(page)).
			Int("total_rows", len(table)).
			Msg("Window fetched")

		next := c.nextWindow(window, page)
		if !strictlyAfter(next, window) {
			return nil, fmt.Errorf("pagination stalled: window %s did not advance past %s", next, window)
		}
		window = next
	}

	c.logger.Info().
		Str("run_id", runID).
		Int("pages", pages).
		Int("rows", len(table)).
		Msg("Collection run complete")

	return table, nil
}

// CollectQuarters runs Collect and reduces the result to quarter-end rows,
// most recent first.
func (c *Collector) CollectQuarters(ctx context.Context, scripCode string, startMonth, startYear int) ([]bse.QuarterRow, error) {
	table, err := c.Collect(ctx, scripCode, startMonth, startYear)
	if err != nil {
		return nil, err
	}
	return bse.FilterQuarters(table), nil
}

// nextWindow derives the next request window from the last row the page
// returned, since a single fetch can cover several months. Falls back to
// simple month+1 advancement when the last row does not parse.
func (c *Collector) nextWindow(current bse.FetchWindow, page bse.MonthlyTable) bse.FetchWindow {
	if len(page) == 0 {
		return current.Next()
	}

	last := page[len(page)-1].PeriodLabel
	month, ok := bse.MonthNumber(last)
	if !ok {
		return current.Next()
	}
	year, ok := labelYear(last)
	if !ok {
		return current.Next()
	}

	return bse.FetchWindow{ScripCode: current.ScripCode, Month: month, Year: year}.Next()
}

func (c *Collector) validate(scripCode string, startMonth, startYear int) error {
	if strings.TrimSpace(scripCode) == "" {
		return fmt.Errorf("scrip code is required")
	}
	if startMonth < 1 || startMonth > 12 {
		return fmt.Errorf("start month %d out of range 1-12", startMonth)
	}
	minYear := c.config.MinYear
	if minYear == 0 {
		minYear = 2000
	}
	if startYear < minYear {
		return fmt.Errorf("start year %d is before minimum %d", startYear, minYear)
	}
	return nil
}

func labelYear(label string) (int, bool) {
	parts := strings.Fields(label)
	if len(parts) < 2 {
		return 0, false
	}
	yy, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if yy < 100 {
		yy += 2000
	}
	return yy, true
}

func strictlyAfter(a, b bse.FetchWindow) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	return a.Month > b.Month
}
