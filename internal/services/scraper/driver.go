// Package scraper implements the request drivers and paginating collector
// for the BSE monthly price history report page. Two interchangeable driver
// strategies sit behind one contract: an interactive browser strategy
// (chromedp) and a direct form-replay strategy (HTTP postback).
package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

// Driver strategy names, selected via scraper.strategy in config.
const (
	StrategyDirect  = "direct"
	StrategyBrowser = "browser"
)

// reportURL resolves the report page URL for a window, honoring a configured
// template override (used against test fixtures).
func reportURL(config common.ScraperConfig, window bse.FetchWindow) string {
	if config.ReportURL == "" {
		return window.URL()
	}
	if strings.Contains(config.ReportURL, "%s") {
		return fmt.Sprintf(config.ReportURL, window.ScripCode)
	}
	return config.ReportURL
}

// NewFetcher creates a fresh fetcher session for one pagination run, per the
// configured strategy. Sessions hold cookies, form tokens or a browser
// context and must never be reused across runs or scrip codes.
func NewFetcher(ctx context.Context, config common.ScraperConfig, runID string, logger arbor.ILogger) (interfaces.PageFetcher, error) {
	diag := NewDiagnostics(config.DebugDir, runID, logger)

	switch strings.ToLower(strings.TrimSpace(config.Strategy)) {
	case StrategyBrowser:
		return NewBrowserFetcher(ctx, config, diag, logger)
	case StrategyDirect, "":
		return NewDirectFetcher(config, diag, logger)
	default:
		return nil, fmt.Errorf("unknown scraper strategy %q", config.Strategy)
	}
}
