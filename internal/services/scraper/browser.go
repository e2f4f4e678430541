// -----------------------------------------------------------------------
// Browser driver - drives the report form interactively via chromedp.
// Selector attempts run as ordered, named in-page strategies so every
// failure path is inspectable rather than silently swallowed.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
)

// BrowserFetcher owns one Chrome browser context for the duration of a
// pagination run. Each FetchMonthly opens a fresh tab against that browser.
type BrowserFetcher struct {
	config        common.ScraperConfig
	logger        arbor.ILogger
	diag          *Diagnostics
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewBrowserFetcher launches a headless Chrome instance for one run.
func NewBrowserFetcher(ctx context.Context, config common.ScraperConfig, diag *Diagnostics, logger arbor.ILogger) (*BrowserFetcher, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(config.UserAgent),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
	}
	if config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	// Startup test so a broken Chrome install fails the run immediately.
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	return &BrowserFetcher{
		config:        config,
		logger:        logger,
		diag:          diag,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// FetchMonthly loads the report page, switches to monthly mode, sets the
// target month/year, submits, and polls for the result table across frames.
func (f *BrowserFetcher) FetchMonthly(ctx context.Context, window bse.FetchWindow) (bse.MonthlyTable, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.browserCtx)
	defer tabCancel()

	pageCtx, pageCancel := context.WithTimeout(tabCtx, f.config.PageTimeout)
	defer pageCancel()

	pageURL := reportURL(f.config, window)

	f.logger.Info().
		Str("window", window.String()).
		Str("url", pageURL).
		Msg("Navigating to report page")

	if err := chromedp.Run(pageCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(time.Second),
	); err != nil {
		f.savePageArtifacts(pageCtx, "timeout_goto")
		return nil, &bse.NavigationTimeoutError{Window: window}
	}

	var radioStrategy string
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(selectMonthlyJS, &radioStrategy)); err != nil {
		f.logger.Warn().Err(err).Msg("Monthly radio selection script failed")
	}
	if radioStrategy == "" {
		f.logger.Warn().Msg("Could not assert Monthly radio, continuing anyway")
	} else {
		f.logger.Debug().Str("strategy", radioStrategy).Msg("Monthly radio selected")
	}

	// Selects may be created by a postback triggered from the radio click.
	if err := chromedp.Run(pageCtx, chromedp.Sleep(800*time.Millisecond)); err != nil {
		return nil, &bse.NavigationTimeoutError{Window: window}
	}

	var dropdowns struct {
		Month bool `json:"month"`
		Year  bool `json:"year"`
	}
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(setMonthYearJS(window), &dropdowns)); err != nil {
		f.logger.Warn().Err(err).Msg("Month/year dropdown script failed")
	}
	f.logger.Debug().
		Bool("month_set", dropdowns.Month).
		Bool("year_set", dropdowns.Year).
		Msg("Dropdown state after selection")

	var submitStrategy string
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(submitJS, &submitStrategy)); err != nil {
		f.logger.Warn().Err(err).Msg("Submit script failed")
	}
	if submitStrategy == "" {
		f.logger.Warn().Msg("No submit control matched and no postback hook present")
	} else {
		f.logger.Debug().Str("strategy", submitStrategy).Msg("Form submitted")
	}

	// Allow the postback to land before the first poll.
	if err := chromedp.Run(pageCtx, chromedp.Sleep(1200*time.Millisecond)); err != nil {
		return nil, &bse.NavigationTimeoutError{Window: window}
	}

	fragment := f.pollForTable(pageCtx, window)
	if fragment == "" {
		f.savePageArtifacts(pageCtx, "no_table_final")
		return nil, &bse.NavigationTimeoutError{Window: window, Attempts: f.config.TableRetries}
	}

	return locateAndNormalize("<html><body>" + fragment + "</body></html>")
}

// Close tears down the browser and allocator on every exit path.
func (f *BrowserFetcher) Close() {
	if f.browserCancel != nil {
		f.browserCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}
}

// pollForTable retries a bounded number of times with a fixed delay, scanning
// the page and every same-origin frame for a table mentioning Month and Close.
func (f *BrowserFetcher) pollForTable(ctx context.Context, window bse.FetchWindow) string {
	attempts := f.config.TableRetries
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		var fragment string
		if err := chromedp.Run(ctx, chromedp.Evaluate(findTableJS, &fragment)); err != nil {
			f.logger.Debug().Err(err).Int("attempt", attempt).Msg("Table scan failed")
		} else if fragment != "" {
			f.logger.Debug().Int("attempt", attempt).Msg("Monthly table captured")
			return fragment
		}

		if attempt < attempts {
			if err := chromedp.Run(ctx, chromedp.Sleep(f.config.RetryDelay)); err != nil {
				return ""
			}
		}
	}

	f.logger.Warn().
		Str("window", window.String()).
		Int("attempts", attempts).
		Msg("Monthly table not found after submit and frame scan")
	return ""
}

// savePageArtifacts dumps current markup and a screenshot for offline
// inspection. Best-effort: runs on an already-degraded page.
func (f *BrowserFetcher) savePageArtifacts(ctx context.Context, stage string) {
	var markup string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &markup)); err == nil {
		f.diag.SaveMarkup(stage, markup)
	}

	var shot []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&shot)); err == nil {
		f.diag.SaveScreenshot(stage, shot)
	}
}

// selectMonthlyJS tries the known ways of switching the report to monthly
// mode, in order, returning the name of the first that matched.
const selectMonthlyJS = `(() => {
	const labels = Array.from(document.querySelectorAll('label'));
	const lab = labels.find(l => /monthly/i.test(l.textContent || ''));
	if (lab) { lab.click(); return 'label'; }

	const radios = Array.from(document.querySelectorAll('input[type=radio]'));
	const radio = radios.find(r => /month/i.test(r.id || '') || r.value === 'M' || /month/i.test(r.value || ''));
	if (radio) { radio.click(); radio.checked = true; return 'radio'; }

	return '';
})()`

// submitJS tries submit controls in order, falling back to the page's
// generic postback mechanism.
const submitJS = `(() => {
	const controls = Array.from(document.querySelectorAll('input[type=submit], button'));
	const named = controls.find(c => /submit/i.test(c.value || c.textContent || ''));
	if (named) { named.click(); return 'named-submit'; }

	const anySubmit = document.querySelector('input[type=submit]');
	if (anySubmit) { anySubmit.click(); return 'submit-input'; }

	if (typeof __doPostBack === 'function') { __doPostBack('', ''); return 'postback'; }

	return '';
})()`

// findTableJS scans the main document and every same-origin frame for a
// table whose text mentions both Month and Close, returning its outer HTML.
const findTableJS = `(() => {
	const roots = [document];
	for (const fr of Array.from(window.frames)) {
		try { if (fr.document) roots.push(fr.document); } catch (e) {}
	}
	for (const root of roots) {
		for (const t of Array.from(root.querySelectorAll('table'))) {
			const txt = t.innerText || t.textContent || '';
			if (/month/i.test(txt) && /close/i.test(txt)) return t.outerHTML;
		}
	}
	return '';
})()`

// setMonthYearJS builds the dropdown-selection script for a window. The
// month select is recognized by its options starting with month names, the
// year select by containing the target year.
func setMonthYearJS(window bse.FetchWindow) string {
	return fmt.Sprintf(`(() => {
	const roots = [document];
	for (const fr of Array.from(window.frames)) {
		try { if (fr.document) roots.push(fr.document); } catch (e) {}
	}

	const monthCandidates = ['%02d', '%d'];
	const year = '%d';
	let gotMonth = false, gotYear = false;

	const pick = (sel, match) => {
		const idx = Array.from(sel.options).findIndex(match);
		if (idx < 0) return false;
		sel.selectedIndex = idx;
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	};

	for (const root of roots) {
		for (const sel of Array.from(root.querySelectorAll('select'))) {
			const texts = Array.from(sel.options).map(o => (o.textContent || '').trim().toLowerCase());
			if (!gotMonth && texts.some(t => t.startsWith('jan'))) {
				for (const cand of monthCandidates) {
					if (pick(sel, o => o.value === cand || (o.textContent || '').trim() === cand)) {
						gotMonth = true;
						break;
					}
				}
			}
			if (!gotYear && texts.some(t => t.includes(year))) {
				if (pick(sel, o => o.value === year || (o.textContent || '').trim() === year)) {
					gotYear = true;
				}
			}
		}
		if (gotMonth && gotYear) break;
	}

	return { month: gotMonth, year: gotYear };
})()`, window.Month, window.Month, window.Year)
}
