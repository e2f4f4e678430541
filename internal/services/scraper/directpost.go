// -----------------------------------------------------------------------
// Direct-post driver - replays the report page's WebForms postback without
// a browser. Harvests hidden state tokens from an initial GET, overlays the
// month/year window, and posts the form; falls back to the download postback
// when the response carries no parseable table.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
)

const fieldPrefix = "ctl00$ContentPlaceHolder1$"

// requiredTokens are the WebForms state fields without which no postback can
// succeed. Their absence is fatal for the whole run.
var requiredTokens = []string{"__VIEWSTATE", "__VIEWSTATEGENERATOR", "__EVENTVALIDATION"}

// searchMirrors are the search-box fields the page validates as mandatory.
// They are populated from the company display value already present in the
// harvested payload.
var searchMirrors = []string{
	fieldPrefix + "smartSearch",
	fieldPrefix + "Hidden4",
	fieldPrefix + "smartSearch_TO",
	fieldPrefix + "Hidden2",
	fieldPrefix + "smartSearch_mf",
	fieldPrefix + "Hidden3",
	fieldPrefix + "smartSearch_Debt",
}

// DirectFetcher replays the report form over plain HTTP. One instance owns
// one cookie session and must not be shared across pagination runs.
type DirectFetcher struct {
	client *resty.Client
	config common.ScraperConfig
	logger arbor.ILogger
	diag   *Diagnostics
	now    func() time.Time
}

// NewDirectFetcher creates a direct-post fetcher with a fresh cookie jar.
func NewDirectFetcher(config common.ScraperConfig, diag *Diagnostics, logger arbor.ILogger) (*DirectFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(config.PageTimeout).
		SetHeader("User-Agent", config.UserAgent)

	return &DirectFetcher{
		client: client,
		config: config,
		logger: logger,
		diag:   diag,
		now:    time.Now,
	}, nil
}

// FetchMonthly drives one window through the form replay path.
func (f *DirectFetcher) FetchMonthly(ctx context.Context, window bse.FetchWindow) (bse.MonthlyTable, error) {
	base := reportURL(f.config, window)

	f.logger.Debug().
		Str("window", window.String()).
		Str("url", base).
		Msg("Loading report page")

	resp, err := f.client.R().SetContext(ctx).Get(base)
	if err != nil {
		return nil, fmt.Errorf("initial page load failed for %s: %w", window, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("initial page load for %s returned status %d", window, resp.StatusCode())
	}

	payload, err := f.buildPayload(resp.String(), window)
	if err != nil {
		return nil, err
	}

	post, err := f.client.R().
		SetContext(ctx).
		SetHeader("Referer", base).
		SetFormDataFromValues(payload).
		Post(base)
	if err != nil {
		return nil, &bse.FormSubmissionError{Window: window, Cause: err}
	}
	if post.StatusCode() != http.StatusOK {
		return nil, &bse.FormSubmissionError{
			Window: window,
			Cause:  fmt.Errorf("postback returned status %d", post.StatusCode()),
		}
	}

	table, err := locateAndNormalize(post.String())
	if err == nil {
		return table, nil
	}

	var notFound *bse.TableNotFoundError
	var schemaErr *bse.SchemaError
	if !errors.As(err, &notFound) && !errors.As(err, &schemaErr) {
		return nil, err
	}

	f.logger.Warn().
		Str("window", window.String()).
		Err(err).
		Msg("No table in postback response, trying download fallback")
	f.diag.SaveMarkup("postback_no_table", post.String())

	return f.fetchDownload(ctx, base, payload, window)
}

// Close releases the HTTP session. Cookies and tokens die with the fetcher.
func (f *DirectFetcher) Close() {}

// buildPayload harvests every input's name/value from the report page and
// overlays the fields that select the monthly window. Fails fast with
// *MissingTokenError before any POST when a mandatory state token is absent.
func (f *DirectFetcher) buildPayload(markup string, window bse.FetchWindow) (url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report page: %w", err)
	}

	payload := url.Values{}
	doc.Find("input[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		value, _ := sel.Attr("value")
		payload.Set(name, value)
	})

	for _, token := range requiredTokens {
		if payload.Get(token) == "" {
			return nil, &bse.MissingTokenError{Token: token}
		}
	}

	// Keep the page's current settlement selection untouched.
	if value, ok := selectedSettlement(doc); ok {
		payload.Set(fieldPrefix+"ddlsetllementcal", value)
	}

	mm := fmt.Sprintf("%02d", window.Month)
	yyyy := fmt.Sprintf("%d", window.Year)

	payload.Set(fieldPrefix+"hdnCode", window.ScripCode)
	payload.Set(fieldPrefix+"hiddenScripCode", window.ScripCode)
	payload.Set(fieldPrefix+"DMY", "rdbMonthly")
	payload.Set(fieldPrefix+"hidDMY", "M")
	payload.Set(fieldPrefix+"cmbMonthly", mm)
	payload.Set(fieldPrefix+"cmbMYear", yyyy)
	payload.Set(fieldPrefix+"hidFromDate", fmt.Sprintf("01/%s/%s", mm, yyyy))
	payload.Set(fieldPrefix+"hidToDate", f.now().Format("02/01/2006"))
	payload.Set("__EVENTTARGET", "")
	payload.Set("__EVENTARGUMENT", "")

	// The page rejects submissions whose search boxes are empty; mirror the
	// company display value it already knows.
	company := payload.Get(fieldPrefix + "hidCompanyVal")
	for _, field := range searchMirrors {
		payload.Set(field, company)
	}

	return payload, nil
}

// fetchDownload invokes the distinct download postback target and parses the
// delimited-text response instead of HTML.
func (f *DirectFetcher) fetchDownload(ctx context.Context, base string, payload url.Values, window bse.FetchWindow) (bse.MonthlyTable, error) {
	download := url.Values{}
	for k, v := range payload {
		download[k] = v
	}
	download.Set("__EVENTTARGET", fieldPrefix+"btnDownload")

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Referer", base).
		SetFormDataFromValues(download).
		Post(base)
	if err != nil {
		return nil, &bse.FormSubmissionError{Window: window, Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &bse.FormSubmissionError{
			Window: window,
			Cause:  fmt.Errorf("download postback returned status %d", resp.StatusCode()),
		}
	}

	table, err := parseDelimited(resp.String())
	if err != nil {
		return nil, &bse.FormSubmissionError{Window: window, Cause: err}
	}

	f.logger.Debug().
		Str("window", window.String()).
		Int("rows", len(table)).
		Msg("Parsed download fallback response")

	return table, nil
}

// parseDelimited reads a delimited-text download response, resolving the
// Month/Close columns with the same substring rules as the HTML normalizer.
func parseDelimited(body string) (bse.MonthlyTable, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(body)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited response: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("delimited response has no data rows")
	}

	rt := &bse.RawTable{Header: records[0], Rows: records[1:]}
	if _, ok := bse.ResolveMonthColumn(rt.Header); !ok {
		return nil, fmt.Errorf("download did not return a recognizable month column")
	}
	if _, ok := bse.ResolveCloseColumn(rt.Header); !ok {
		return nil, fmt.Errorf("download did not return a recognizable close column")
	}

	return bse.Normalize(rt)
}

func selectedSettlement(doc *goquery.Document) (string, bool) {
	sel := doc.Find("select#ContentPlaceHolder1_ddlsetllementcal option[selected]").First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.AttrOr("value", ""), true
}

// locateAndNormalize runs the shared locator and normalizer over raw markup.
func locateAndNormalize(markup string) (bse.MonthlyTable, error) {
	rt, err := bse.Locate(markup)
	if err != nil {
		return nil, err
	}
	return bse.Normalize(rt)
}
