package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
)

const reportFormPage = `<html><body><form>
	<input name="__VIEWSTATE" value="vs-token" />
	<input name="__VIEWSTATEGENERATOR" value="vsg-token" />
	<input name="__EVENTVALIDATION" value="ev-token" />
	<input name="ctl00$ContentPlaceHolder1$hidCompanyVal" value="TATA POWER" />
	<input name="ctl00$ContentPlaceHolder1$hdflag" value="0" />
	<select id="ContentPlaceHolder1_ddlsetllementcal" name="ctl00$ContentPlaceHolder1$ddlsetllementcal">
		<option value="0" selected="selected">Equity T+1</option>
		<option value="1">Equity T+2</option>
	</select>
</form></body></html>`

const monthlyTablePage = `<html><body>
	<div id="ContentPlaceHolder1_divStkData"><table>
		<tr><th>Month</th><th>Open</th><th>Close</th></tr>
		<tr><td>Mar 24</td><td>1,200.00</td><td>1,234.50</td></tr>
	</table></div>
</body></html>`

func newDirectTestFetcher(t *testing.T, serverURL string) *DirectFetcher {
	t.Helper()
	cfg := testConfig()
	cfg.ReportURL = serverURL
	f, err := NewDirectFetcher(cfg, NewDiagnostics("", "run_test", common.GetLogger()), common.GetLogger())
	require.NoError(t, err)
	return f
}

func TestDirectFetcherFetchMonthly(t *testing.T) {
	var posted map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, reportFormPage)
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			posted = map[string]string{}
			for k := range r.PostForm {
				posted[k] = r.PostForm.Get(k)
			}
			fmt.Fprint(w, monthlyTablePage)
		}
	}))
	defer server.Close()

	f := newDirectTestFetcher(t, server.URL)
	table, err := f.FetchMonthly(context.Background(), bse.FetchWindow{ScripCode: "500400", Month: 3, Year: 2024})
	require.NoError(t, err)

	require.Len(t, table, 1)
	assert.Equal(t, "Mar 24", table[0].PeriodLabel)
	assert.True(t, table[0].HasClose)

	// Harvested tokens carried through.
	assert.Equal(t, "vs-token", posted["__VIEWSTATE"])
	assert.Equal(t, "ev-token", posted["__EVENTVALIDATION"])
	assert.Equal(t, "", posted["__EVENTTARGET"])

	// Window overlay.
	assert.Equal(t, "500400", posted["ctl00$ContentPlaceHolder1$hdnCode"])
	assert.Equal(t, "rdbMonthly", posted["ctl00$ContentPlaceHolder1$DMY"])
	assert.Equal(t, "M", posted["ctl00$ContentPlaceHolder1$hidDMY"])
	assert.Equal(t, "03", posted["ctl00$ContentPlaceHolder1$cmbMonthly"])
	assert.Equal(t, "2024", posted["ctl00$ContentPlaceHolder1$cmbMYear"])
	assert.Equal(t, "01/03/2024", posted["ctl00$ContentPlaceHolder1$hidFromDate"])

	// Settlement selection preserved, search mirrors populated.
	assert.Equal(t, "0", posted["ctl00$ContentPlaceHolder1$ddlsetllementcal"])
	assert.Equal(t, "TATA POWER", posted["ctl00$ContentPlaceHolder1$smartSearch"])
	assert.Equal(t, "TATA POWER", posted["ctl00$ContentPlaceHolder1$smartSearch_Debt"])
}

func TestDirectFetcherMissingToken(t *testing.T) {
	posts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			return
		}
		// Page without __EVENTVALIDATION.
		fmt.Fprint(w, `<html><body><form>
			<input name="__VIEWSTATE" value="vs" />
			<input name="__VIEWSTATEGENERATOR" value="vsg" />
		</form></body></html>`)
	}))
	defer server.Close()

	f := newDirectTestFetcher(t, server.URL)
	_, err := f.FetchMonthly(context.Background(), bse.FetchWindow{ScripCode: "500400", Month: 1, Year: 2024})

	var missing *bse.MissingTokenError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "__EVENTVALIDATION", missing.Token)
	assert.Zero(t, posts, "no POST may be attempted when a token is missing")
}

func TestDirectFetcherDownloadFallback(t *testing.T) {
	var downloadTarget string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, reportFormPage)
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("__EVENTTARGET") == "ctl00$ContentPlaceHolder1$btnDownload" {
				downloadTarget = r.PostForm.Get("__EVENTTARGET")
				fmt.Fprint(w, "Month,Open Price,Close Price\nMar 24,1200.00,1234.50\nApr 24,1230.00,1250.00\n")
				return
			}
			// Regular postback returns a page with no usable table.
			fmt.Fprint(w, `<html><body><p>No records found</p></body></html>`)
		}
	}))
	defer server.Close()

	f := newDirectTestFetcher(t, server.URL)
	table, err := f.FetchMonthly(context.Background(), bse.FetchWindow{ScripCode: "500400", Month: 3, Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, "ctl00$ContentPlaceHolder1$btnDownload", downloadTarget)
	require.Len(t, table, 2)
	assert.Equal(t, "Mar 24", table[0].PeriodLabel)
	assert.Equal(t, "Apr 24", table[1].PeriodLabel)
}

func TestDirectFetcherDownloadUnrecognizable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, reportFormPage)
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("__EVENTTARGET") == "ctl00$ContentPlaceHolder1$btnDownload" {
				fmt.Fprint(w, "Date,Value\n2024-03-01,10\n")
				return
			}
			fmt.Fprint(w, `<html><body></body></html>`)
		}
	}))
	defer server.Close()

	f := newDirectTestFetcher(t, server.URL)
	_, err := f.FetchMonthly(context.Background(), bse.FetchWindow{ScripCode: "500400", Month: 3, Year: 2024})

	var submitErr *bse.FormSubmissionError
	require.True(t, errors.As(err, &submitErr))
}

func TestParseDelimited(t *testing.T) {
	table, err := parseDelimited("Trading Month,Close*\nMar 24,\"1,234.50\"\nApr 24,-\n")
	require.NoError(t, err)

	require.Len(t, table, 2)
	assert.Equal(t, "Mar 24", table[0].PeriodLabel)
	assert.True(t, table[0].HasClose)
	assert.False(t, table[1].HasClose)
}
