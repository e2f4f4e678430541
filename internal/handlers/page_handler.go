package handlers

import (
	"html/template"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
)

// PageHandler serves the HTML lookup form and renders results server-side.
type PageHandler struct {
	quotes   *QuoteHandler
	template *template.Template
	logger   arbor.ILogger
}

// NewPageHandler creates a new page handler
func NewPageHandler(quotes *QuoteHandler, logger arbor.ILogger) *PageHandler {
	return &PageHandler{
		quotes:   quotes,
		template: template.Must(template.New("index").Parse(indexTemplate)),
		logger:   logger,
	}
}

type pageData struct {
	Version    string
	ScripCode  string
	StartMonth int
	StartYear  int
	Result     *QuartersResult
	Error      string
}

// IndexHandler renders the lookup form. A submitted scrip code triggers a
// lookup and renders the quarterly table inline.
func (h *PageHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := pageData{
		Version:    common.GetVersion(),
		StartMonth: h.quotes.config.Schedule.StartMonth,
		StartYear:  h.quotes.config.Schedule.StartYear,
	}

	if scrip := r.URL.Query().Get("scrip"); scrip != "" {
		req, err := h.quotes.parseRequest(r)
		data.ScripCode = scrip
		if err != nil {
			data.Error = err.Error()
		} else {
			data.StartMonth = req.StartMonth
			data.StartYear = req.StartYear
			result, err := h.quotes.Lookup(r, req)
			if err != nil {
				h.logger.Error().Err(err).Str("scrip", scrip).Msg("Page lookup failed")
				data.Error = err.Error()
			} else {
				data.Result = result
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render index page")
	}
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>BSE Quarterly Closing Prices</title>
	<style>
		body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; color: #222; }
		h1 { font-size: 1.4rem; }
		form { display: flex; gap: 0.5rem; flex-wrap: wrap; margin-bottom: 1.5rem; }
		input { padding: 0.4rem; }
		table { border-collapse: collapse; width: 100%; }
		th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
		th { background: #f0f0f0; }
		.error { color: #b00020; }
		.meta { color: #666; font-size: 0.85rem; margin-bottom: 0.5rem; }
	</style>
</head>
<body>
	<h1>BSE Quarterly Closing Prices</h1>
	<form method="get" action="/">
		<input type="text" name="scrip" placeholder="Scrip code (e.g. 500400)" value="{{.ScripCode}}" required>
		<input type="number" name="month" min="1" max="12" value="{{.StartMonth}}" title="Start month">
		<input type="number" name="year" min="1990" max="2100" value="{{.StartYear}}" title="Start year">
		<button type="submit">Fetch</button>
	</form>
	{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
	{{with .Result}}
	<p class="meta">
		Scrip {{.ScripCode}}, collected {{.CollectedAt.Format "02 Jan 2006 15:04 MST"}}{{if .Cached}} (cached){{end}} &middot;
		<a href="/api/quarters/csv?scrip={{.ScripCode}}&month={{.StartMonth}}&year={{.StartYear}}">Download CSV</a>
	</p>
	{{if .Rows}}
	<table>
		<tr><th>Quarter End</th><th>Close</th></tr>
		{{range .Rows}}<tr><td>{{.QuarterEnd}}</td><td>{{.Close}}</td></tr>
		{{end}}
	</table>
	{{else}}<p>No quarter-end closes found for this window.</p>{{end}}
	{{end}}
	<p class="meta">v{{.Version}}</p>
</body>
</html>
`
