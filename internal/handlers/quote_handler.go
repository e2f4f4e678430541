package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

// QuoteHandler serves quarterly closing price requests, preferring cached
// snapshots over a fresh scrape when they are still within the TTL.
type QuoteHandler struct {
	collector interfaces.QuoteCollector
	store     interfaces.SnapshotStore
	config    *common.Config
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(collector interfaces.QuoteCollector, store interfaces.SnapshotStore, config *common.Config, logger arbor.ILogger) *QuoteHandler {
	return &QuoteHandler{
		collector: collector,
		store:     store,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
	}
}

// QuartersRequest carries the parameters of one quarterly lookup.
type QuartersRequest struct {
	ScripCode  string `validate:"required,numeric"`
	StartMonth int    `validate:"min=1,max=12"`
	StartYear  int    `validate:"min=1990,max=2100"`
	Refresh    bool
}

// QuartersResult is the JSON response body for a quarterly lookup.
type QuartersResult struct {
	ScripCode   string           `json:"scrip_code"`
	StartMonth  int              `json:"start_month"`
	StartYear   int              `json:"start_year"`
	CollectedAt time.Time        `json:"collected_at"`
	Cached      bool             `json:"cached"`
	Rows        []bse.QuarterRow `json:"rows"`
}

// parseRequest reads lookup parameters from the query string, applying the
// configured defaults for an omitted start window.
func (h *QuoteHandler) parseRequest(r *http.Request) (QuartersRequest, error) {
	req := QuartersRequest{
		ScripCode:  r.URL.Query().Get("scrip"),
		StartMonth: h.config.Schedule.StartMonth,
		StartYear:  h.config.Schedule.StartYear,
		Refresh:    r.URL.Query().Get("refresh") == "true",
	}

	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid month %q", v)
		}
		req.StartMonth = parsed
	}
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid year %q", v)
		}
		req.StartYear = parsed
	}

	if err := h.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

// Lookup resolves a request against the snapshot store, falling back to a
// live collection run when no fresh snapshot exists.
func (h *QuoteHandler) Lookup(r *http.Request, req QuartersRequest) (*QuartersResult, error) {
	if !req.Refresh {
		if snapshot, found, err := h.store.Get(req.ScripCode); err != nil {
			h.logger.Warn().Err(err).Str("scrip", req.ScripCode).Msg("Snapshot lookup failed")
		} else if found && h.fresh(snapshot, req) {
			return &QuartersResult{
				ScripCode:   snapshot.ScripCode,
				StartMonth:  snapshot.StartMonth,
				StartYear:   snapshot.StartYear,
				CollectedAt: snapshot.CollectedAt,
				Cached:      true,
				Rows:        snapshot.Rows,
			}, nil
		}
	}

	rows, err := h.collector.CollectQuarters(r.Context(), req.ScripCode, req.StartMonth, req.StartYear)
	if err != nil {
		return nil, err
	}

	collectedAt := time.Now().UTC()
	snapshot := &interfaces.Snapshot{
		ScripCode:   req.ScripCode,
		StartMonth:  req.StartMonth,
		StartYear:   req.StartYear,
		CollectedAt: collectedAt,
		Rows:        rows,
	}
	if err := h.store.Put(snapshot); err != nil {
		h.logger.Warn().Err(err).Str("scrip", req.ScripCode).Msg("Failed to cache snapshot")
	}

	return &QuartersResult{
		ScripCode:   req.ScripCode,
		StartMonth:  req.StartMonth,
		StartYear:   req.StartYear,
		CollectedAt: collectedAt,
		Rows:        rows,
	}, nil
}

func (h *QuoteHandler) fresh(snapshot *interfaces.Snapshot, req QuartersRequest) bool {
	if snapshot.StartMonth != req.StartMonth || snapshot.StartYear != req.StartYear {
		return false
	}
	ttl := h.config.Storage.SnapshotTTL
	if ttl <= 0 {
		return false
	}
	return time.Since(snapshot.CollectedAt) < ttl
}

// QuartersHandler returns quarterly closing prices as JSON
// GET /api/quarters?scrip=500400&month=1&year=2020&refresh=true
func (h *QuoteHandler) QuartersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Lookup(r, req)
	if err != nil {
		h.logger.Error().Err(err).Str("scrip", req.ScripCode).Msg("Collection failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DownloadHandler returns quarterly closing prices as a CSV attachment
// GET /api/quarters/csv?scrip=500400&month=1&year=2020
func (h *QuoteHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Lookup(r, req)
	if err != nil {
		h.logger.Error().Err(err).Str("scrip", req.ScripCode).Msg("Collection failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=quarterly_close_%s.csv", req.ScripCode))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"Quarter End", "Close"})
	for _, row := range result.Rows {
		_ = writer.Write([]string{row.QuarterEnd, row.Close.String()})
	}
	writer.Flush()
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
