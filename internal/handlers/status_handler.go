package handlers

import (
	"net/http"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
)

// StatusHandler reports service health and version
type StatusHandler struct{}

// NewStatusHandler creates a new status handler
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// GetStatusHandler returns service status
// GET /health
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
		"build":   common.Build,
	})
}
