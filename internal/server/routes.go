package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("/", s.app.PageHandler.IndexHandler)

	// API
	mux.HandleFunc("/api/quarters", s.app.QuoteHandler.QuartersHandler)
	mux.HandleFunc("/api/quarters/csv", s.app.QuoteHandler.DownloadHandler)

	// Health
	mux.HandleFunc("/health", s.app.StatusHandler.GetStatusHandler)

	return mux
}
