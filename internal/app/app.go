package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/handlers"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/scheduler"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/services/scraper"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	Collector interfaces.QuoteCollector
	Store     interfaces.SnapshotStore
	Scheduler *scheduler.Scheduler

	QuoteHandler  *handlers.QuoteHandler
	PageHandler   *handlers.PageHandler
	StatusHandler *handlers.StatusHandler
}

// New wires the collector, snapshot store and scheduler from configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	collector := scraper.NewCollector(config.Scraper, logger)

	store, err := storage.NewSnapshotStore(config.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	sched := scheduler.New(config.Schedule, collector, store, logger)

	quoteHandler := handlers.NewQuoteHandler(collector, store, config, logger)

	return &App{
		Config:        config,
		Logger:        logger,
		Collector:     collector,
		Store:         store,
		Scheduler:     sched,
		QuoteHandler:  quoteHandler,
		PageHandler:   handlers.NewPageHandler(quoteHandler, logger),
		StatusHandler: handlers.NewStatusHandler(),
	}, nil
}

// Start launches background components.
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close tears down background components and storage.
func (a *App) Close() {
	a.Scheduler.Stop()
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close snapshot store")
	}
}
