// Package scheduler refreshes tracked scrip codes on a cron schedule,
// keeping the snapshot store warm so the UI can serve cached results.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

// Scheduler runs periodic collection for the configured scrip codes.
type Scheduler struct {
	config    common.ScheduleConfig
	collector interfaces.QuoteCollector
	store     interfaces.SnapshotStore
	logger    arbor.ILogger
	cron      *cron.Cron
}

// New creates a scheduler. It does nothing until Start is called.
func New(config common.ScheduleConfig, collector interfaces.QuoteCollector, store interfaces.SnapshotStore, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		config:    config,
		collector: collector,
		store:     store,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start registers the refresh job and starts the cron loop. An empty cron
// spec disables scheduling entirely.
func (s *Scheduler) Start() error {
	if s.config.Spec == "" || len(s.config.Scrips) == 0 {
		s.logger.Debug().Msg("Scheduler disabled (no cron spec or no tracked scrips)")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.Spec, s.refreshAll); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("spec", s.config.Spec).
		Int("scrips", len(s.config.Scrips)).
		Msg("Scheduler started")

	return nil
}

// Stop halts the cron loop, waiting for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// refreshAll collects each tracked scrip sequentially. Pagination runs must
// not overlap: each needs exclusive ownership of its transport session.
func (s *Scheduler) refreshAll() {
	for _, scrip := range s.config.Scrips {
		start := time.Now()
		rows, err := s.collector.CollectQuarters(context.Background(), scrip, s.config.StartMonth, s.config.StartYear)
		if err != nil {
			s.logger.Error().Err(err).Str("scrip", scrip).Msg("Scheduled refresh failed")
			continue
		}

		snapshot := &interfaces.Snapshot{
			ScripCode:   scrip,
			StartMonth:  s.config.StartMonth,
			StartYear:   s.config.StartYear,
			CollectedAt: time.Now().UTC(),
			Rows:        rows,
		}
		if err := s.store.Put(snapshot); err != nil {
			s.logger.Error().Err(err).Str("scrip", scrip).Msg("Failed to store refreshed snapshot")
			continue
		}

		s.logger.Info().
			Str("scrip", scrip).
			Int("quarters", len(rows)).
			Str("took", time.Since(start).String()).
			Msg("Scheduled refresh complete")
	}
}
