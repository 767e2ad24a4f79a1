// Package scheduler runs the periodic Spotify catalog refresh. The
// refresh only fetches and reports importable candidates; importing
// stays an explicit admin action.
package scheduler

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fragmentado/catalog/internal/config"
	"github.com/fragmentado/catalog/internal/sync"
)

// SpotifySyncScheduler manages the periodic catalog fetch.
type SpotifySyncScheduler struct {
	engine *sync.Engine
	cfg    config.Sync
	log    logrus.FieldLogger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         gosync.RWMutex
	isRunning  bool
	isFetching bool
	cancelFunc context.CancelFunc
}

// NewSpotifySyncScheduler creates a new scheduler instance.
func NewSpotifySyncScheduler(engine *sync.Engine, cfg config.Sync) *SpotifySyncScheduler {
	return &SpotifySyncScheduler{
		engine: engine,
		cfg:    cfg,
		log:    logrus.StandardLogger().WithField("component", "spotify-sync-scheduler"),
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the periodic refresh is enabled.
func (s *SpotifySyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		s.log.Info("periodic catalog refresh disabled")
		return nil
	}
	if s.engine == nil {
		s.log.Info("spotify integration not configured, skipping scheduler")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runFetch()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.log.WithField("schedule", s.cfg.Schedule).Info("periodic catalog refresh started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running fetch.
func (s *SpotifySyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	s.log.Info("periodic catalog refresh stopped")
}

// RunNow triggers an immediate fetch.
func (s *SpotifySyncScheduler) RunNow() {
	go s.runFetch()
}

// IsRunning returns whether the scheduler is active.
func (s *SpotifySyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next fetch will occur.
func (s *SpotifySyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *SpotifySyncScheduler) runFetch() {
	s.mu.Lock()
	if s.isFetching {
		s.mu.Unlock()
		s.log.Info("catalog refresh skipped, previous fetch still running")
		return
	}
	s.isFetching = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isFetching = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := s.engine.FetchCatalog(ctx)
	if err != nil {
		s.log.WithError(err).Warn("catalog refresh failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"albums":     result.TotalAlbums,
		"importable": len(result.Candidates),
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("catalog refresh finished")
}
