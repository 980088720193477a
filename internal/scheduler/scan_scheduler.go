package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lnup/eventscout/internal/models"
)

// EventFeed aggregates events for one city.
type EventFeed interface {
	FetchEvents(ctx context.Context, city string) ([]models.Event, error)
}

// ScanScheduler periodically aggregates every catalog city so discovered
// events reach the store before anyone asks for them. The cooldown gate in
// the feed decides whether a tick actually calls the language model.
type ScanScheduler struct {
	feed     EventFeed
	cities   []string
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScanScheduler creates a scheduler for cities.
func NewScanScheduler(feed EventFeed, cities []string, interval time.Duration, logger *slog.Logger) *ScanScheduler {
	return &ScanScheduler{
		feed:     feed,
		cities:   cities,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval until Stop is
// called or ctx is done.
func (s *ScanScheduler) Start(ctx context.Context) {
	s.logger.Info("starting scan scheduler", "interval", s.interval, "cities", len(s.cities))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scanAll(ctx)

	for {
		select {
		case <-ticker.C:
			s.scanAll(ctx)
		case <-s.stopChan:
			s.logger.Info("scan scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("scan scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop ends the scheduler loop. Safe to call more than once.
func (s *ScanScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// scanAll visits cities sequentially so a single tick never fans out more
// than one discovery call at a time.
func (s *ScanScheduler) scanAll(ctx context.Context) {
	for _, city := range s.cities {
		if ctx.Err() != nil {
			return
		}
		events, err := s.feed.FetchEvents(ctx, city)
		if err != nil {
			s.logger.Error("scheduled scan failed", "city", city, "error", err)
			continue
		}
		s.logger.Debug("scheduled scan completed", "city", city, "events", len(events))
	}
}
