package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
)

// HousekeepingService periodically purges expired one-time codes and
// persists the expired status of quotes whose window has closed. Reads never
// depend on it: expiry is derived from the clock either way.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Clock    Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per Interval until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep performs one cleanup pass. Each step is independent; a failure in
// one does not skip the other.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := s.Clock.now()

	codes, err := s.Store.Codes().DeleteExpiredCodes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired codes", "error", err)
	}

	quotes, err := s.Store.Quotes().ExpireQuotes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to expire quotes", "error", err)
	}

	s.Logger.Info("housekeeping sweep completed",
		slog.Int64("codes_deleted", codes),
		slog.Int64("quotes_expired", quotes),
	)
}
