package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

// Refresher is the slice of the tracking refresher the scheduler drives.
type Refresher interface {
	RefreshSelected(ctx context.Context)
}

// SelectionSource reports the current focus so the scheduler can decide
// whether polling is worthwhile.
type SelectionSource interface {
	Selection() (userID int64, date string, epoch uint64)
}

// Scheduler re-fetches the focused user's route on a fixed interval, but only
// while the viewed date is today. Historical dates are immutable, so a single
// fetch at selection time is enough for them.
type Scheduler struct {
	logger    *zap.SugaredLogger
	refresher Refresher
	selection SelectionSource
	interval  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	nowFunc func() time.Time
}

func NewScheduler(logger *zap.SugaredLogger, cfg *config.PollConfig, refresher Refresher, selection SelectionSource) (*Scheduler, error) {
	if logger == nil || cfg == nil || refresher == nil || selection == nil {
		return nil, fmt.Errorf("logger, config, refresher and selection source must be provided")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", cfg.Interval)
	}
	return &Scheduler{
		logger:    logger,
		refresher: refresher,
		selection: selection,
		interval:  cfg.Interval,
		nowFunc:   time.Now,
	}, nil
}

// Arm starts the polling loop for the current selection, stopping any loop
// armed for a previous selection first. An immediate refresh runs before the
// first tick when the viewed date is today.
func (s *Scheduler) Arm(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	userID, date, _ := s.selection.Selection()
	if userID == 0 {
		return
	}
	if date != models.DateKey(s.nowFunc()) {
		s.logger.Debugf("Not polling user %d: viewed date %s is historical", userID, date)
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Infof("Polling user %d every %v", userID, s.interval)
	go s.run(loopCtx, s.done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.refresher.RefreshSelected(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresher.RefreshSelected(ctx)
		}
	}
}

// Stop halts the polling loop and waits for it to exit. Safe to call when no
// loop is running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
