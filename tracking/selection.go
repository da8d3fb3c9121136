package tracking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fieldops/fieldtrack/models"
)

// LiveTracker is the slice of the channel client the selector drives.
type LiveTracker interface {
	StartLiveTracking(ctx context.Context, userID int64) error
	StopLiveTracking()
}

// PollArmer re-arms the polling loop for the current selection.
type PollArmer interface {
	Arm(ctx context.Context)
}

// Selector drives the selection lifecycle end to end: focus the user and date
// in the store, open the per-user live topic, and re-arm the polling loop.
// Subscriptions and the polling loop outlive the request that triggered them,
// so they are bound to the constructor context, not the caller's.
type Selector struct {
	appCtx    context.Context
	logger    *zap.SugaredLogger
	store     *Store
	refresher *Refresher
	live      LiveTracker
	poller    PollArmer

	nowFunc func() time.Time
}

// NewSelector wires the selection flow. live may be nil when no push channel
// is available; polling then carries the selection alone.
func NewSelector(ctx context.Context, logger *zap.SugaredLogger, store *Store, refresher *Refresher, live LiveTracker, poller PollArmer) (*Selector, error) {
	if ctx == nil || logger == nil || store == nil || refresher == nil || poller == nil {
		return nil, fmt.Errorf("context, logger, store, refresher and poller must be provided")
	}
	return &Selector{
		appCtx:    ctx,
		logger:    logger,
		store:     store,
		refresher: refresher,
		live:      live,
		poller:    poller,
		nowFunc:   time.Now,
	}, nil
}

// Select focuses one user and date. A failed live-tracking subscription is
// logged and the selection stands; polling still covers it.
func (s *Selector) Select(ctx context.Context, userID int64, date string) {
	s.store.SelectUser(userID, date)
	s.logger.Infof("Selected user %d for %s", userID, date)

	if s.live != nil {
		if err := s.live.StartLiveTracking(s.appCtx, userID); err != nil {
			s.logger.Errorf("Failed to start live tracking for user %d: %v", userID, err)
		}
	}

	// Today's date belongs to the polling loop, which fetches immediately on
	// arm. Historical dates are immutable, so one direct fetch is enough.
	s.poller.Arm(s.appCtx)
	if date != models.DateKey(s.nowFunc()) {
		s.refresher.RefreshSelected(ctx)
	}
}

// Clear drops the focused user, leaves the live topic and stops the polling
// loop via a re-arm against the empty selection.
func (s *Selector) Clear() {
	s.store.ClearSelection()
	if s.live != nil {
		s.live.StopLiveTracking()
	}
	s.poller.Arm(s.appCtx)
	s.logger.Info("Selection cleared")
}
