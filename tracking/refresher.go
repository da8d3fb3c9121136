package tracking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fieldops/fieldtrack/feed"
	"fieldops/fieldtrack/models"
)

// FeedClient is the slice of the feed client the refresher drives.
type FeedClient interface {
	ActiveUsers(ctx context.Context) ([]models.UserLocation, error)
	ActiveSessions(ctx context.Context) ([]models.SessionRoute, error)
	UserRouteByDate(ctx context.Context, userID int64, date string) ([]models.LocationPoint, error)
	FormMarkers(ctx context.Context, userID int64, date string) ([]models.FormMarker, error)
}

// Refresher pulls REST snapshots into the store and applies the error policy:
// snapshot failures keep prior state, selected-route failures fail closed, and
// a missing token skips the call entirely.
type Refresher struct {
	logger *zap.SugaredLogger
	feed   FeedClient
	store  *Store
}

func NewRefresher(logger *zap.SugaredLogger, feedClient FeedClient, store *Store) (*Refresher, error) {
	if logger == nil || feedClient == nil || store == nil {
		return nil, fmt.Errorf("logger, feed client and store must be provided")
	}
	return &Refresher{logger: logger, feed: feedClient, store: store}, nil
}

// RefreshSnapshots replaces the online-users and session-routes collections.
// Either fetch failing leaves the corresponding collection untouched.
func (r *Refresher) RefreshSnapshots(ctx context.Context) {
	users, err := r.feed.ActiveUsers(ctx)
	switch {
	case errors.Is(err, feed.ErrNoToken):
		r.logger.Debug("Skipping active-users refresh: no auth token")
	case err != nil:
		r.logger.Errorf("Failed to fetch active users: %v", err)
	default:
		r.store.ReplaceActiveUsers(users)
	}

	sessions, err := r.feed.ActiveSessions(ctx)
	switch {
	case errors.Is(err, feed.ErrNoToken):
		r.logger.Debug("Skipping active-sessions refresh: no auth token")
	case err != nil:
		r.logger.Errorf("Failed to fetch active sessions: %v", err)
	default:
		r.store.ReplaceSessionRoutes(sessions)
	}
}

// RefreshSelected re-fetches the focused user's route and form markers for
// the viewed date. The fetch is tagged with the selection epoch current at
// call time; the store discards the result if the selection has since moved.
// A failed route fetch clears the route rather than show stale points.
func (r *Refresher) RefreshSelected(ctx context.Context) {
	userID, date, epoch := r.store.Selection()
	if userID == 0 {
		return
	}

	points, err := r.feed.UserRouteByDate(ctx, userID, date)
	switch {
	case errors.Is(err, feed.ErrNoToken):
		r.logger.Debug("Skipping route refresh: no auth token")
	case err != nil:
		r.logger.Errorf("Failed to fetch route for user %d on %s: %v", userID, date, err)
		r.store.ReplaceSelectedRoute(epoch, []models.LocationPoint{})
	default:
		r.store.ReplaceSelectedRoute(epoch, points)
	}

	forms, err := r.feed.FormMarkers(ctx, userID, date)
	switch {
	case errors.Is(err, feed.ErrNoToken):
		r.logger.Debug("Skipping form-markers refresh: no auth token")
	case err != nil:
		r.logger.Errorf("Failed to fetch form markers for user %d on %s: %v", userID, date, err)
	default:
		r.store.ReplaceFormMarkers(forms)
	}
}
