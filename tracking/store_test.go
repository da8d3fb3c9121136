package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

var originalFnNewSessionID = fnNewSessionID

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(config.MustGetLogger())
	assert.NoError(t, err)
	return s
}

type countingReceiver struct {
	changes int
}

func (c *countingReceiver) TrackingStateChanged() { c.changes++ }

func trackingEvent(userID int64, lat, lng float64, ts time.Time) models.LocationEvent {
	return models.LocationEvent{
		UserID:    userID,
		UserName:  "Ana",
		Latitude:  lat,
		Longitude: lng,
		Timestamp: ts,
		SessionID: "sess-1",
	}
}

func TestNewStoreValidation(t *testing.T) {
	s, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestReplaceActiveUsersIdempotent(t *testing.T) {
	s := newTestStore(t)
	snapshot := []models.UserLocation{
		{ID: 1, Name: "Ana", Latitude: 4.6, Longitude: -74.1, IsOnline: true},
		{ID: 2, Name: "Luis", Latitude: 4.7, Longitude: -74.2, IsOnline: true},
	}

	s.ReplaceActiveUsers(snapshot)
	s.ReplaceActiveUsers(snapshot)

	users := s.OnlineUsers()
	assert.Len(t, users, 2, "identical snapshots must not duplicate users")
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(2), users[1].ID)
}

func TestApplyLocationEventUpsertsByID(t *testing.T) {
	s := newTestStore(t)
	s.ReplaceActiveUsers([]models.UserLocation{{ID: 1, Name: "Ana", Latitude: 4.6, Longitude: -74.1, IsOnline: true}})

	ts := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ApplyLocationEvent(trackingEvent(1, 4.61, -74.11, ts))

	users := s.OnlineUsers()
	assert.Len(t, users, 1, "upsert must not duplicate the user")
	assert.Equal(t, 4.61, users[0].Latitude)
	assert.Equal(t, -74.11, users[0].Longitude)
	assert.True(t, users[0].IsOnline)
	assert.Equal(t, ts, users[0].LastActivity)
}

func TestApplyLocationEventInsertsUnknownUser(t *testing.T) {
	s := newTestStore(t)
	s.ApplyLocationEvent(trackingEvent(5, 4.6, -74.1, time.Now()))

	users := s.OnlineUsers()
	assert.Len(t, users, 1)
	assert.Equal(t, int64(5), users[0].ID)
}

func TestRouteAppendOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	// Timestamps deliberately out of chronological order: append order wins.
	stamps := []time.Time{base.Add(2 * time.Minute), base, base.Add(1 * time.Minute)}
	for i, ts := range stamps {
		s.ApplyLocationEvent(trackingEvent(1, 4.6+float64(i)*0.01, -74.1, ts))
	}

	routes := s.SessionRoutes()
	assert.Len(t, routes, 1, "consecutive events for one user share one active route")
	assert.Len(t, routes[0].Points, 3)
	for i, ts := range stamps {
		assert.Equal(t, ts, routes[0].Points[i].Timestamp, "points must stay in arrival order")
	}
	assert.True(t, routes[0].IsActive)
	assert.Equal(t, "sess-1", routes[0].ID)
}

func TestDuplicateEventAppendsOnce(t *testing.T) {
	s := newTestStore(t)

	ev := trackingEvent(1, 4.6, -74.1, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	s.ApplyLocationEvent(ev)
	s.ApplyLocationEvent(ev)

	routes := s.SessionRoutes()
	assert.Len(t, routes[0].Points, 1, "replayed events must not double-append")
}

func TestLazySessionIDWhenEventHasNone(t *testing.T) {
	t.Cleanup(func() { fnNewSessionID = originalFnNewSessionID })
	fnNewSessionID = func() string { return "generated-id" }

	s := newTestStore(t)
	ev := trackingEvent(1, 4.6, -74.1, time.Now())
	ev.SessionID = ""
	s.ApplyLocationEvent(ev)

	routes := s.SessionRoutes()
	assert.Equal(t, "generated-id", routes[0].ID)
}

func TestLogoutClosesActiveRoute(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ApplyLocationEvent(trackingEvent(1, 4.6, -74.1, base))

	logout := trackingEvent(1, 4.6, -74.1, base.Add(time.Minute))
	logout.Type = models.LocationLogout
	s.ApplyLocationEvent(logout)

	routes := s.SessionRoutes()
	assert.Len(t, routes, 1)
	assert.False(t, routes[0].IsActive)
	if assert.NotNil(t, routes[0].EndTime) {
		assert.Equal(t, base.Add(time.Minute), *routes[0].EndTime)
	}

	users := s.OnlineUsers()
	assert.False(t, users[0].IsOnline, "logout marks the user offline")

	// The next tracking event opens a fresh route.
	next := trackingEvent(1, 4.7, -74.2, base.Add(2*time.Minute))
	next.SessionID = "sess-2"
	s.ApplyLocationEvent(next)

	routes = s.SessionRoutes()
	assert.Len(t, routes, 2)
	assert.True(t, routes[1].IsActive)
	assert.Len(t, routes[1].Points, 1)
}

func TestTotalDistanceAccumulates(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ApplyLocationEvent(trackingEvent(1, 4.60, -74.10, base))
	s.ApplyLocationEvent(trackingEvent(1, 4.61, -74.11, base.Add(time.Minute)))
	s.ApplyLocationEvent(trackingEvent(1, 4.62, -74.12, base.Add(2*time.Minute)))

	want := haversineKM(4.60, -74.10, 4.61, -74.11) + haversineKM(4.61, -74.11, 4.62, -74.12)
	routes := s.SessionRoutes()
	assert.InDelta(t, want, routes[0].TotalDistanceKM, 1e-9)
	assert.Greater(t, routes[0].TotalDistanceKM, 0.0)
}

func TestSnapshotThenPushEvent(t *testing.T) {
	s := newTestStore(t)

	// REST snapshot first, then a fresher push event for the same user.
	s.ReplaceActiveUsers([]models.UserLocation{{ID: 1, Name: "Ana", Latitude: 4.6, Longitude: -74.1, IsOnline: true}})

	t2 := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ApplyLocationEvent(models.LocationEvent{UserID: 1, UserName: "Ana", Latitude: 4.61, Longitude: -74.11, Timestamp: t2})

	users := s.OnlineUsers()
	assert.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, 4.61, users[0].Latitude)
	assert.Equal(t, -74.11, users[0].Longitude)
	assert.True(t, users[0].IsOnline)
}

func TestSnapshotReplaceDropsPushOnlyUsers(t *testing.T) {
	// Accepted eventual-consistency window: a user known only from push events
	// vanishes when the next full snapshot has not caught up yet.
	s := newTestStore(t)
	s.ApplyLocationEvent(trackingEvent(9, 4.6, -74.1, time.Now()))
	assert.Len(t, s.OnlineUsers(), 1)

	s.ReplaceActiveUsers([]models.UserLocation{})
	assert.Empty(t, s.OnlineUsers())
}

func TestSelectedRouteReplaceAndAppend(t *testing.T) {
	s := newTestStore(t)
	s.ReplaceActiveUsers([]models.UserLocation{{ID: 1, Name: "Ana", Latitude: 4.6, Longitude: -74.1, IsOnline: true}})

	epoch := s.SelectUser(1, "2025-03-14")
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s.ReplaceSelectedRoute(epoch, []models.LocationPoint{
		{Latitude: 4.6, Longitude: -74.1, Timestamp: base, Type: models.LocationTracking},
	})
	assert.Len(t, s.SelectedRoute(), 1)

	s.AppendSelectedPoint(1, models.LocationEvent{UserID: 1, Latitude: 4.61, Longitude: -74.11, Timestamp: base.Add(time.Minute)})
	route := s.SelectedRoute()
	assert.Len(t, route, 2)
	assert.Equal(t, 4.61, route[1].Latitude)

	// The live event also moves the user's online entry.
	users := s.OnlineUsers()
	assert.Equal(t, 4.61, users[0].Latitude)
	assert.Equal(t, base.Add(time.Minute), users[0].LastActivity)
}

func TestAppendSelectedPointIgnoresUnselectedUser(t *testing.T) {
	s := newTestStore(t)
	s.SelectUser(1, "2025-03-14")

	s.AppendSelectedPoint(2, models.LocationEvent{UserID: 2, Latitude: 4.6, Longitude: -74.1, Timestamp: time.Now()})
	assert.Empty(t, s.SelectedRoute())
}

func TestStaleRouteResponseDiscarded(t *testing.T) {
	s := newTestStore(t)

	oldEpoch := s.SelectUser(1, "2025-03-14")
	newEpoch := s.SelectUser(2, "2025-03-14")
	assert.NotEqual(t, oldEpoch, newEpoch)

	// The late response for user 1 arrives after the selection moved to user 2.
	s.ReplaceSelectedRoute(oldEpoch, []models.LocationPoint{{Latitude: 4.6, Longitude: -74.1, Type: models.LocationTracking}})
	assert.Empty(t, s.SelectedRoute(), "stale-epoch responses must be discarded")

	s.ReplaceSelectedRoute(newEpoch, []models.LocationPoint{{Latitude: 4.7, Longitude: -74.2, Type: models.LocationTracking}})
	assert.Len(t, s.SelectedRoute(), 1)
}

func TestSelectUserClearsPreviousRoute(t *testing.T) {
	s := newTestStore(t)
	epoch := s.SelectUser(1, "2025-03-14")
	s.ReplaceSelectedRoute(epoch, []models.LocationPoint{{Latitude: 4.6, Longitude: -74.1, Type: models.LocationTracking}})

	s.SelectUser(2, "2025-03-14")
	assert.Empty(t, s.SelectedRoute())

	s.ClearSelection()
	userID, date, _ := s.Selection()
	assert.Zero(t, userID)
	assert.Empty(t, date)
}

func TestChangeReceiversNotified(t *testing.T) {
	s := newTestStore(t)
	r := &countingReceiver{}
	s.RegisterChangeReceivers(r)

	s.ReplaceActiveUsers(nil)
	s.ApplyLocationEvent(trackingEvent(1, 4.6, -74.1, time.Now()))
	s.ReplaceFormMarkers(nil)

	assert.Equal(t, 3, r.changes)
}
