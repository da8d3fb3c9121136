package tracking

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fieldops/fieldtrack/models"
)

var fnNewSessionID = uuid.NewString

// ChangeReceiver is notified after every store mutation. Receivers read the
// store through its accessors; they never mutate it.
type ChangeReceiver interface {
	TrackingStateChanged()
}

// Store reconciles REST snapshots, poll results and push events into three
// coherent collections: online users, active session routes and the selected
// user's route. It is the only owner of this state; readers get copies.
type Store struct {
	logger *zap.SugaredLogger

	mu           sync.RWMutex
	onlineUsers  map[int64]models.UserLocation
	routes       []*models.SessionRoute
	activeByUser map[int64]*models.SessionRoute
	seenPoints   map[string]struct{}

	selectedUserID int64
	selectedDate   string
	selectedEpoch  uint64
	selectedRoute  []models.LocationPoint
	formMarkers    []models.FormMarker

	receivers []ChangeReceiver
	nowFunc   func() time.Time
}

func NewStore(logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must be provided")
	}
	return &Store{
		logger:       logger,
		onlineUsers:  make(map[int64]models.UserLocation),
		activeByUser: make(map[int64]*models.SessionRoute),
		seenPoints:   make(map[string]struct{}),
		nowFunc:      time.Now,
	}, nil
}

// RegisterChangeReceivers adds subscribers notified on every mutation.
func (s *Store) RegisterChangeReceivers(rs ...ChangeReceiver) {
	s.mu.Lock()
	s.receivers = append(s.receivers, rs...)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	rs := make([]ChangeReceiver, len(s.receivers))
	copy(rs, s.receivers)
	s.mu.RUnlock()
	for _, r := range rs {
		r.TrackingStateChanged()
	}
}

// ReplaceActiveUsers applies a REST snapshot wholesale. A user known only from
// push events disappears until the backend snapshot catches up; staleness is
// self-correcting within one polling interval.
func (s *Store) ReplaceActiveUsers(users []models.UserLocation) {
	s.mu.Lock()
	s.onlineUsers = make(map[int64]models.UserLocation, len(users))
	for _, u := range users {
		s.onlineUsers[u.ID] = u
	}
	s.mu.Unlock()
	s.notify()
}

// ReplaceSessionRoutes applies a REST snapshot of active sessions wholesale.
func (s *Store) ReplaceSessionRoutes(sessions []models.SessionRoute) {
	s.mu.Lock()
	s.routes = make([]*models.SessionRoute, 0, len(sessions))
	s.activeByUser = make(map[int64]*models.SessionRoute, len(sessions))
	s.seenPoints = make(map[string]struct{})
	for i := range sessions {
		route := sessions[i]
		s.routes = append(s.routes, &route)
		if route.IsActive {
			s.activeByUser[route.UserID] = &route
		}
		for _, p := range route.Points {
			s.seenPoints[pointKey(route.ID, p.Timestamp)] = struct{}{}
		}
	}
	s.mu.Unlock()
	s.notify()
}

// ReplaceFormMarkers applies a form-markers snapshot wholesale.
func (s *Store) ReplaceFormMarkers(forms []models.FormMarker) {
	s.mu.Lock()
	s.formMarkers = forms
	s.mu.Unlock()
	s.notify()
}

// ApplyLocationEvent merges a broadcast push event: upsert into the online
// users collection and append to the user's active session route, lazily
// opening one when none exists. A logout event closes the active route.
// Replayed events (same route and timestamp) are dropped.
func (s *Store) ApplyLocationEvent(ev models.LocationEvent) {
	s.mu.Lock()

	s.upsertOnlineUserLocked(ev)

	if ev.Type == models.LocationLogout {
		s.closeActiveRouteLocked(ev)
		s.mu.Unlock()
		s.notify()
		return
	}

	route, ok := s.activeByUser[ev.UserID]
	if !ok {
		route = &models.SessionRoute{
			ID:        ev.SessionID,
			UserID:    ev.UserID,
			UserName:  ev.UserName,
			StartTime: ev.Timestamp,
			IsActive:  true,
		}
		if route.ID == "" {
			route.ID = fnNewSessionID()
		}
		s.routes = append(s.routes, route)
		s.activeByUser[ev.UserID] = route
	}

	key := pointKey(route.ID, ev.Timestamp)
	if _, dup := s.seenPoints[key]; dup {
		s.logger.Debugf("Dropping replayed event for user %d at %v", ev.UserID, ev.Timestamp)
		s.mu.Unlock()
		return
	}
	s.seenPoints[key] = struct{}{}

	point := ev.Point()
	if n := len(route.Points); n > 0 {
		prev := route.Points[n-1]
		route.TotalDistanceKM += haversineKM(prev.Latitude, prev.Longitude, point.Latitude, point.Longitude)
	}
	route.Points = append(route.Points, point)

	s.mu.Unlock()
	s.notify()
}

func (s *Store) upsertOnlineUserLocked(ev models.LocationEvent) {
	updated := models.UserLocation{
		ID:           ev.UserID,
		Name:         ev.UserName,
		Latitude:     ev.Latitude,
		Longitude:    ev.Longitude,
		Accuracy:     ev.Accuracy,
		Speed:        ev.Speed,
		Heading:      ev.Heading,
		Timestamp:    ev.Timestamp,
		IsOnline:     ev.Type != models.LocationLogout,
		LastActivity: ev.Timestamp,
	}
	s.onlineUsers[ev.UserID] = updated
}

func (s *Store) closeActiveRouteLocked(ev models.LocationEvent) {
	route, ok := s.activeByUser[ev.UserID]
	if !ok {
		return
	}
	end := ev.Timestamp
	route.EndTime = &end
	route.IsActive = false
	delete(s.activeByUser, ev.UserID)
	s.logger.Infof("Closed session %s for user %d", route.ID, ev.UserID)
}

// SelectUser focuses one user and date, clears the previous selected route
// and bumps the selection epoch. The returned epoch tags in-flight fetches so
// late responses for an abandoned selection are discarded.
func (s *Store) SelectUser(userID int64, date string) uint64 {
	s.mu.Lock()
	s.selectedUserID = userID
	s.selectedDate = date
	s.selectedRoute = nil
	s.selectedEpoch++
	epoch := s.selectedEpoch
	s.mu.Unlock()
	s.notify()
	return epoch
}

// ClearSelection drops the focused user.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selectedUserID = 0
	s.selectedDate = ""
	s.selectedRoute = nil
	s.selectedEpoch++
	s.mu.Unlock()
	s.notify()
}

// Selection reports the focused user, viewed date and current epoch.
func (s *Store) Selection() (userID int64, date string, epoch uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedUserID, s.selectedDate, s.selectedEpoch
}

// ReplaceSelectedRoute applies a date-scoped fetch result wholesale. The call
// is a no-op when the selection epoch has moved on since the fetch started.
func (s *Store) ReplaceSelectedRoute(epoch uint64, points []models.LocationPoint) {
	s.mu.Lock()
	if epoch != s.selectedEpoch {
		s.logger.Debugf("Discarding stale route response (epoch %d, current %d)", epoch, s.selectedEpoch)
		s.mu.Unlock()
		return
	}
	s.selectedRoute = points
	s.mu.Unlock()
	s.notify()
}

// AppendSelectedPoint merges a per-user push event while live tracking: the
// point is appended to the selected route and the user's online entry moves to
// the new coordinates. Events for a no-longer-selected user are ignored.
func (s *Store) AppendSelectedPoint(userID int64, ev models.LocationEvent) {
	s.mu.Lock()
	if userID != s.selectedUserID {
		s.mu.Unlock()
		return
	}

	point := ev.Point()
	if point.Timestamp.IsZero() {
		point.Timestamp = s.nowFunc()
	}
	s.selectedRoute = append(s.selectedRoute, point)

	if u, ok := s.onlineUsers[userID]; ok {
		u.Latitude = ev.Latitude
		u.Longitude = ev.Longitude
		u.LastActivity = point.Timestamp
		u.IsOnline = true
		s.onlineUsers[userID] = u
	}
	s.mu.Unlock()
	s.notify()
}

// OnlineUsers returns a copy of the online-users collection ordered by ID.
func (s *Store) OnlineUsers() []models.UserLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.UserLocation, 0, len(s.onlineUsers))
	for _, u := range s.onlineUsers {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// SessionRoutes returns a deep copy of the session-routes collection.
func (s *Store) SessionRoutes() []models.SessionRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionRoute, 0, len(s.routes))
	for _, r := range s.routes {
		route := *r
		route.Points = make([]models.LocationPoint, len(r.Points))
		copy(route.Points, r.Points)
		out = append(out, route)
	}
	return out
}

// SelectedRoute returns a copy of the focused user's route.
func (s *Store) SelectedRoute() []models.LocationPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LocationPoint, len(s.selectedRoute))
	copy(out, s.selectedRoute)
	return out
}

// FormMarkers returns a copy of the form-markers collection.
func (s *Store) FormMarkers() []models.FormMarker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FormMarker, len(s.formMarkers))
	copy(out, s.formMarkers)
	return out
}

func pointKey(routeID string, ts time.Time) string {
	return routeID + "|" + ts.UTC().Format(time.RFC3339Nano)
}
