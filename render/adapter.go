package render

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fieldops/fieldtrack/models"
)

const (
	overviewZoom = 15
	focusZoom    = 16
)

// StateSource is the read-only slice of the tracking store the adapter
// projects onto the map.
type StateSource interface {
	OnlineUsers() []models.UserLocation
	SelectedRoute() []models.LocationPoint
	FormMarkers() []models.FormMarker
	Selection() (userID int64, date string, epoch uint64)
}

// Adapter projects tracking state onto a Backend. It re-renders on every
// state change and owns the camera rules: auto-center on the first render
// with data, on selection change, and on new selected-route points.
type Adapter struct {
	logger  *zap.SugaredLogger
	backend Backend
	state   StateSource

	mu           sync.Mutex
	centeredOnce bool
	lastSelected int64
	lastRouteLen int
	markersByID  map[string]Marker
}

func NewAdapter(logger *zap.SugaredLogger, backend Backend, state StateSource) (*Adapter, error) {
	if logger == nil || backend == nil || state == nil {
		return nil, fmt.Errorf("logger, backend and state source must be provided")
	}
	return &Adapter{
		logger:      logger,
		backend:     backend,
		state:       state,
		markersByID: map[string]Marker{},
	}, nil
}

// TrackingStateChanged re-renders the whole projection from current state.
func (a *Adapter) TrackingStateChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()

	users := a.state.OnlineUsers()
	route := a.state.SelectedRoute()
	forms := a.state.FormMarkers()
	selected, _, _ := a.state.Selection()

	markers := a.projectMarkers(users, route, forms)
	a.backend.RenderMarkers(markers)
	a.backend.RenderPolyline(projectPolyline(route))

	a.recenter(users, route, selected)

	a.lastSelected = selected
	a.lastRouteLen = len(route)
}

// ShowMarkerOverlay opens the detail panel for a previously rendered marker.
// An unknown ID hides the panel.
func (a *Adapter) ShowMarkerOverlay(markerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.markersByID[markerID]
	if !ok {
		a.backend.ShowOverlay(Overlay{})
		return
	}
	a.backend.ShowOverlay(Overlay{Title: m.Label, Lines: m.Details, Visible: true})
}

// HideOverlay closes the detail panel.
func (a *Adapter) HideOverlay() {
	a.backend.ShowOverlay(Overlay{})
}

func (a *Adapter) projectMarkers(users []models.UserLocation, route []models.LocationPoint, forms []models.FormMarker) []Marker {
	markers := make([]Marker, 0, len(users)+len(route)+len(forms))

	for _, u := range users {
		markers = append(markers, Marker{
			ID:        fmt.Sprintf("user-%d", u.ID),
			Kind:      MarkerUser,
			Latitude:  u.Latitude,
			Longitude: u.Longitude,
			Color:     UserMarkerColor(u),
			Label:     u.Name,
			Details: []string{
				fmt.Sprintf("Velocidad: %.1f km/h", u.Speed),
				fmt.Sprintf("Última actividad: %s", u.LastActivity.Format(time.RFC3339)),
			},
		})
	}

	// Tracking points belong to the polyline; the other types get their own
	// pins along the route.
	for i, p := range route {
		if p.Type == models.LocationTracking {
			continue
		}
		markers = append(markers, Marker{
			ID:        fmt.Sprintf("point-%d", i),
			Kind:      MarkerPoint,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Color:     PointMarkerColor(p.Type),
			Label:     string(p.Type),
			Details:   []string{p.Timestamp.Format(time.RFC3339)},
		})
	}

	for _, f := range forms {
		markers = append(markers, Marker{
			ID:        fmt.Sprintf("form-%d", f.ID),
			Kind:      MarkerForm,
			Latitude:  f.Latitude,
			Longitude: f.Longitude,
			Color:     PointMarkerColor(f.Type),
			Label:     f.Consecutivo,
			Details: []string{
				f.Empresa,
				f.UserName,
				f.Timestamp.Format(time.RFC3339),
			},
		})
	}

	a.markersByID = make(map[string]Marker, len(markers))
	for _, m := range markers {
		a.markersByID[m.ID] = m
	}
	return markers
}

func projectPolyline(route []models.LocationPoint) Polyline {
	line := Polyline{Color: routeColor}
	for _, p := range route {
		if p.Type != models.LocationTracking {
			continue
		}
		line.Points = append(line.Points, [2]float64{p.Latitude, p.Longitude})
	}
	return line
}

func (a *Adapter) recenter(users []models.UserLocation, route []models.LocationPoint, selected int64) {
	find := func(id int64) (models.UserLocation, bool) {
		for _, u := range users {
			if u.ID == id {
				return u, true
			}
		}
		return models.UserLocation{}, false
	}

	switch {
	case !a.centeredOnce:
		// First render with data: the selected user wins, else the first
		// online user. Nothing to center on yet stays uncentered.
		if u, ok := find(selected); ok {
			a.backend.CenterOn(u.Latitude, u.Longitude, overviewZoom)
			a.centeredOnce = true
		} else if len(users) > 0 {
			a.backend.CenterOn(users[0].Latitude, users[0].Longitude, overviewZoom)
			a.centeredOnce = true
		}

	case selected != a.lastSelected && selected != 0:
		if u, ok := find(selected); ok {
			a.backend.CenterOn(u.Latitude, u.Longitude, overviewZoom)
		}

	case selected != 0 && len(route) > a.lastRouteLen && len(route) > 0:
		last := route[len(route)-1]
		a.backend.CenterOn(last.Latitude, last.Longitude, focusZoom)
		if tu, ok := a.backend.(TargetUpdater); ok {
			tu.UpdateTarget(last.Latitude, last.Longitude)
		}
	}
}
