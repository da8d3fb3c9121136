package render

// MarkerKind distinguishes what a marker stands for on the map.
type MarkerKind string

const (
	MarkerUser  MarkerKind = "user"
	MarkerPoint MarkerKind = "point"
	MarkerForm  MarkerKind = "form"
)

// Marker is one renderable map pin. Details feed the overlay panel shown when
// the marker is clicked.
type Marker struct {
	ID        string     `json:"id"`
	Kind      MarkerKind `json:"kind"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Color     string     `json:"color"`
	Label     string     `json:"label"`
	Details   []string   `json:"details,omitempty"`
}

// Polyline is the selected user's traced path.
type Polyline struct {
	Points [][2]float64 `json:"points"`
	Color  string       `json:"color"`
}

// Overlay is the info panel for a clicked marker. An Overlay with
// Visible=false hides the panel.
type Overlay struct {
	Title   string   `json:"title"`
	Lines   []string `json:"lines,omitempty"`
	Visible bool     `json:"visible"`
}

// Backend is the rendering surface. One implementation is chosen at
// composition time; rendering code never branches on the platform.
type Backend interface {
	RenderMarkers(markers []Marker)
	RenderPolyline(line Polyline)
	CenterOn(lat, lng float64, zoom int)
	ShowOverlay(o Overlay)
}

// TargetUpdater is implemented by backends that can move a focused marker to
// a new position independently of a full marker re-render.
type TargetUpdater interface {
	UpdateTarget(lat, lng float64)
}
