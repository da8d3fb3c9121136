package render

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
)

// MapEngine is the native map surface the backend drives.
type MapEngine interface {
	SetMarkers(markers []Marker)
	SetPolyline(line Polyline)
	AnimateTo(lat, lng float64, zoom int)
	MoveMarker(id string, lat, lng float64)
	ShowOverlay(o Overlay)
}

// Animator interpolates a marker between two positions. Engines without
// animation primitives simply do not provide one.
type Animator interface {
	AnimateMarker(id string, fromLat, fromLng, toLat, toLng float64, duration time.Duration)
}

const focusMarkerID = "focus"

// Native drives a platform map engine. The focused marker keeps explicit
// target state: UpdateTarget animates from the previous target to the new one
// over the configured duration, or jumps statically when no animator exists.
// A nil engine degrades to the unavailable placeholder.
type Native struct {
	logger   *zap.SugaredLogger
	engine   MapEngine
	animator Animator
	duration time.Duration

	mu        sync.Mutex
	hasTarget bool
	targetLat float64
	targetLng float64
	warned    bool
}

func NewNative(logger *zap.SugaredLogger, cfg *config.RenderConfig, engine MapEngine, animator Animator) *Native {
	return &Native{
		logger:   logger,
		engine:   engine,
		animator: animator,
		duration: cfg.AnimationDuration,
	}
}

func (n *Native) available() bool {
	if n.engine != nil {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.warned {
		n.warned = true
		n.logger.Warn("Map engine unavailable, rendering placeholder")
	}
	return false
}

func (n *Native) RenderMarkers(markers []Marker) {
	if !n.available() {
		return
	}
	n.engine.SetMarkers(markers)
}

func (n *Native) RenderPolyline(line Polyline) {
	if !n.available() {
		return
	}
	n.engine.SetPolyline(line)
}

func (n *Native) CenterOn(lat, lng float64, zoom int) {
	if !n.available() {
		return
	}
	n.engine.AnimateTo(lat, lng, zoom)
}

func (n *Native) ShowOverlay(o Overlay) {
	if !n.available() {
		return
	}
	n.engine.ShowOverlay(o)
}

// UpdateTarget moves the focused marker to a new position. The first target
// is placed statically; later ones animate when an animator is available.
func (n *Native) UpdateTarget(lat, lng float64) {
	if !n.available() {
		return
	}

	n.mu.Lock()
	fromLat, fromLng, animate := n.targetLat, n.targetLng, n.hasTarget
	n.hasTarget = true
	n.targetLat = lat
	n.targetLng = lng
	n.mu.Unlock()

	if animate && n.animator != nil {
		n.animator.AnimateMarker(focusMarkerID, fromLat, fromLng, lat, lng, n.duration)
		return
	}
	n.engine.MoveMarker(focusMarkerID, lat, lng)
}
