package render

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Frame is one complete canvas render: everything a web client needs to draw
// the map from scratch.
type Frame struct {
	Markers    []Marker  `json:"markers"`
	Polyline   Polyline  `json:"polyline"`
	CenterLat  float64   `json:"centerLat"`
	CenterLng  float64   `json:"centerLng"`
	Zoom       int       `json:"zoom"`
	Overlay    Overlay   `json:"overlay"`
	RenderedAt time.Time `json:"renderedAt"`
}

// FrameSink receives canvas frames, typically a websocket fan-out.
type FrameSink interface {
	EmitFrame(f Frame)
}

// Canvas is the web backend: each Backend call updates the current frame and
// emits it. A nil sink degrades to the unavailable placeholder, logging once
// and dropping frames.
type Canvas struct {
	logger *zap.SugaredLogger
	sink   FrameSink

	mu      sync.Mutex
	frame   Frame
	warned  bool
	nowFunc func() time.Time
}

func NewCanvas(logger *zap.SugaredLogger, sink FrameSink) *Canvas {
	return &Canvas{
		logger:  logger,
		sink:    sink,
		frame:   Frame{Zoom: overviewZoom},
		nowFunc: time.Now,
	}
}

func (c *Canvas) RenderMarkers(markers []Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Markers = markers
	c.emitLocked()
}

func (c *Canvas) RenderPolyline(line Polyline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Polyline = line
	c.emitLocked()
}

func (c *Canvas) CenterOn(lat, lng float64, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.CenterLat = lat
	c.frame.CenterLng = lng
	c.frame.Zoom = zoom
	c.emitLocked()
}

func (c *Canvas) ShowOverlay(o Overlay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Overlay = o
	c.emitLocked()
}

// CurrentFrame returns a copy of the latest frame, for clients joining
// mid-stream.
func (c *Canvas) CurrentFrame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.frame
	f.Markers = append([]Marker(nil), c.frame.Markers...)
	f.Polyline.Points = append([][2]float64(nil), c.frame.Polyline.Points...)
	return f
}

func (c *Canvas) emitLocked() {
	if c.sink == nil {
		if !c.warned {
			c.warned = true
			c.logger.Warn("No frame sink attached, dropping canvas frames")
		}
		return
	}
	c.frame.RenderedAt = c.nowFunc()
	c.sink.EmitFrame(c.frame)
}
