package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fieldops/fieldtrack/config"
)

type recordingSink struct {
	frames []Frame
}

func (r *recordingSink) EmitFrame(f Frame) { r.frames = append(r.frames, f) }

func TestCanvasEmitsFrameOnEveryCall(t *testing.T) {
	sink := &recordingSink{}
	c := NewCanvas(config.MustGetLogger(), sink)
	c.nowFunc = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }

	c.RenderMarkers([]Marker{{ID: "user-1", Latitude: 4.6, Longitude: -74.1}})
	c.CenterOn(4.6, -74.1, focusZoom)

	assert.Len(t, sink.frames, 2)
	// The second frame still carries the markers from the first call.
	assert.Len(t, sink.frames[1].Markers, 1)
	assert.Equal(t, focusZoom, sink.frames[1].Zoom)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), sink.frames[1].RenderedAt)
}

func TestCanvasCurrentFrameIsACopy(t *testing.T) {
	sink := &recordingSink{}
	c := NewCanvas(config.MustGetLogger(), sink)

	c.RenderMarkers([]Marker{{ID: "user-1"}})
	f := c.CurrentFrame()
	f.Markers[0].ID = "mutated"

	assert.Equal(t, "user-1", c.CurrentFrame().Markers[0].ID)
}

func TestCanvasNilSinkDropsFrames(t *testing.T) {
	c := NewCanvas(config.MustGetLogger(), nil)

	// Must not panic.
	c.RenderMarkers([]Marker{{ID: "user-1"}})
	c.RenderPolyline(Polyline{})
	c.ShowOverlay(Overlay{Visible: true})

	assert.Len(t, c.CurrentFrame().Markers, 1, "state still tracked for late-attaching clients")
}
