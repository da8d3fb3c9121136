package web

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fieldops/fieldtrack/render"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token auth happens in the middleware; the origin is not checked.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FrameHub fans canvas frames out to every connected websocket client. It is
// the FrameSink the canvas backend renders into.
type FrameHub struct {
	logger *zap.SugaredLogger

	mu        sync.Mutex
	clients   map[*websocket.Conn]chan render.Frame
	lastFrame *render.Frame
}

func NewFrameHub(logger *zap.SugaredLogger) *FrameHub {
	return &FrameHub{
		logger:  logger,
		clients: map[*websocket.Conn]chan render.Frame{},
	}
}

// EmitFrame broadcasts the frame. Slow clients skip frames rather than block
// the renderer.
func (h *FrameHub) EmitFrame(f render.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastFrame = &f
	for conn, send := range h.clients {
		select {
		case send <- f:
		default:
			h.logger.Debugf("Client %s lagging, frame skipped", conn.RemoteAddr())
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *FrameHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams frames until the client goes away.
// A late-joining client receives the latest frame immediately.
func (h *FrameHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade live-map connection: %v", err)
		return
	}

	send := make(chan render.Frame, 8)
	h.mu.Lock()
	h.clients[conn] = send
	if h.lastFrame != nil {
		send <- *h.lastFrame
	}
	h.mu.Unlock()
	h.logger.Infof("Live-map client connected: %s", conn.RemoteAddr())

	done := make(chan struct{})

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces the close.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.drop(conn)
			return
		case f := <-send:
			if err := conn.WriteJSON(f); err != nil {
				h.logger.Debugf("Failed to write frame to %s: %v", conn.RemoteAddr(), err)
				h.drop(conn)
				return
			}
		}
	}
}

func (h *FrameHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Infof("Live-map client disconnected: %s", conn.RemoteAddr())
}
