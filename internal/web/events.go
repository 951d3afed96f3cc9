package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// eventBuffer is the per-subscriber channel depth; a stalled
	// WebSocket misses events beyond this rather than backing up the
	// publishers.
	eventBuffer = 64

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The observer surface binds to localhost; origin checks add
	// nothing there and break file:// dashboards.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and forwards bus events as JSON
// frames until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe(eventBuffer)
	defer s.bus.Unsubscribe(sub)

	s.logger.Debug("event stream connected", "remote", r.RemoteAddr)

	// Reader goroutine: we never expect client frames, but reading is
	// required to notice closes and to process control frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
