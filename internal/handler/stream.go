package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mir00r/lb-dashboard/pkg/logger"
)

const writeWait = 5 * time.Second

// StreamHandler pushes the status document over a WebSocket at a fixed
// interval, for consumers that prefer a stream over polling /status
type StreamHandler struct {
	status   StatusSource
	interval time.Duration
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(status StatusSource, interval time.Duration, log *logger.Logger) *StreamHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StreamHandler{
		status:   status,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeHTTP upgrades the connection and streams until the client goes away
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	// Drop the read deadline the HTTP server set for the upgrade request
	conn.SetReadDeadline(time.Time{})

	// Inbound frames are ignored; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.WithError(err).Warn("WebSocket read failed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.status.Status()); err != nil {
			h.logger.WithError(err).Debug("Stream client dropped")
			return
		}

		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}
