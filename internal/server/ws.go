package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/airmouse/internal/app"
)

const wsWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// HandSource publishes hand tracking updates.
type HandSource interface {
	Subscribe() (<-chan app.HandData, func())
}

// HandHandler pushes every processed frame's hand data over WebSocket.
type HandHandler struct {
	source HandSource
	logger *zap.Logger
}

// NewHandHandler creates a new HandHandler for the given source.
func NewHandHandler(source HandSource, logger *zap.Logger) *HandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandHandler{source: source, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *HandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case data := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(data); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
