package handler

import (
	"net/http"

	cws "github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/registry"
)

// WSHandler upgrades push clients to websocket and hands them to the
// connection registry.
type WSHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func NewWSHandler(reg *registry.Registry, logger *zap.Logger) *WSHandler {
	return &WSHandler{registry: reg, logger: logger}
}

// Serve handles GET /ws?user_id=
//
// The connection is registered for the lifetime of the read loop. Clients
// never send application data; the read loop exists to observe closure and
// to let the websocket library answer pings. Disconnect for any reason
// deregisters the connection.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	wrapped := registry.NewWSConn(conn)
	h.registry.Register(userID, wrapped)
	defer h.registry.Unregister(userID, wrapped)

	// Discard inbound frames until the peer goes away.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			h.logger.Debug("websocket closed", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}
}
