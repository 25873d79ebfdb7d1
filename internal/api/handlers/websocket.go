package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"concord-gateway/internal/api/middleware"
	"concord-gateway/internal/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS middleware; the upgrade itself accepts
	// any origin that made it this far.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *gateway.Hub
}

func NewWSHandler(hub *gateway.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades a verified request and hands the connection to
// the hub. Unverified requests never reach this point; WSAuth aborts them.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "userID", identity.UserID, "error", err)
		return
	}

	h.hub.HandleConnection(conn, identity)
}
