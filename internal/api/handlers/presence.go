package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"concord-gateway/internal/gateway"
	"concord-gateway/internal/models"
	"concord-gateway/internal/services"
)

type PresenceHandler struct {
	hub    *gateway.Hub
	status *services.StatusStore
}

func NewPresenceHandler(hub *gateway.Hub, status *services.StatusStore) *PresenceHandler {
	return &PresenceHandler{hub: hub, status: status}
}

// UpdateStatus applies an explicit presence change for the authenticated
// user and broadcasts it the same way a socket-borne status_change would.
func (h *PresenceHandler) UpdateStatus(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	if err := h.hub.SetStatus(c.Request.Context(), userID, req.Status); err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be online, idle or dnd"})
		case errors.Is(err, gateway.ErrNoActiveSessions):
			c.JSON(http.StatusConflict, gin.H{"error": "no active sessions"})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to update status",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// GetStatuses answers a batch presence lookup: /presence?ids=1,2,3.
// Unknown users read as offline; the cache never 404s.
func (h *PresenceHandler) GetStatuses(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids parameter is required"})
		return
	}

	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id: " + part})
			return
		}
		ids = append(ids, uint(id))
	}

	statuses, err := h.status.GetStatuses(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to read presence",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}
