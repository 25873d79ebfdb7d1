package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"concord-gateway/internal/gateway"
	"concord-gateway/internal/models"
	"concord-gateway/internal/repositories/postgres"
)

type VoiceHandler struct {
	hub      *gateway.Hub
	profiles *postgres.ProfileRepository
}

func NewVoiceHandler(hub *gateway.Hub, profiles *postgres.ProfileRepository) *VoiceHandler {
	return &VoiceHandler{hub: hub, profiles: profiles}
}

// GetRoster returns who is in a voice channel right now, with profiles
// resolved for rendering. Membership comes from the persisted store, so
// the answer is consistent across gateway instances.
func (h *VoiceHandler) GetRoster(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ids, err := h.hub.Voice().Roster(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to read voice roster",
			Details: err.Error(),
		})
		return
	}

	members := make([]*models.PublicProfile, 0, len(ids))
	for _, id := range ids {
		profile, err := h.profiles.GetPublicProfile(c.Request.Context(), id)
		if err != nil {
			slog.Error("Failed to resolve voice member profile", "userID", id, "error", err)
			profile = &models.PublicProfile{ID: id}
		}
		members = append(members, profile)
	}

	c.JSON(http.StatusOK, gin.H{"channelId": channelID, "members": members})
}
