package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"concord-gateway/internal/gateway"
	"concord-gateway/internal/models"
	"concord-gateway/internal/repositories/postgres"
)

type FriendHandler struct {
	friends  *postgres.FriendRepository
	profiles *postgres.ProfileRepository
	hub      *gateway.Hub
}

func NewFriendHandler(friends *postgres.FriendRepository, profiles *postgres.ProfileRepository, hub *gateway.Hub) *FriendHandler {
	return &FriendHandler{friends: friends, profiles: profiles, hub: hub}
}

// SendRequest persists a pending friendship and notifies the target's
// personal room. An offline target finds the request in the database on
// next login; no realtime delivery is owed.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	friendID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetUint("user_id")
	if friendID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	if _, err := h.friends.CreateRequest(c.Request.Context(), userID, friendID); err != nil {
		if errors.Is(err, postgres.ErrFriendshipExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "friendship already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create friend request",
			Details: err.Error(),
		})
		return
	}

	profile, err := h.profiles.GetPublicProfile(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load requester profile", "userID", userID, "error", err)
		profile = &models.PublicProfile{ID: userID}
	}
	if err := h.hub.Relay(c.Request.Context(), gateway.UserRoom(friendID), gateway.EventFriendRequest, models.FriendRequestEvent{From: profile}); err != nil {
		slog.Error("Failed to relay friend request", "friendID", friendID, "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{"status": models.FriendStatusPending})
}

// AcceptRequest flips the pending edge to accepted and notifies the
// original requester.
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	requesterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := c.GetUint("user_id")

	if _, err := h.friends.Accept(c.Request.Context(), userID, requesterID); err != nil {
		if errors.Is(err, postgres.ErrFriendshipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "friend request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to accept friend request",
			Details: err.Error(),
		})
		return
	}

	profile, err := h.profiles.GetPublicProfile(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to load accepter profile", "userID", userID, "error", err)
		profile = &models.PublicProfile{ID: userID}
	}
	if err := h.hub.Relay(c.Request.Context(), gateway.UserRoom(requesterID), gateway.EventFriendAccepted, models.FriendAcceptedEvent{By: profile}); err != nil {
		slog.Error("Failed to relay friend acceptance", "requesterID", requesterID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": models.FriendStatusAccepted})
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	ids, err := h.friends.ListFriendIDs(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list friends",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": ids})
}
