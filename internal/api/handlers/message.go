package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"concord-gateway/internal/adapters/kafka"
	"concord-gateway/internal/gateway"
	"concord-gateway/internal/models"
	"concord-gateway/internal/repositories/postgres"
)

// MessageHandler persists messages and only then relays them, so a socket
// delivery never races a failed write. Kafka publication is best-effort;
// downstream consumers tolerate gaps.
type MessageHandler struct {
	messages *postgres.MessageRepository
	hub      *gateway.Hub
	kafka    *kafka.Publisher
}

func NewMessageHandler(messages *postgres.MessageRepository, hub *gateway.Hub, publisher *kafka.Publisher) *MessageHandler {
	return &MessageHandler{messages: messages, hub: hub, kafka: publisher}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func (h *MessageHandler) CreateMessage(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg := &models.Message{
		ChannelID: channelID,
		UserID:    c.GetUint("user_id"),
		Text:      req.Text,
		URL:       req.URL,
		FileName:  req.FileName,
	}
	if err := h.messages.Create(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to save message",
			Details: err.Error(),
		})
		return
	}

	resp := msg.Response()
	h.relay(c, gateway.ChannelRoom(channelID), gateway.EventNewMessage, resp)
	if err := h.kafka.PublishJSON(strconv.FormatUint(uint64(channelID), 10), resp); err != nil {
		slog.Error("Failed to publish message to kafka", "messageID", msg.ID, "error", err)
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg, err := h.messages.Update(c.Request.Context(), messageID, c.GetUint("user_id"), req.Text)
	if err != nil {
		h.writeMessageError(c, err)
		return
	}

	resp := msg.Response()
	h.relay(c, gateway.ChannelRoom(msg.ChannelID), gateway.EventMessageUpdated, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	msg, err := h.messages.Delete(c.Request.Context(), messageID, c.GetUint("user_id"))
	if err != nil {
		h.writeMessageError(c, err)
		return
	}

	h.relay(c, gateway.ChannelRoom(msg.ChannelID), gateway.EventMessageDeleted, gin.H{
		"id":        msg.ID,
		"channelId": msg.ChannelID,
	})
	c.JSON(http.StatusOK, gin.H{"deleted": msg.ID})
}

func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	messages, err := h.messages.ListByChannel(c.Request.Context(), channelID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to get messages",
			Details: err.Error(),
		})
		return
	}

	responses := make([]*models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].Response())
	}
	c.JSON(http.StatusOK, gin.H{"items": responses, "total": len(responses)})
}

// CreateDirectMessage persists a DM and delivers it to both personal rooms,
// so every open session of either user sees it.
func (h *MessageHandler) CreateDirectMessage(c *gin.Context) {
	receiverID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg := &models.DirectMessage{
		SenderID:   c.GetUint("user_id"),
		ReceiverID: receiverID,
		Text:       req.Text,
	}
	if err := h.messages.CreateDirect(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to save direct message",
			Details: err.Error(),
		})
		return
	}

	resp := msg.Response()
	h.relay(c, gateway.UserRoom(msg.ReceiverID), gateway.EventNewDM, resp)
	h.relay(c, gateway.UserRoom(msg.SenderID), gateway.EventNewDM, resp)

	c.JSON(http.StatusCreated, resp)
}

func (h *MessageHandler) relay(c *gin.Context, room, eventType string, payload any) {
	if err := h.hub.Relay(c.Request.Context(), room, eventType, payload); err != nil {
		slog.Error("Failed to relay message event", "room", room, "type", eventType, "error", err)
	}
}

func (h *MessageHandler) writeMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, postgres.ErrNotMessageOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "message belongs to another user"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to modify message",
			Details: err.Error(),
		})
	}
}
