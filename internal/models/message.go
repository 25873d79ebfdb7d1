package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a persisted channel message. The gateway relays it verbatim
// after the write commits; it never constructs message payloads itself.
type Message struct {
	gorm.Model
	ChannelID uint    `gorm:"not null;index" json:"channelId"`
	UserID    uint    `gorm:"not null;index" json:"userId"`
	Text      string  `json:"text"`
	URL       *string `json:"url,omitempty"`
	FileName  *string `json:"fileName,omitempty"`
}

// DirectMessage is a persisted user-to-user message, delivered to both
// personal rooms as new_dm.
type DirectMessage struct {
	gorm.Model
	SenderID   uint   `gorm:"not null;index" json:"senderId"`
	ReceiverID uint   `gorm:"not null;index" json:"receiverId"`
	Text       string `json:"text"`
}

/** -------------------- DTOs -------------------- */

type CreateMessageRequest struct {
	Text     string  `json:"text" binding:"required"`
	URL      *string `json:"url,omitempty"`
	FileName *string `json:"fileName,omitempty"`
}

type UpdateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type MessageResponse struct {
	ID        uint      `json:"id"`
	ChannelID uint      `json:"channelId"`
	UserID    uint      `json:"userId"`
	Text      string    `json:"text"`
	URL       *string   `json:"url,omitempty"`
	FileName  *string   `json:"fileName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Message) Response() *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		UserID:    m.UserID,
		Text:      m.Text,
		URL:       m.URL,
		FileName:  m.FileName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type DirectMessageResponse struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"senderId"`
	ReceiverID uint      `json:"receiverId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m *DirectMessage) Response() *DirectMessageResponse {
	return &DirectMessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}
