package models

import (
	"time"

	"gorm.io/gorm"
)

// Server is a guild-style grouping of channels and members.
type Server struct {
	gorm.Model
	Name    string `gorm:"not null" json:"name"`
	OwnerID uint   `gorm:"not null" json:"ownerId"`
	Icon    string `json:"icon,omitempty"`

	Channels []*Channel `json:"channels,omitempty"`
	Members  []*User    `gorm:"many2many:server_members" json:"members,omitempty"`
}

// Channel type constants
const (
	ChannelTypeText  = "text"
	ChannelTypeVoice = "voice"
)

// Channel belongs to a server and is either a text or a voice channel.
// Voice channels have a transport-level room plus a persisted membership
// set; text channels only have the room.
type Channel struct {
	gorm.Model
	ServerID uint   `gorm:"not null;index" json:"serverId"`
	Name     string `gorm:"not null" json:"name"`
	Type     string `gorm:"not null;type:varchar(20);check:type IN ('text', 'voice')" json:"type"`
}

/** -------------------- DTOs -------------------- */

type ChannelResponse struct {
	ID        uint      `json:"id"`
	ServerID  uint      `json:"serverId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}
