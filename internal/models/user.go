package models

import (
	"gorm.io/gorm"
)

// Presence status values. "offline" is only reachable through the last
// session closing; explicit changes move between the other three.
const (
	StatusOnline  = "online"
	StatusIdle    = "idle"
	StatusDND     = "dnd"
	StatusOffline = "offline"
)

// User represents the user entity. Password is managed by the auth service
// that issues tokens; this service only reads profiles.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `json:"-"`
	Avatar   string `json:"avatar,omitempty"`
	// Status is the durable presence record; the Redis cache mirrors it
	// with a TTL.
	Status string `gorm:"type:varchar(20);default:'offline'" json:"status"`

	Servers []*Server `gorm:"many2many:server_members" json:"servers,omitempty"`
}

/** -------------------- DTOs -------------------- */

// PublicProfile is the shape broadcast to other users (voice joins, call
// invites). Never includes email.
type PublicProfile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status"`
}

func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Status:   u.Status,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
