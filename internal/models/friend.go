package models

import (
	"gorm.io/gorm"
)

const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// Friend is a directed friendship edge; UserID sent the request.
type Friend struct {
	gorm.Model
	UserID   uint   `gorm:"not null;index:idx_friend_pair,unique" json:"userId"`
	FriendID uint   `gorm:"not null;index:idx_friend_pair,unique" json:"friendId"`
	Status   string `gorm:"not null;type:varchar(20);default:'pending'" json:"status"`
}

/** -------------------- DTOs -------------------- */

type FriendRequestEvent struct {
	From *PublicProfile `json:"from"`
}

type FriendAcceptedEvent struct {
	By *PublicProfile `json:"by"`
}
