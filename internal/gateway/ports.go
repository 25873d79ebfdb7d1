package gateway

import (
	"context"
	"time"

	"concord-gateway/internal/models"
)

// ProfileStore answers the durable lookups the coordinators need. Backed by
// postgres in production, faked in tests.
type ProfileStore interface {
	GetPublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error)
	GetServerMembershipsOf(ctx context.Context, userID uint) ([]uint, error)
	GetServerIDForChannel(ctx context.Context, channelID uint) (uint, error)
	UpdateStatus(ctx context.Context, userID uint, status string) error
}

// StatusStore is the fast-lookup presence cache.
type StatusStore interface {
	SetStatus(ctx context.Context, userID uint, status string, ttl time.Duration) error
	GetStatus(ctx context.Context, userID uint) (string, error)
}

// VoiceStore persists voice-channel membership keyed by user with a sliding
// expiry.
type VoiceStore interface {
	AddMember(ctx context.Context, channelID, userID uint, ttl time.Duration) error
	RemoveMember(ctx context.Context, channelID, userID uint) error
	ListMembers(ctx context.Context, channelID uint) ([]uint, error)
	Refresh(ctx context.Context, channelID uint, ttl time.Duration) error
}

// EventBus mirrors room broadcasts to other gateway instances. Optional;
// a nil bus means single-instance operation.
type EventBus interface {
	Publish(ctx context.Context, room string, event []byte) error
}

// Publisher delivers an event to a room. The Hub implements it by combining
// local fan-out with the event bus; coordinators depend on this narrow
// surface so tests can record publishes without a hub.
type Publisher interface {
	PublishEvent(ctx context.Context, room string, event *Event, exclude *Client)
}
