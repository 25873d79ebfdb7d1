package gateway

import (
	"context"
	"log/slog"
	"time"

	"concord-gateway/internal/models"
)

// VoiceCoordinator tracks voice-channel membership. Transport-level rooms
// are per-connection; the persisted set is per-user with a sliding TTL so it
// survives restarts for a bounded window. The coordinator keeps one current
// channel pointer per connection for disconnect cleanup; it does not enforce
// exclusivity across channels, that is the API layer's job.
type VoiceCoordinator struct {
	rooms    *RoomRegistry
	store    VoiceStore
	profiles ProfileStore
	pub      Publisher
	ttl      time.Duration
}

func NewVoiceCoordinator(rooms *RoomRegistry, store VoiceStore, profiles ProfileStore, pub Publisher, ttl time.Duration) *VoiceCoordinator {
	return &VoiceCoordinator{
		rooms:    rooms,
		store:    store,
		profiles: profiles,
		pub:      pub,
		ttl:      ttl,
	}
}

// Join persists membership, subscribes the connection to the transport voice
// room and announces the join to the whole server, so members outside the
// voice channel see it too. Store failure degrades to transport-only
// membership.
func (v *VoiceCoordinator) Join(ctx context.Context, c *Client, channelID uint) error {
	if channelID == 0 {
		return ErrMalformedEvent
	}

	if err := v.store.AddMember(ctx, channelID, c.UserID(), v.ttl); err != nil {
		slog.Error("Failed to persist voice membership", "userID", c.UserID(), "channelID", channelID, "error", err)
	}

	v.rooms.Join(c, VoiceRoom(channelID))
	c.setVoiceChannel(channelID)

	v.announce(ctx, c, channelID, true)
	return nil
}

// Leave mirrors Join. The persisted record is keyed by user, so a user with
// two connections in the same channel loses it on the first leave; see the
// roster endpoint for how reconciliation reads it back.
func (v *VoiceCoordinator) Leave(ctx context.Context, c *Client, channelID uint) error {
	if channelID == 0 {
		return ErrMalformedEvent
	}

	if err := v.store.RemoveMember(ctx, channelID, c.UserID()); err != nil {
		slog.Error("Failed to remove voice membership", "userID", c.UserID(), "channelID", channelID, "error", err)
	}

	v.rooms.Leave(c, VoiceRoom(channelID))
	c.clearVoiceChannel(channelID)

	v.announce(ctx, c, channelID, false)
	return nil
}

// LeaveCurrent runs Leave against the connection's recorded channel, if any.
// Invoked from disconnect cleanup.
func (v *VoiceCoordinator) LeaveCurrent(ctx context.Context, c *Client) {
	if channelID := c.VoiceChannel(); channelID != 0 {
		if err := v.Leave(ctx, c, channelID); err != nil {
			slog.Error("Failed to leave voice on disconnect", "clientID", c.ID(), "channelID", channelID, "error", err)
		}
	}
}

// RefreshCurrent slides the membership expiry of the connection's voice
// channel. Called on inbound activity so a live connection never expires out
// of its channel.
func (v *VoiceCoordinator) RefreshCurrent(ctx context.Context, c *Client) {
	if channelID := c.VoiceChannel(); channelID != 0 {
		if err := v.store.Refresh(ctx, channelID, v.ttl); err != nil {
			slog.Debug("Failed to refresh voice membership", "channelID", channelID, "error", err)
		}
	}
}

// Roster returns the persisted membership of a voice channel.
func (v *VoiceCoordinator) Roster(ctx context.Context, channelID uint) ([]uint, error) {
	return v.store.ListMembers(ctx, channelID)
}

func (v *VoiceCoordinator) announce(ctx context.Context, c *Client, channelID uint, joined bool) {
	serverID, err := v.profiles.GetServerIDForChannel(ctx, channelID)
	if err != nil {
		slog.Error("Failed to resolve server for voice channel", "channelID", channelID, "error", err)
		return
	}

	var ev *Event
	if joined {
		profile, err := v.profiles.GetPublicProfile(ctx, c.UserID())
		if err != nil {
			slog.Warn("Failed to load profile for voice announce", "userID", c.UserID(), "error", err)
			profile = &models.PublicProfile{ID: c.UserID(), Username: c.Username()}
		}
		ev, err = NewEvent(EventVoiceUserJoined, VoiceUserJoinedEvent{ChannelID: channelID, User: profile})
		if err != nil {
			slog.Error("Failed to build voice_user_joined event", "error", err)
			return
		}
	} else {
		ev, err = NewEvent(EventVoiceUserLeft, VoiceUserLeftEvent{ChannelID: channelID, UserID: c.UserID()})
		if err != nil {
			slog.Error("Failed to build voice_user_left event", "error", err)
			return
		}
	}

	v.pub.PublishEvent(ctx, ServerRoom(serverID), ev, nil)
}
