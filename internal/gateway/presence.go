package gateway

import (
	"context"
	"log/slog"
	"time"

	"concord-gateway/internal/models"
)

// PresenceCoordinator owns the per-user presence state machine:
//
//	offline -> (first session opens) -> online
//	online/idle/dnd <-> (explicit change) <-> online/idle/dnd
//	-> (last session closes) -> offline
//
// Every transition writes the durable store and the TTL cache, then
// broadcasts user_status to each server room the user belongs to. Store or
// cache failure is logged and never blocks connection setup or delivery.
type PresenceCoordinator struct {
	sessions *SessionTracker
	profiles ProfileStore
	status   StatusStore
	pub      Publisher
	cacheTTL time.Duration
}

func NewPresenceCoordinator(sessions *SessionTracker, profiles ProfileStore, status StatusStore, pub Publisher, cacheTTL time.Duration) *PresenceCoordinator {
	return &PresenceCoordinator{
		sessions: sessions,
		profiles: profiles,
		status:   status,
		pub:      pub,
		cacheTTL: cacheTTL,
	}
}

// HandleConnect registers the session and, on the user's first session,
// transitions them online. Reports whether this was the first session.
func (p *PresenceCoordinator) HandleConnect(ctx context.Context, c *Client) bool {
	first := p.sessions.AddSession(c.UserID(), c.ID())
	if first {
		p.transition(ctx, c.UserID(), models.StatusOnline)
	}
	return first
}

// HandleDisconnect unregisters the session and, on the user's last session,
// transitions them offline. Other open sessions keep the user online and no
// broadcast occurs.
func (p *PresenceCoordinator) HandleDisconnect(ctx context.Context, c *Client) bool {
	last := p.sessions.RemoveSession(c.UserID(), c.ID())
	if last {
		p.transition(ctx, c.UserID(), models.StatusOffline)
	}
	return last
}

// SetStatus applies an explicit status change (REST or socket event). Only
// online, idle and dnd are settable; offline is reachable solely through the
// last session closing.
func (p *PresenceCoordinator) SetStatus(ctx context.Context, userID uint, status string) error {
	switch status {
	case models.StatusOnline, models.StatusIdle, models.StatusDND:
	default:
		return ErrInvalidStatus
	}
	if !p.sessions.HasActiveSessions(userID) {
		return ErrNoActiveSessions
	}
	p.transition(ctx, userID, status)
	return nil
}

func (p *PresenceCoordinator) transition(ctx context.Context, userID uint, status string) {
	if err := p.profiles.UpdateStatus(ctx, userID, status); err != nil {
		slog.Error("Failed to persist status", "userID", userID, "status", status, "error", err)
	}
	if err := p.status.SetStatus(ctx, userID, status, p.cacheTTL); err != nil {
		slog.Error("Failed to cache status", "userID", userID, "status", status, "error", err)
	}

	serverIDs, err := p.profiles.GetServerMembershipsOf(ctx, userID)
	if err != nil {
		slog.Error("Failed to load memberships for status broadcast", "userID", userID, "error", err)
		return
	}

	ev, err := NewEvent(EventUserStatus, UserStatusEvent{UserID: userID, Status: status})
	if err != nil {
		slog.Error("Failed to build user_status event", "userID", userID, "error", err)
		return
	}
	for _, serverID := range serverIDs {
		p.pub.PublishEvent(ctx, ServerRoom(serverID), ev, nil)
	}

	slog.Info("Presence transition", "userID", userID, "status", status, "servers", len(serverIDs))
}
