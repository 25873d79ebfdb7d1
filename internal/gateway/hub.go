package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"concord-gateway/internal/auth"
)

// Hub is the connection lifecycle controller. It owns the room registry and
// session tracker, wires the coordinators together and dispatches inbound
// events. One instance per process, created at startup and torn down at
// shutdown; every connection handler receives it by reference.
type Hub struct {
	rooms    *RoomRegistry
	sessions *SessionTracker
	presence *PresenceCoordinator
	voice    *VoiceCoordinator
	relay    *SignalingRelay

	profiles ProfileStore
	bus      EventBus

	mu      sync.Mutex
	clients map[*Client]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// Deps carries the external collaborators; Bus may be nil for
// single-instance operation.
type Deps struct {
	Profiles ProfileStore
	Status   StatusStore
	Voice    VoiceStore
	Bus      EventBus

	PresenceCacheTTL time.Duration
	VoiceTTL         time.Duration
}

func NewHub(deps Deps) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		rooms:    NewRoomRegistry(),
		sessions: NewSessionTracker(),
		profiles: deps.Profiles,
		bus:      deps.Bus,
		clients:  make(map[*Client]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	h.presence = NewPresenceCoordinator(h.sessions, deps.Profiles, deps.Status, h, deps.PresenceCacheTTL)
	h.voice = NewVoiceCoordinator(h.rooms, deps.Voice, deps.Profiles, h, deps.VoiceTTL)
	h.relay = NewSignalingRelay(h)

	return h
}

func (h *Hub) Rooms() *RoomRegistry           { return h.rooms }
func (h *Hub) Sessions() *SessionTracker      { return h.sessions }
func (h *Hub) Voice() *VoiceCoordinator       { return h.voice }
func (h *Hub) Presence() *PresenceCoordinator { return h.presence }

// PublishEvent delivers an event to local room members and mirrors it to
// other instances through the bus. Bus failure degrades to local-only
// delivery.
func (h *Hub) PublishEvent(ctx context.Context, room string, event *Event, exclude *Client) {
	data, err := event.Encode()
	if err != nil {
		slog.Error("Failed to encode event", "type", event.Type, "error", err)
		return
	}

	h.rooms.BroadcastRaw(room, data, exclude)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, room, data); err != nil {
			slog.Error("Failed to mirror event to bus", "room", room, "type", event.Type, "error", err)
		}
	}
}

// DeliverRemote fans a bus event out to local members only; the publishing
// instance already handled its own.
func (h *Hub) DeliverRemote(room string, event []byte) {
	h.rooms.BroadcastRaw(room, event, nil)
}

// Relay forwards an externally constructed payload (persisted messages,
// friend events) to a room verbatim.
func (h *Hub) Relay(ctx context.Context, room string, eventType string, payload any) error {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	h.PublishEvent(ctx, room, ev, nil)
	return nil
}

// SetStatus applies an explicit presence change for a user (REST surface).
func (h *Hub) SetStatus(ctx context.Context, userID uint, status string) error {
	return h.presence.SetStatus(ctx, userID, status)
}

// HandleConnection takes over a verified connection: registers the session,
// marks the user online on their first session, joins the personal room and
// every server room the user belongs to, then starts the pumps. The caller
// has already refused unverified connections.
func (h *Hub) HandleConnection(conn Conn, identity auth.Identity) *Client {
	c := newClient(h, conn, identity)

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	first := h.presence.HandleConnect(h.ctx, c)

	h.rooms.Join(c, UserRoom(c.UserID()))
	serverIDs, err := h.profiles.GetServerMembershipsOf(h.ctx, c.UserID())
	if err != nil {
		slog.Error("Failed to load memberships at connect", "userID", c.UserID(), "error", err)
	}
	for _, serverID := range serverIDs {
		h.rooms.Join(c, ServerRoom(serverID))
	}

	slog.Info("Client connected", "clientID", c.ID(), "userID", c.UserID(), "firstSession", first, "servers", len(serverIDs))

	go c.writePump()
	go c.readPump()

	return c
}

// disconnect runs full cleanup for a connection, in order: leave the current
// voice channel, leave every room, unregister the session (marking the user
// offline if it was the last one). Idempotent; a connection can report
// multiple close signals.
func (h *Hub) disconnect(c *Client) {
	if !atomic.CompareAndSwapInt32(&c.cleanedUp, 0, 1) {
		return
	}

	c.close()

	h.voice.LeaveCurrent(h.ctx, c)
	h.rooms.LeaveAll(c)
	last := h.presence.HandleDisconnect(h.ctx, c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.closeSendChannel()

	slog.Info("Client disconnected", "clientID", c.ID(), "userID", c.UserID(), "lastSession", last)
}

// Dispatch routes one inbound event. Any failure is isolated to the event:
// logged, reported to the sender, and the connection stays active.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in event handler", "clientID", c.ID(), "panic", r)
			c.sendError("INTERNAL_ERROR", "internal error")
		}
	}()

	h.voice.RefreshCurrent(h.ctx, c)

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
		slog.Debug("Malformed event envelope", "clientID", c.ID(), "error", err)
		c.sendError("INVALID_EVENT", "invalid event format")
		return
	}

	if err := h.route(c, &ev); err != nil {
		switch {
		case errors.Is(err, ErrMalformedEvent):
			slog.Debug("Malformed event dropped", "clientID", c.ID(), "type", ev.Type, "error", err)
			c.sendError("INVALID_EVENT", "missing required fields")
		case errors.Is(err, ErrUnknownEvent):
			slog.Debug("Unknown event dropped", "clientID", c.ID(), "type", ev.Type)
			c.sendError("UNKNOWN_EVENT", "unknown event type")
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNoActiveSessions):
			c.sendError("INVALID_STATUS", err.Error())
		default:
			slog.Error("Event handler failed", "clientID", c.ID(), "type", ev.Type, "error", err)
			c.sendError("INTERNAL_ERROR", "failed to process event")
		}
	}
}

func (h *Hub) route(c *Client, ev *Event) error {
	ctx := h.ctx

	switch ev.Type {
	case EventJoinChannel:
		p, err := decode[ChannelPayload](ev)
		if err != nil || p.ChannelID == 0 {
			return ErrMalformedEvent
		}
		h.rooms.Join(c, ChannelRoom(p.ChannelID))
		return nil

	case EventLeaveChannel:
		p, err := decode[ChannelPayload](ev)
		if err != nil || p.ChannelID == 0 {
			return ErrMalformedEvent
		}
		h.rooms.Leave(c, ChannelRoom(p.ChannelID))
		return nil

	case EventTypingStart, EventTypingStop:
		p, err := decode[ChannelPayload](ev)
		if err != nil || p.ChannelID == 0 {
			return ErrMalformedEvent
		}
		outType := EventUserTyping
		if ev.Type == EventTypingStop {
			outType = EventUserStopTyping
		}
		out, err := NewEvent(outType, TypingEvent{ChannelID: p.ChannelID, UserID: c.UserID(), Username: c.Username()})
		if err != nil {
			return err
		}
		h.PublishEvent(ctx, ChannelRoom(p.ChannelID), out, c)
		return nil

	case EventStatusChange:
		p, err := decode[StatusChangePayload](ev)
		if err != nil || p.Status == "" {
			return ErrMalformedEvent
		}
		return h.presence.SetStatus(ctx, c.UserID(), p.Status)

	case EventVoiceJoin:
		p, err := decode[ChannelPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.voice.Join(ctx, c, p.ChannelID)

	case EventVoiceLeave:
		p, err := decode[ChannelPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.voice.Leave(ctx, c, p.ChannelID)

	case EventCallInvite:
		p, err := decode[CallInvitePayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.CallInvite(ctx, c, p)

	case EventCallAccept:
		p, err := decode[CallAcceptPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.CallAccept(ctx, c, p)

	case EventCallReject:
		p, err := decode[CallTargetPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.CallReject(ctx, c, p)

	case EventCallEnd:
		p, err := decode[CallTargetPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.CallEnd(ctx, c, p)

	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICE:
		p, err := decode[WebRTCPayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.WebRTC(ctx, c, ev.Type, p)

	case EventScreenShareStart, EventScreenShareStop:
		p, err := decode[ScreenSharePayload](ev)
		if err != nil {
			return ErrMalformedEvent
		}
		return h.relay.ScreenShare(ctx, c, ev.Type, p)

	default:
		return ErrUnknownEvent
	}
}

func decode[T any](ev *Event) (*T, error) {
	var p T
	if len(ev.Data) == 0 {
		return nil, ErrMalformedEvent
	}
	if err := json.Unmarshal(ev.Data, &p); err != nil {
		return nil, ErrMalformedEvent
	}
	return &p, nil
}

// Stop tears the hub down: every remaining connection is closed and runs the
// same cleanup as an organic disconnect.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.disconnect(c)
		c.conn.Close()
	}

	h.cancel()
	slog.Info("Gateway hub stopped", "clients", len(clients))
}
