package gateway

import (
	"fmt"
	"log/slog"
	"sync"
)

// Room name helpers. Rooms are created implicitly on first join and vanish
// when their last member leaves.
func UserRoom(userID uint) string       { return fmt.Sprintf("user:%d", userID) }
func ServerRoom(serverID uint) string   { return fmt.Sprintf("server:%d", serverID) }
func ChannelRoom(channelID uint) string { return fmt.Sprintf("channel:%d", channelID) }
func VoiceRoom(channelID uint) string   { return fmt.Sprintf("voice:%d", channelID) }

// RoomRegistry maps room names to the set of connections subscribed to them.
// Membership is many-to-many; a reverse index makes LeaveAll cheap on
// disconnect.
//
// Broadcasts within one room are FIFO relative to each other: a dedicated
// broadcast mutex serializes them. The structural lock is only held while
// snapshotting the member set, never while enqueueing, and enqueues are
// non-blocking, so a slow member cannot stall unrelated rooms.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}

	broadcastMu sync.Mutex
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// Join is idempotent.
func (r *RoomRegistry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.joined[c] == nil {
		r.joined[c] = make(map[string]struct{})
	}
	r.joined[c][room] = struct{}{}

	slog.Debug("Client joined room", "clientID", c.ID(), "room", room)
}

// Leave is idempotent; a no-op if the connection is not a member.
func (r *RoomRegistry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

func (r *RoomRegistry) leaveLocked(c *Client, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joined[c]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, c)
		}
	}
}

// LeaveAll removes the connection from every room it belongs to. Called on
// disconnect; safe to call twice.
func (r *RoomRegistry) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[c] {
		if members, ok := r.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.joined, c)
}

// Members returns a snapshot of the room's member set.
func (r *RoomRegistry) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}
	return members
}

func (r *RoomRegistry) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// IsMember reports whether the connection currently belongs to the room.
func (r *RoomRegistry) IsMember(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][c]
	return ok
}

// Broadcast delivers the event to every current member except exclude.
// Delivery is fire-and-forget to each member's outbound queue; the member
// set is the snapshot taken at call time. Returns the number of members the
// event was enqueued to.
func (r *RoomRegistry) Broadcast(room string, event *Event, exclude *Client) int {
	data, err := event.Encode()
	if err != nil {
		slog.Error("Failed to encode event", "type", event.Type, "error", err)
		return 0
	}
	return r.BroadcastRaw(room, data, exclude)
}

func (r *RoomRegistry) BroadcastRaw(room string, data []byte, exclude *Client) int {
	r.broadcastMu.Lock()
	defer r.broadcastMu.Unlock()

	members := r.Members(room)

	delivered := 0
	for _, c := range members {
		if c == exclude {
			continue
		}
		if err := c.enqueue(data); err != nil {
			slog.Debug("Dropped event for client", "clientID", c.ID(), "room", room, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
