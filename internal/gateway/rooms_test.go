package gateway

import (
	"encoding/json"
	"fmt"
	"testing"

	"concord-gateway/internal/auth"
)

func newBareClient(userID uint) *Client {
	return newClient(nil, newMockConn(), auth.Identity{UserID: userID, Username: fmt.Sprintf("user%d", userID)})
}

// drain pulls every queued frame off the client's send buffer.
func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case data := <-c.send:
			var ev Event
			if json.Unmarshal(data, &ev) == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func mustEvent(t *testing.T, eventType string, payload any) *Event {
	t.Helper()
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		t.Fatalf("NewEvent(%s): %v", eventType, err)
	}
	return ev
}

func TestJoinIsIdempotent(t *testing.T) {
	rooms := NewRoomRegistry()
	c := newBareClient(1)

	rooms.Join(c, "channel:1")
	rooms.Join(c, "channel:1")

	if got := rooms.MemberCount("channel:1"); got != 1 {
		t.Errorf("expected 1 member after double join, got %d", got)
	}
}

func TestLeaveUnknownRoomIsNoop(t *testing.T) {
	rooms := NewRoomRegistry()
	c := newBareClient(1)

	rooms.Leave(c, "channel:1")

	if got := rooms.MemberCount("channel:1"); got != 0 {
		t.Errorf("expected empty room, got %d members", got)
	}
}

func TestBroadcastReachesAllMembersExceptExcluded(t *testing.T) {
	rooms := NewRoomRegistry()
	a, b, c := newBareClient(1), newBareClient(2), newBareClient(3)
	rooms.Join(a, "channel:1")
	rooms.Join(b, "channel:1")
	rooms.Join(c, "channel:1")

	ev := mustEvent(t, EventUserTyping, TypingEvent{ChannelID: 1, UserID: 1})
	delivered := rooms.Broadcast("channel:1", ev, a)

	if delivered != 2 {
		t.Errorf("expected delivery to 2 members, got %d", delivered)
	}
	if len(drain(a)) != 0 {
		t.Error("excluded sender received its own broadcast")
	}
	if len(drain(b)) != 1 || len(drain(c)) != 1 {
		t.Error("expected each other member to receive exactly one event")
	}
}

func TestBroadcastNeverReachesNonMembers(t *testing.T) {
	rooms := NewRoomRegistry()
	member, outsider := newBareClient(1), newBareClient(2)
	rooms.Join(member, "channel:1")
	rooms.Join(outsider, "channel:2")

	rooms.Broadcast("channel:1", mustEvent(t, EventNewMessage, map[string]any{"id": 1}), nil)

	if len(drain(outsider)) != 0 {
		t.Error("broadcast leaked to a connection outside the room")
	}
	if len(drain(member)) != 1 {
		t.Error("member did not receive the broadcast")
	}
}

func TestLeaveAllStopsDelivery(t *testing.T) {
	rooms := NewRoomRegistry()
	c := newBareClient(1)
	rooms.Join(c, "channel:1")
	rooms.Join(c, "server:1")
	rooms.Join(c, "user:1")

	rooms.LeaveAll(c)

	rooms.Broadcast("channel:1", mustEvent(t, EventNewMessage, map[string]any{}), nil)
	rooms.Broadcast("server:1", mustEvent(t, EventUserStatus, UserStatusEvent{UserID: 2, Status: "online"}), nil)

	if len(drain(c)) != 0 {
		t.Error("received broadcast after LeaveAll")
	}
	if rooms.MemberCount("channel:1") != 0 || rooms.MemberCount("server:1") != 0 {
		t.Error("rooms should be empty after their only member left")
	}

	// Safe to call twice.
	rooms.LeaveAll(c)
}

func TestBroadcastFIFOWithinRoom(t *testing.T) {
	rooms := NewRoomRegistry()
	c := newBareClient(1)
	rooms.Join(c, "channel:1")

	for i := 0; i < 20; i++ {
		rooms.Broadcast("channel:1", mustEvent(t, EventNewMessage, map[string]int{"seq": i}), nil)
	}

	events := drain(c)
	if len(events) != 20 {
		t.Fatalf("expected 20 events, got %d", len(events))
	}
	for i, ev := range events {
		var p map[string]int
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if p["seq"] != i {
			t.Fatalf("out of order delivery: position %d carries seq %d", i, p["seq"])
		}
	}
}

func TestMembersSnapshot(t *testing.T) {
	rooms := NewRoomRegistry()
	a, b := newBareClient(1), newBareClient(2)
	rooms.Join(a, "voice:5")
	rooms.Join(b, "voice:5")

	members := rooms.Members("voice:5")
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Mutating membership does not affect the snapshot already taken.
	rooms.Leave(a, "voice:5")
	if len(members) != 2 {
		t.Error("snapshot changed after Leave")
	}
	if !rooms.IsMember(b, "voice:5") || rooms.IsMember(a, "voice:5") {
		t.Error("membership state wrong after Leave")
	}
}
