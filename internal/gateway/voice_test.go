package gateway

import (
	"context"
	"encoding/json"
	"testing"
)

func voiceJoinsFor(conn *mockConn, channelID uint) []VoiceUserJoinedEvent {
	var out []VoiceUserJoinedEvent
	for _, ev := range conn.eventsOfType(EventVoiceUserJoined) {
		var p VoiceUserJoinedEvent
		if json.Unmarshal(ev.Data, &p) == nil && p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

// A joins voice channel 5 in server 10. B, a member of server 10 who is not
// in the voice channel, sees the join; C in server 20 does not.
func TestVoiceJoinAnnouncesToOwningServer(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()
	f.profiles.channels[5] = 10
	f.profiles.memberships[1] = []uint{10}
	f.profiles.memberships[2] = []uint{10}
	f.profiles.memberships[3] = []uint{20}

	_, b := f.connect(2, "bob")
	_, c := f.connect(3, "carol")
	_, a := f.connect(1, "alice")

	f.sendEvent(a, EventVoiceJoin, ChannelPayload{ChannelID: 5})

	if !waitFor(func() bool { return len(voiceJoinsFor(b, 5)) == 1 }) {
		t.Fatal("server member did not see voice_user_joined")
	}
	join := voiceJoinsFor(b, 5)[0]
	if join.User == nil || join.User.ID != 1 {
		t.Errorf("join event carries wrong user: %+v", join.User)
	}
	if len(voiceJoinsFor(c, 5)) != 0 {
		t.Error("voice join leaked to an unrelated server")
	}

	members, err := f.voice.ListMembers(context.Background(), 5)
	if err != nil || len(members) != 1 || members[0] != 1 {
		t.Errorf("persisted membership wrong: %v (%v)", members, err)
	}
}

func TestVoiceLeaveRemovesMembership(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()
	f.profiles.channels[5] = 10
	f.profiles.memberships[1] = []uint{10}
	f.profiles.memberships[2] = []uint{10}

	_, b := f.connect(2, "bob")
	client, a := f.connect(1, "alice")

	f.sendEvent(a, EventVoiceJoin, ChannelPayload{ChannelID: 5})
	if !waitFor(func() bool { return client.VoiceChannel() == 5 }) {
		t.Fatal("voice channel pointer not set")
	}

	f.sendEvent(a, EventVoiceLeave, ChannelPayload{ChannelID: 5})
	if !waitFor(func() bool { return len(b.eventsOfType(EventVoiceUserLeft)) == 1 }) {
		t.Fatal("server member did not see voice_user_left")
	}
	if client.VoiceChannel() != 0 {
		t.Error("voice channel pointer not cleared")
	}
	members, _ := f.voice.ListMembers(context.Background(), 5)
	if len(members) != 0 {
		t.Errorf("membership should be empty, got %v", members)
	}
}

// Disconnecting while joined runs the same removal as an explicit leave.
func TestDisconnectLeavesVoice(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()
	f.profiles.channels[5] = 10
	f.profiles.memberships[1] = []uint{10}
	f.profiles.memberships[2] = []uint{10}

	_, b := f.connect(2, "bob")
	client, a := f.connect(1, "alice")

	f.sendEvent(a, EventVoiceJoin, ChannelPayload{ChannelID: 5})
	if !waitFor(func() bool { return client.VoiceChannel() == 5 }) {
		t.Fatal("voice join not processed")
	}

	a.Close()

	if !waitFor(func() bool { return len(b.eventsOfType(EventVoiceUserLeft)) == 1 }) {
		t.Fatal("disconnect did not announce voice_user_left")
	}
	members, _ := f.voice.ListMembers(context.Background(), 5)
	if len(members) != 0 {
		t.Errorf("membership should be empty after disconnect, got %v", members)
	}
}

// Persisted membership survives transport churn: store failure on join still
// subscribes the transport room (degraded mode).
func TestVoiceJoinDegradesWhenStoreUnavailable(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()
	f.profiles.channels[5] = 10
	f.profiles.memberships[1] = []uint{10}
	f.voice.fail = true

	client, a := f.connect(1, "alice")
	f.sendEvent(a, EventVoiceJoin, ChannelPayload{ChannelID: 5})

	if !waitFor(func() bool { return f.hub.Rooms().IsMember(client, VoiceRoom(5)) }) {
		t.Fatal("transport voice room not joined with the store down")
	}
	if client.VoiceChannel() != 5 {
		t.Error("voice channel pointer not set in degraded mode")
	}
}
