package gateway

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCallInviteReachesOnlyCallee(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()

	_, caller := f.connect(1, "alice")
	_, callee := f.connect(2, "bob")
	_, bystander := f.connect(3, "carol")

	f.sendEvent(caller, EventCallInvite, CallInvitePayload{ToUserID: 2, Type: "voice"})

	if !waitFor(func() bool { return len(callee.eventsOfType(EventCallInvite)) == 1 }) {
		t.Fatal("callee did not receive the invite")
	}

	var invite CallInviteEvent
	if err := json.Unmarshal(callee.eventsOfType(EventCallInvite)[0].Data, &invite); err != nil {
		t.Fatalf("bad invite payload: %v", err)
	}
	if invite.From.ID != 1 || invite.From.Username != "alice" {
		t.Errorf("invite carries wrong caller: %+v", invite.From)
	}
	if invite.ConversationID == "" {
		t.Error("invite is missing a conversation id")
	}
	if len(bystander.eventsOfType(EventCallInvite)) != 0 {
		t.Error("invite leaked to a third user")
	}
}

// Inviting an offline user is silently dropped: no delivery, no error back
// to the caller.
func TestCallInviteToOfflineUserIsDropped(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()

	_, caller := f.connect(1, "alice")
	f.sendEvent(caller, EventCallInvite, CallInvitePayload{ToUserID: 99, Type: "voice"})

	// Give the dispatch a moment, then confirm nothing came back.
	time.Sleep(100 * time.Millisecond)

	if got := len(caller.eventsOfType(EventError)); got != 0 {
		t.Errorf("caller received %d error events for an offline target", got)
	}
}

func TestCallLifecycleRelays(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()

	_, alice := f.connect(1, "alice")
	_, bob := f.connect(2, "bob")

	f.sendEvent(bob, EventCallAccept, CallAcceptPayload{ToUserID: 1, ConversationID: "conv-1"})
	if !waitFor(func() bool { return len(alice.eventsOfType(EventCallAccepted)) == 1 }) {
		t.Fatal("call_accepted not relayed")
	}
	var accepted CallAcceptedEvent
	json.Unmarshal(alice.eventsOfType(EventCallAccepted)[0].Data, &accepted)
	if accepted.FromUserID != 2 || accepted.ConversationID != "conv-1" {
		t.Errorf("wrong call_accepted payload: %+v", accepted)
	}

	f.sendEvent(bob, EventCallReject, CallTargetPayload{ToUserID: 1})
	if !waitFor(func() bool { return len(alice.eventsOfType(EventCallRejected)) == 1 }) {
		t.Fatal("call_rejected not relayed")
	}

	f.sendEvent(alice, EventCallEnd, CallTargetPayload{ToUserID: 2})
	if !waitFor(func() bool { return len(bob.eventsOfType(EventCallEnded)) == 1 }) {
		t.Fatal("call_ended not relayed")
	}
	var ended CallEndedEvent
	json.Unmarshal(bob.eventsOfType(EventCallEnded)[0].Data, &ended)
	if ended.ByUserID != 1 {
		t.Errorf("wrong call_ended payload: %+v", ended)
	}
}

func TestWebRTCForwardedOnlyToTarget(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()

	_, alice := f.connect(1, "alice")
	_, bob := f.connect(2, "bob")
	_, carol := f.connect(3, "carol")

	offer := map[string]any{"to": 2, "payload": map[string]string{"sdp": "v=0"}}
	f.sendEvent(alice, EventWebRTCOffer, offer)

	if !waitFor(func() bool { return len(bob.eventsOfType(EventWebRTCOffer)) == 1 }) {
		t.Fatal("offer not delivered to target")
	}
	var fwd WebRTCEvent
	json.Unmarshal(bob.eventsOfType(EventWebRTCOffer)[0].Data, &fwd)
	if fwd.From != 1 {
		t.Errorf("forwarded offer carries wrong sender %d", fwd.From)
	}
	if len(carol.eventsOfType(EventWebRTCOffer)) != 0 {
		t.Error("offer delivered to a user other than the target")
	}
	if len(alice.eventsOfType(EventWebRTCOffer)) != 0 {
		t.Error("offer echoed back to the sender")
	}
}

func TestScreenShareToVoiceRoomExcludesSender(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()
	f.profiles.channels[5] = 10
	f.profiles.memberships[1] = []uint{10}
	f.profiles.memberships[2] = []uint{10}

	sharer, sharerConn := f.connect(1, "alice")
	watcher, watcherConn := f.connect(2, "bob")
	f.hub.Rooms().Join(sharer, VoiceRoom(5))
	f.hub.Rooms().Join(watcher, VoiceRoom(5))

	f.sendEvent(sharerConn, EventScreenShareStart, ScreenSharePayload{ChannelID: 5})

	if !waitFor(func() bool { return len(watcherConn.eventsOfType(EventScreenShareStart)) == 1 }) {
		t.Fatal("screen share not delivered to voice room")
	}
	if len(sharerConn.eventsOfType(EventScreenShareStart)) != 0 {
		t.Error("screen share echoed to sender")
	}
}

func TestSignalingValidatesRequiredFields(t *testing.T) {
	f := newTestHub()
	defer f.hub.Stop()

	_, conn := f.connect(1, "alice")

	f.sendEvent(conn, EventCallInvite, CallInvitePayload{ToUserID: 0, Type: "voice"})
	if !waitFor(func() bool { return len(conn.eventsOfType(EventError)) == 1 }) {
		t.Fatal("missing to_user_id not rejected")
	}

	f.sendEvent(conn, EventWebRTCOffer, map[string]any{"to": 0})
	if !waitFor(func() bool { return len(conn.eventsOfType(EventError)) == 2 }) {
		t.Fatal("missing webrtc target not rejected")
	}
}
