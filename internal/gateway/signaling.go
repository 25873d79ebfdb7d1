package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// SignalingRelay forwards call and WebRTC handshake events point-to-point
// between personal rooms. It holds no state and never interprets payloads;
// it only checks required fields and resolves the target room. Events whose
// target room is empty are dropped silently — the caller's own timeout is
// the "no answer" signal.
type SignalingRelay struct {
	pub Publisher
}

func NewSignalingRelay(pub Publisher) *SignalingRelay {
	return &SignalingRelay{pub: pub}
}

// CallInvite generates an opaque conversation id and forwards the invite to
// the callee's personal room.
func (r *SignalingRelay) CallInvite(ctx context.Context, from *Client, p *CallInvitePayload) error {
	if p.ToUserID == 0 || p.Type == "" {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(EventCallInvite, CallInviteEvent{
		From:           CallerInfo{ID: from.UserID(), Username: from.Username()},
		Type:           p.Type,
		ConversationID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	r.pub.PublishEvent(ctx, UserRoom(p.ToUserID), ev, nil)
	slog.Debug("Call invite relayed", "from", from.UserID(), "to", p.ToUserID, "type", p.Type)
	return nil
}

func (r *SignalingRelay) CallAccept(ctx context.Context, from *Client, p *CallAcceptPayload) error {
	if p.ToUserID == 0 || p.ConversationID == "" {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(EventCallAccepted, CallAcceptedEvent{
		FromUserID:     from.UserID(),
		ConversationID: p.ConversationID,
	})
	if err != nil {
		return err
	}

	r.pub.PublishEvent(ctx, UserRoom(p.ToUserID), ev, nil)
	return nil
}

func (r *SignalingRelay) CallReject(ctx context.Context, from *Client, p *CallTargetPayload) error {
	if p.ToUserID == 0 {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(EventCallRejected, CallRejectedEvent{FromUserID: from.UserID()})
	if err != nil {
		return err
	}

	r.pub.PublishEvent(ctx, UserRoom(p.ToUserID), ev, nil)
	return nil
}

func (r *SignalingRelay) CallEnd(ctx context.Context, from *Client, p *CallTargetPayload) error {
	if p.ToUserID == 0 {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(EventCallEnded, CallEndedEvent{ByUserID: from.UserID()})
	if err != nil {
		return err
	}

	r.pub.PublishEvent(ctx, UserRoom(p.ToUserID), ev, nil)
	return nil
}

// WebRTC forwards an offer/answer/ICE event verbatim, stamped with the
// sender. eventType is one of the webrtc_* names and is preserved on the way
// out.
func (r *SignalingRelay) WebRTC(ctx context.Context, from *Client, eventType string, p *WebRTCPayload) error {
	if p.To == 0 || len(p.Payload) == 0 {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(eventType, WebRTCEvent{From: from.UserID(), Payload: p.Payload})
	if err != nil {
		return err
	}

	r.pub.PublishEvent(ctx, UserRoom(p.To), ev, nil)
	return nil
}

// ScreenShare notifies a direct peer, the sender's voice channel, or both.
// The event name is preserved; the sender is excluded from the voice-room
// fan-out.
func (r *SignalingRelay) ScreenShare(ctx context.Context, from *Client, eventType string, p *ScreenSharePayload) error {
	if p.ToUserID == 0 && p.ChannelID == 0 {
		return ErrMalformedEvent
	}

	ev, err := NewEvent(eventType, ScreenShareEvent{From: from.UserID()})
	if err != nil {
		return err
	}

	if p.ToUserID != 0 {
		r.pub.PublishEvent(ctx, UserRoom(p.ToUserID), ev, nil)
	}
	if p.ChannelID != 0 {
		r.pub.PublishEvent(ctx, VoiceRoom(p.ChannelID), ev, from)
	}
	return nil
}
