package gateway

import (
	"encoding/json"
	"fmt"

	"concord-gateway/internal/models"
)

// Inbound event names (connection -> gateway).
const (
	EventJoinChannel      = "join_channel"
	EventLeaveChannel     = "leave_channel"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventStatusChange     = "status_change"
	EventVoiceJoin        = "voice_join"
	EventVoiceLeave       = "voice_leave"
	EventCallInvite       = "call_invite"
	EventCallAccept       = "call_accept"
	EventCallReject       = "call_reject"
	EventCallEnd          = "call_end"
	EventWebRTCOffer      = "webrtc_offer"
	EventWebRTCAnswer     = "webrtc_answer"
	EventWebRTCICE        = "webrtc_ice"
	EventScreenShareStart = "screen_share_start"
	EventScreenShareStop  = "screen_share_stop"
)

// Outbound event names (gateway -> connection).
const (
	EventUserTyping      = "user_typing"
	EventUserStopTyping  = "user_stop_typing"
	EventUserStatus      = "user_status"
	EventVoiceUserJoined = "voice_user_joined"
	EventVoiceUserLeft   = "voice_user_left"
	EventCallAccepted    = "call_accepted"
	EventCallRejected    = "call_rejected"
	EventCallEnded       = "call_ended"
	EventNewMessage      = "new_message"
	EventMessageUpdated  = "message_updated"
	EventMessageDeleted  = "message_deleted"
	EventNewDM           = "new_dm"
	EventFriendRequest   = "friend_request"
	EventFriendAccepted  = "friend_accepted"
	EventError           = "error"
)

// Event is the wire envelope in both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{Type: eventType, Data: data}, nil
}

func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

/** -------------------- Inbound payloads -------------------- */

type ChannelPayload struct {
	ChannelID uint `json:"channel_id"`
}

type StatusChangePayload struct {
	Status string `json:"status"`
}

type CallInvitePayload struct {
	ToUserID uint   `json:"to_user_id"`
	Type     string `json:"type"`
}

type CallAcceptPayload struct {
	ToUserID       uint   `json:"to_user_id"`
	ConversationID string `json:"conversation_id"`
}

type CallTargetPayload struct {
	ToUserID uint `json:"to_user_id"`
}

type WebRTCPayload struct {
	To      uint            `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type ScreenSharePayload struct {
	ToUserID  uint `json:"to_user_id,omitempty"`
	ChannelID uint `json:"channel_id,omitempty"`
}

/** -------------------- Outbound payloads -------------------- */

type TypingEvent struct {
	ChannelID uint   `json:"channel_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
}

type UserStatusEvent struct {
	UserID uint   `json:"user_id"`
	Status string `json:"status"`
}

type VoiceUserJoinedEvent struct {
	ChannelID uint                  `json:"channel_id"`
	User      *models.PublicProfile `json:"user"`
}

type VoiceUserLeftEvent struct {
	ChannelID uint `json:"channel_id"`
	UserID    uint `json:"user_id"`
}

type CallerInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type CallInviteEvent struct {
	From           CallerInfo `json:"from"`
	Type           string     `json:"type"`
	ConversationID string     `json:"conversation_id"`
}

type CallAcceptedEvent struct {
	FromUserID     uint   `json:"from_user_id"`
	ConversationID string `json:"conversation_id"`
}

type CallRejectedEvent struct {
	FromUserID uint `json:"from_user_id"`
}

type CallEndedEvent struct {
	ByUserID uint `json:"by_user_id"`
}

type WebRTCEvent struct {
	From    uint            `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type ScreenShareEvent struct {
	From uint `json:"from"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
