package gateway

import "errors"

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrUnknownEvent       = errors.New("unknown event type")
	ErrNoActiveSessions   = errors.New("user has no active sessions")
	ErrInvalidStatus      = errors.New("invalid status value")
)
