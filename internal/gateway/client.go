package gateway

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"concord-gateway/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer. A
	// connection missing this deadline is treated as disconnected and
	// runs full cleanup.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound queue depth per connection
	sendBufferSize = 256
)

// Conn is the slice of *websocket.Conn the gateway uses; tests substitute a
// mock.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one physical connection. Identity is set at handshake time and
// immutable afterwards; the voice-channel pointer is the only mutable field
// and exists solely so disconnect cleanup knows what to leave.
type Client struct {
	id       string
	identity auth.Identity
	hub      *Hub
	conn     Conn
	send     chan []byte

	voiceMu      sync.Mutex
	voiceChannel uint

	closed     int32
	sendClosed int32
	cleanedUp  int32

	wg sync.WaitGroup
}

func newClient(hub *Hub, conn Conn, identity auth.Identity) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.identity.UserID
}

func (c *Client) Username() string {
	return c.identity.Username
}

// VoiceChannel returns the current voice channel, zero if none.
func (c *Client) VoiceChannel() uint {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	return c.voiceChannel
}

func (c *Client) setVoiceChannel(channelID uint) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	c.voiceChannel = channelID
}

func (c *Client) clearVoiceChannel(channelID uint) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	if c.voiceChannel == channelID {
		c.voiceChannel = 0
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	atomic.CompareAndSwapInt32(&c.closed, 0, 1)
}

func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// enqueue places data on the outbound queue without blocking. A full buffer
// means the peer stopped draining; the client is closed rather than letting
// it back-pressure broadcasts.
func (c *Client) enqueue(data []byte) error {
	if c.isClosed() || atomic.LoadInt32(&c.sendClosed) == 1 {
		return ErrClientDisconnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.UserID())
		c.close()
		return ErrClientDisconnected
	}
}

// sendEvent marshals and enqueues an event for this connection only.
func (c *Client) sendEvent(event *Event) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) sendError(code, message string) {
	ev, err := NewEvent(EventError, ErrorEvent{Code: code, Message: message})
	if err != nil {
		return
	}
	if err := c.sendEvent(ev); err != nil {
		slog.Debug("Failed to deliver error event", "clientID", c.id, "error", err)
	}
}

func (c *Client) readPump() {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()
		c.hub.disconnect(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.UserID(), "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.UserID(), "error", err)
			}
			return
		}
		if c.isClosed() {
			return
		}

		c.hub.Dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "error", err)
				return
			}
		}
	}
}
