package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"concord-gateway/internal/auth"
	"concord-gateway/internal/models"
)

var errConnClosed = errors.New("connection closed")

// mockConn implements Conn. Inbound frames are fed through the in channel;
// outbound frames written by the write pump are captured for assertions.
type mockConn struct {
	mu     sync.Mutex
	writes [][]byte
	in     chan []byte
	done   chan struct{}
	once   sync.Once
}

func newMockConn() *mockConn {
	return &mockConn{
		in:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.in:
		return 1, data, nil
	case <-m.done:
		return 0, nil, errConnClosed
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.done:
		return errConnClosed
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if messageType == 1 {
		m.writes = append(m.writes, data)
	}
	return nil
}

func (m *mockConn) SetReadLimit(int64)                {}
func (m *mockConn) SetReadDeadline(time.Time) error   { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error  { return nil }
func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *mockConn) events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.writes))
	for _, w := range m.writes {
		var ev Event
		if json.Unmarshal(w, &ev) == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockConn) eventsOfType(t string) []Event {
	var out []Event
	for _, ev := range m.events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakeProfileStore serves fixed membership and channel ownership tables.
type fakeProfileStore struct {
	mu          sync.Mutex
	memberships map[uint][]uint // userID -> serverIDs
	channels    map[uint]uint   // channelID -> serverID
	profiles    map[uint]*models.PublicProfile
	statuses    map[uint]string
	failLookups bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		memberships: make(map[uint][]uint),
		channels:    make(map[uint]uint),
		profiles:    make(map[uint]*models.PublicProfile),
		statuses:    make(map[uint]string),
	}
}

func (f *fakeProfileStore) GetPublicProfile(_ context.Context, userID uint) (*models.PublicProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLookups {
		return nil, errors.New("store unavailable")
	}
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return &models.PublicProfile{ID: userID, Username: "user"}, nil
}

func (f *fakeProfileStore) GetServerMembershipsOf(_ context.Context, userID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLookups {
		return nil, errors.New("store unavailable")
	}
	return f.memberships[userID], nil
}

func (f *fakeProfileStore) GetServerIDForChannel(_ context.Context, channelID uint) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLookups {
		return 0, errors.New("store unavailable")
	}
	serverID, ok := f.channels[channelID]
	if !ok {
		return 0, errors.New("channel has no owning server")
	}
	return serverID, nil
}

func (f *fakeProfileStore) UpdateStatus(_ context.Context, userID uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[userID] = status
	return nil
}

func (f *fakeProfileStore) durableStatus(userID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[userID]
}

// fakeStatusStore records cache writes; fail makes every call error to
// exercise degraded mode.
type fakeStatusStore struct {
	mu       sync.Mutex
	statuses map[uint]string
	fail     bool
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{statuses: make(map[uint]string)}
}

func (f *fakeStatusStore) SetStatus(_ context.Context, userID uint, status string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("cache unavailable")
	}
	f.statuses[userID] = status
	return nil
}

func (f *fakeStatusStore) cached(userID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[userID]
}

func (f *fakeStatusStore) GetStatus(_ context.Context, userID uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("cache unavailable")
	}
	if s, ok := f.statuses[userID]; ok {
		return s, nil
	}
	return "offline", nil
}

type fakeVoiceStore struct {
	mu      sync.Mutex
	members map[uint]map[uint]struct{} // channelID -> userIDs
	fail    bool
}

func newFakeVoiceStore() *fakeVoiceStore {
	return &fakeVoiceStore{members: make(map[uint]map[uint]struct{})}
}

func (f *fakeVoiceStore) AddMember(_ context.Context, channelID, userID uint, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store unavailable")
	}
	if f.members[channelID] == nil {
		f.members[channelID] = make(map[uint]struct{})
	}
	f.members[channelID][userID] = struct{}{}
	return nil
}

func (f *fakeVoiceStore) RemoveMember(_ context.Context, channelID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store unavailable")
	}
	delete(f.members[channelID], userID)
	return nil
}

func (f *fakeVoiceStore) Refresh(_ context.Context, _ uint, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store unavailable")
	}
	return nil
}

func (f *fakeVoiceStore) ListMembers(_ context.Context, channelID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint, 0, len(f.members[channelID]))
	for id := range f.members[channelID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// recordingBus captures mirrored publishes.
type recordingBus struct {
	mu        sync.Mutex
	published []string
}

func (b *recordingBus) Publish(_ context.Context, room string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, room)
	return nil
}

type hubFixture struct {
	hub      *Hub
	profiles *fakeProfileStore
	status   *fakeStatusStore
	voice    *fakeVoiceStore
}

func newTestHub() *hubFixture {
	profiles := newFakeProfileStore()
	status := newFakeStatusStore()
	voice := newFakeVoiceStore()
	hub := NewHub(Deps{
		Profiles:         profiles,
		Status:           status,
		Voice:            voice,
		PresenceCacheTTL: time.Minute,
		VoiceTTL:         time.Minute,
	})
	return &hubFixture{hub: hub, profiles: profiles, status: status, voice: voice}
}

// connect attaches a new mock connection as the given user and waits for the
// pumps to start.
func (f *hubFixture) connect(userID uint, username string) (*Client, *mockConn) {
	conn := newMockConn()
	c := f.hub.HandleConnection(conn, auth.Identity{UserID: userID, Username: username})
	return c, conn
}

func (f *hubFixture) sendEvent(conn *mockConn, eventType string, payload any) {
	data, _ := json.Marshal(payload)
	raw, _ := json.Marshal(Event{Type: eventType, Data: data})
	conn.in <- raw
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
