package gateway

import "sync"

// SessionTracker maintains, per user, the set of currently open connections.
// A user is online iff the set is non-empty. Add/Remove are atomic with
// respect to each other so two sessions closing at the same instant cannot
// both observe "last".
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[uint]map[string]struct{}
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{sessions: make(map[uint]map[string]struct{})}
}

// AddSession registers a connection under a user and reports whether it is
// the user's first active session.
func (t *SessionTracker) AddSession(userID uint, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.sessions[userID]
	if !ok {
		set = make(map[string]struct{})
		t.sessions[userID] = set
	}
	first := len(set) == 0
	set[connID] = struct{}{}
	return first
}

// RemoveSession unregisters a connection and reports whether it was the
// user's last active session. Removing an unknown session reports false.
func (t *SessionTracker) RemoveSession(userID uint, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.sessions[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.sessions, userID)
		return true
	}
	return false
}

func (t *SessionTracker) HasActiveSessions(userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions[userID]) > 0
}

func (t *SessionTracker) SessionCount(userID uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions[userID])
}
