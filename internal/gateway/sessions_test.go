package gateway

import (
	"fmt"
	"sync"
	"testing"
)

func TestFirstAndLastSession(t *testing.T) {
	tracker := NewSessionTracker()

	if !tracker.AddSession(1, "conn-a") {
		t.Error("first session not reported as first")
	}
	if tracker.AddSession(1, "conn-b") {
		t.Error("second session wrongly reported as first")
	}
	if !tracker.HasActiveSessions(1) {
		t.Error("user should have active sessions")
	}

	if tracker.RemoveSession(1, "conn-a") {
		t.Error("removal with a session remaining wrongly reported as last")
	}
	if !tracker.RemoveSession(1, "conn-b") {
		t.Error("final removal not reported as last")
	}
	if tracker.HasActiveSessions(1) {
		t.Error("user should have no active sessions")
	}
}

func TestRemoveUnknownSession(t *testing.T) {
	tracker := NewSessionTracker()

	if tracker.RemoveSession(1, "ghost") {
		t.Error("removing an unknown session must not report last")
	}

	tracker.AddSession(1, "conn-a")
	if tracker.RemoveSession(1, "ghost") {
		t.Error("removing an unknown session must not report last")
	}
	if !tracker.HasActiveSessions(1) {
		t.Error("known session was lost")
	}
}

// Concurrent connects and disconnects of the same user must produce exactly
// one "first" and exactly one "last".
func TestConcurrentSessionChurn(t *testing.T) {
	tracker := NewSessionTracker()
	const n = 64

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if tracker.AddSession(7, fmt.Sprintf("conn-%d", i)) {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if firsts != 1 {
		t.Errorf("expected exactly one first session, got %d", firsts)
	}
	if got := tracker.SessionCount(7); got != n {
		t.Fatalf("expected %d sessions, got %d", n, got)
	}

	lasts := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if tracker.RemoveSession(7, fmt.Sprintf("conn-%d", i)) {
				mu.Lock()
				lasts++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if lasts != 1 {
		t.Errorf("expected exactly one last session, got %d", lasts)
	}
	if tracker.HasActiveSessions(7) {
		t.Error("sessions remain after all removed")
	}
}
