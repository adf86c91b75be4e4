package web

import (
	"testing"

	"github.com/lukaslovas/microtrafficsim/internal/session"
)

func TestNewHubStartsEmpty(t *testing.T) {
	h := NewHub()
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", h.ClientCount())
	}
}

func TestBroadcastWithNoClientsIsNoop(t *testing.T) {
	h := NewHub()
	h.Broadcast(session.Snapshot{Step: 1})
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0 after broadcast with no clients", h.ClientCount())
	}
}
