package sessions

import (
	"testing"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestMemoryStoreGetOrCreateIsIdempotent(t *testing.T) {
	m := NewMemoryStore()
	s1 := m.GetOrCreate("sess-1", false)
	s2 := m.GetOrCreate("sess-1", false)
	if s1.ID != s2.ID {
		t.Fatalf("GetOrCreate() returned different ids: %q vs %q", s1.ID, s2.ID)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemoryStoreGetOrCreateEmptyIDMintsEphemeral(t *testing.T) {
	m := NewMemoryStore()
	s := m.GetOrCreate("", false)
	if s.ID == "" {
		t.Fatal("GetOrCreate(\"\") did not mint an id")
	}
	if !s.Ephemeral {
		t.Error("session minted from empty id should be ephemeral")
	}
}

func TestMemoryStoreAppendTurnCapsHistory(t *testing.T) {
	m := NewMemoryStore()
	m.GetOrCreate("sess-1", false)

	var updated *models.Session
	for i := 0; i < models.MaxInMemoryTurns+5; i++ {
		var err error
		updated, err = m.AppendTurn("sess-1", models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "x"}})
		if err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}
	if len(updated.History) != models.MaxInMemoryTurns {
		t.Errorf("len(History) = %d, want %d", len(updated.History), models.MaxInMemoryTurns)
	}
}

func TestMemoryStoreAppendTurnUnknownSession(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.AppendTurn("missing", models.Turn{}); err != ErrNotFound {
		t.Errorf("AppendTurn() err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetReturnsIndependentClone(t *testing.T) {
	m := NewMemoryStore()
	m.GetOrCreate("sess-1", false)
	m.AppendTurn("sess-1", models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "hi"}})

	s, ok := m.Get("sess-1")
	if !ok {
		t.Fatal("Get() miss")
	}
	s.History[0].Content.Text = "mutated"

	s2, _ := m.Get("sess-1")
	if s2.History[0].Content.Text == "mutated" {
		t.Error("Get() leaked internal state; clone was not independent")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	m := NewMemoryStore()
	m.GetOrCreate("sess-1", false)
	m.Delete("sess-1")
	if _, ok := m.Get("sess-1"); ok {
		t.Error("Get() hit after Delete()")
	}
}

func TestMemoryStorePruneExpiredRemovesOnlyStaleSessions(t *testing.T) {
	m := NewMemoryStore()
	m.GetOrCreate("stale", false)
	m.AppendTurn("stale", models.Turn{Timestamp: time.Now().Add(-2 * time.Hour)})
	m.GetOrCreate("fresh", false)

	cutoff := time.Now().Add(-time.Hour)
	n := m.PruneExpired(cutoff)
	if n != 1 {
		t.Fatalf("PruneExpired() = %d, want 1", n)
	}
	if _, ok := m.Get("stale"); ok {
		t.Error("stale session survived PruneExpired")
	}
	if _, ok := m.Get("fresh"); !ok {
		t.Error("fresh session was pruned")
	}
}
