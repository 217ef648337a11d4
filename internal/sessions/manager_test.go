package sessions

import (
	"context"
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestManagerAppendTurnToSessionPersistsNonEphemeral(t *testing.T) {
	store := NewMemoryStore()
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	m := NewManager(store, nil, log)
	session := m.GetOrCreateSession("sess-1", false)

	ctx := context.Background()
	turn := models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "hello"}}
	if _, err := m.AppendTurnToSession(ctx, session, turn); err != nil {
		t.Fatalf("AppendTurnToSession: %v", err)
	}

	persisted, err := log.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("len(persisted) = %d, want 1", len(persisted))
	}
}

func TestManagerAppendTurnToSessionSkipsPersistenceForEphemeral(t *testing.T) {
	store := NewMemoryStore()
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	m := NewManager(store, nil, log)
	session := m.GetOrCreateSession("", true)

	ctx := context.Background()
	turn := models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "hello"}}
	if _, err := m.AppendTurnToSession(ctx, session, turn); err != nil {
		t.Fatalf("AppendTurnToSession: %v", err)
	}

	persisted, err := log.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("len(persisted) = %d, want 0 for ephemeral session", len(persisted))
	}
}

func TestManagerLockUnlock(t *testing.T) {
	m := NewManager(NewMemoryStore(), NewLocker(0), nil)
	ctx := context.Background()
	if err := m.Lock(ctx, "sess-1"); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	m.Unlock("sess-1")
	if err := m.Lock(ctx, "sess-1"); err != nil {
		t.Fatalf("Lock after Unlock: %v", err)
	}
}

func TestManagerDeleteClearsStoreAndLock(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil, nil)
	m.GetOrCreateSession("sess-1", false)
	m.Delete("sess-1")

	store := m.store.(*MemoryStore)
	if _, ok := store.Get("sess-1"); ok {
		t.Error("session still present after Delete")
	}
}
