package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestSQLiteLogAppendAndLoad(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	turns := []models.Turn{
		{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "hello"}},
		{Role: models.RoleAssistant, Type: models.TurnMessage, Content: models.Content{Text: "hi there"}},
	}
	for _, turn := range turns {
		if err := log.Append(ctx, "sess-1", turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	loaded, err := log.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len(loaded) = %d, want 2", len(loaded))
	}
	if loaded[0].Content.Text != "hello" || loaded[1].Content.Text != "hi there" {
		t.Errorf("Load() order/content mismatch: %+v", loaded)
	}
}

func TestSQLiteLogLoadUnknownSessionIsEmpty(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	loaded, err := log.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("len(loaded) = %d, want 0", len(loaded))
	}
}

func TestSQLiteLogTouchUpsertsSession(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	session := &models.Session{ID: "sess-2", Metadata: map[string]any{"k": "v"}}
	if err := log.Touch(context.Background(), session); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := log.Touch(context.Background(), session); err != nil {
		t.Fatalf("Touch (second call): %v", err)
	}
}

func TestSQLiteLogDeleteOlderThanRemovesStaleSessionsAndTurns(t *testing.T) {
	log, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	stale := time.Now().Add(-48 * time.Hour)
	if err := log.Append(ctx, "stale", models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "old"}, Timestamp: stale}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append(ctx, "fresh", models.Turn{Role: models.RoleUser, Type: models.TurnMessage, Content: models.Content{Text: "new"}, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	n, err := log.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteOlderThan() = %d, want 1", n)
	}

	if loaded, err := log.Load(ctx, "stale"); err != nil || len(loaded) != 0 {
		t.Errorf("stale session turns survived prune: %v, err=%v", loaded, err)
	}
	if loaded, err := log.Load(ctx, "fresh"); err != nil || len(loaded) != 1 {
		t.Errorf("fresh session turns did not survive prune: %v, err=%v", loaded, err)
	}
}
