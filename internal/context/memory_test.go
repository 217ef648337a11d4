package context

import (
	"context"
	"strings"
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

type fakeMemoryStore struct {
	items []MemoryItem
	err   error
}

func (f fakeMemoryStore) Search(ctx context.Context, query string, topK int) ([]MemoryItem, error) {
	return f.items, f.err
}

func TestInjectMemoryPrependsContextBlock(t *testing.T) {
	store := fakeMemoryStore{items: []MemoryItem{{Text: "user prefers dark mode"}}}
	messages := []models.Message{userMsg("what theme should I use?")}

	out := InjectMemory(context.Background(), store, DefaultMemorySettings(), "be helpful", messages)
	if !strings.HasPrefix(out, "# Context") {
		t.Fatalf("expected system to start with a context block, got %q", out)
	}
	if !strings.Contains(out, "user prefers dark mode") {
		t.Errorf("expected memory text in system, got %q", out)
	}
	if !strings.Contains(out, "be helpful") {
		t.Errorf("expected original system text preserved, got %q", out)
	}
}

func TestInjectMemoryDedupesAgainstRecentWindow(t *testing.T) {
	store := fakeMemoryStore{items: []MemoryItem{{Text: "already said this"}}}
	messages := []models.Message{userMsg("already said this")}

	out := InjectMemory(context.Background(), store, DefaultMemorySettings(), "", messages)
	if out != "" {
		t.Errorf("expected no injection when memory duplicates recent window, got %q", out)
	}
}

func TestInjectMemorySkipsWhenStoreNil(t *testing.T) {
	messages := []models.Message{userMsg("hi")}
	out := InjectMemory(context.Background(), nil, DefaultMemorySettings(), "system", messages)
	if out != "system" {
		t.Errorf("expected system unchanged, got %q", out)
	}
}

func TestInjectMemorySkipsWhenDisabled(t *testing.T) {
	store := fakeMemoryStore{items: []MemoryItem{{Text: "x"}}}
	messages := []models.Message{userMsg("hi")}
	out := InjectMemory(context.Background(), store, MemorySettings{Enabled: false}, "system", messages)
	if out != "system" {
		t.Errorf("expected system unchanged, got %q", out)
	}
}
