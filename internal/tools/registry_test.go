package tools

import (
	"context"
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestRegistryAliasResolution(t *testing.T) {
	r := NewRegistry()
	r.Register("bash", func(ctx context.Context, call models.ToolCall) (any, error) {
		return "ran: " + call.Name, nil
	}, Options{})

	for _, alias := range []string{"bash", "shell", "sh", "terminal", "SHELL"} {
		if _, _, ok := r.Get(alias); !ok {
			t.Errorf("Get(%q) not found, expected alias to resolve to bash", alias)
		}
	}
	if _, _, ok := r.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should not be found")
	}
}

func TestRegistryServerSideLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("Task", nil, Options{ServerSide: true})
	r.Register("Edit", nil, Options{ServerSide: false})

	if !r.IsServerSide("task") {
		t.Error("Task should be server-side")
	}
	if r.IsServerSide("edit") {
		t.Error("Edit should not be server-side")
	}
	if r.IsServerSide("missing") {
		t.Error("missing tool should not report server-side")
	}
}

func TestRegistryLazyCategoryLoadsOnce(t *testing.T) {
	r := NewRegistry()
	loadCount := 0
	r.RegisterCategory("browser_open", func(reg *Registry) {
		loadCount++
		reg.Register("browser_open", func(ctx context.Context, call models.ToolCall) (any, error) {
			return "opened", nil
		}, Options{})
		reg.Register("browser_close", func(ctx context.Context, call models.ToolCall) (any, error) {
			return "closed", nil
		}, Options{})
	})

	if _, _, ok := r.Get("browser_open"); !ok {
		t.Fatal("expected browser_open to be registered after category load")
	}
	if _, _, ok := r.Get("browser_close"); !ok {
		t.Fatal("expected browser_close to be registered as part of the category")
	}
	// A second lookup must not reload the category.
	r.Get("browser_open")
	if loadCount != 1 {
		t.Errorf("loadCount = %d, want 1 (category should load exactly once)", loadCount)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewRegistry()
	r.Register("read", func(ctx context.Context, call models.ToolCall) (any, error) {
		return "", nil
	}, Options{Description: "Read a file", Schema: map[string]any{"type": "object"}})

	defs := r.Definitions()
	if len(defs) != 1 {
		t.Fatalf("len(defs) = %d, want 1", len(defs))
	}
	if defs[0].Name != "read" || defs[0].Description != "Read a file" {
		t.Errorf("unexpected definition: %+v", defs[0])
	}
}
