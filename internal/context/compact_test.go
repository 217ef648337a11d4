package context

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestCompactLargeJSONReplacesOversizedJSONText(t *testing.T) {
	data := make([]map[string]any, 200)
	for i := range data {
		data[i] = map[string]any{"id": i, "name": "item"}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	messages := []models.Message{{Role: models.RoleAssistant, Content: models.Content{Text: string(encoded)}}}

	out := CompactLargeJSON(messages, DefaultCompactionSettings())
	if out[0].Content.Text == string(encoded) {
		t.Error("expected oversized JSON text to be TOON-compacted")
	}
	if len(out[0].Content.Text) >= len(encoded) {
		t.Errorf("expected compacted form to be smaller, got %d vs %d", len(out[0].Content.Text), len(encoded))
	}
}

func TestCompactLargeJSONLeavesToolMessagesAlone(t *testing.T) {
	data := make([]map[string]any, 200)
	for i := range data {
		data[i] = map[string]any{"id": i, "name": "item"}
	}
	encoded, _ := json.Marshal(data)
	messages := []models.Message{{Role: models.RoleTool, Content: models.Content{Text: string(encoded)}}}

	out := CompactLargeJSON(messages, DefaultCompactionSettings())
	if out[0].Content.Text != string(encoded) {
		t.Error("expected role:tool message to be left untouched")
	}
}

func TestCompactLargeJSONSkipsSmallOrNonJSONText(t *testing.T) {
	messages := []models.Message{userMsg("just a short message")}
	out := CompactLargeJSON(messages, DefaultCompactionSettings())
	if out[0].Content.Text != "just a short message" {
		t.Error("expected short non-JSON text untouched")
	}
}

func TestCoalesceConsecutiveRolesMergesSameRole(t *testing.T) {
	messages := []models.Message{userMsg("one"), userMsg("two"), {Role: models.RoleAssistant, Content: models.Content{Text: "reply"}}}
	out := CoalesceConsecutiveRoles(messages)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if !strings.Contains(out[0].Content.Text, "one") || !strings.Contains(out[0].Content.Text, "two") {
		t.Errorf("expected merged text, got %q", out[0].Content.Text)
	}
}

func TestCoalesceConsecutiveRolesLeavesBlockMessagesSeparate(t *testing.T) {
	blockMsg := models.Message{Role: models.RoleUser, Content: models.Content{Blocks: []models.ContentBlock{{Kind: models.BlockText, Text: "hi"}}}}
	messages := []models.Message{blockMsg, userMsg("second")}
	out := CoalesceConsecutiveRoles(messages)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (block-structured messages shouldn't merge)", len(out))
	}
}
