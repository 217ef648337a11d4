package agentloop

import (
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestCallSignatureStableRegardlessOfKeyOrder(t *testing.T) {
	a := models.ToolCall{Name: "Read", Arguments: map[string]any{"path": "a.go", "limit": 10.0}}
	b := models.ToolCall{Name: "Read", Arguments: map[string]any{"limit": 10.0, "path": "a.go"}}
	if callSignature(a) != callSignature(b) {
		t.Errorf("signatures differ for same logical call: %s vs %s", callSignature(a), callSignature(b))
	}
}

func TestCallSignatureDiffersOnArgumentValue(t *testing.T) {
	a := models.ToolCall{Name: "Read", Arguments: map[string]any{"path": "a.go"}}
	b := models.ToolCall{Name: "Read", Arguments: map[string]any{"path": "b.go"}}
	if callSignature(a) == callSignature(b) {
		t.Error("signatures match for different arguments")
	}
}

func TestCallSignatureLength(t *testing.T) {
	sig := callSignature(models.ToolCall{Name: "Bash"})
	if len(sig) != signatureLen {
		t.Errorf("len(sig) = %d, want %d", len(sig), signatureLen)
	}
}

func TestCollapseAdjacentDuplicatesDropsRepeats(t *testing.T) {
	calls := []models.ToolCall{
		{ID: "1", Name: "Read", Arguments: map[string]any{"path": "a.go"}},
		{ID: "2", Name: "Read", Arguments: map[string]any{"path": "a.go"}},
		{ID: "3", Name: "Read", Arguments: map[string]any{"path": "b.go"}},
	}
	got := collapseAdjacentDuplicates(calls)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("got = %+v", got)
	}
}

func TestCollapseAdjacentDuplicatesKeepsNonAdjacentRepeats(t *testing.T) {
	calls := []models.ToolCall{
		{ID: "1", Name: "Read", Arguments: map[string]any{"path": "a.go"}},
		{ID: "2", Name: "Read", Arguments: map[string]any{"path": "b.go"}},
		{ID: "3", Name: "Read", Arguments: map[string]any{"path": "a.go"}},
	}
	got := collapseAdjacentDuplicates(calls)
	if len(got) != 3 {
		t.Errorf("len(got) = %d, want 3 (non-adjacent repeats survive)", len(got))
	}
}

func TestScoreToolCallsRewardsMoreAndRicherCalls(t *testing.T) {
	thin := []models.ToolCall{{Name: "Read"}}
	rich := []models.ToolCall{
		{Name: "Read", Arguments: map[string]any{"path": "a.go", "limit": "10"}},
		{Name: "Grep", Arguments: map[string]any{"pattern": "foo"}},
	}
	if scoreToolCalls(rich, false) <= scoreToolCalls(thin, false) {
		t.Error("richer, more numerous call set did not score higher")
	}
}

func TestScoreToolCallsPenalisesMalformed(t *testing.T) {
	calls := []models.ToolCall{{Name: "Read"}}
	if scoreToolCalls(calls, true) >= scoreToolCalls(calls, false) {
		t.Error("malformed flag did not reduce score")
	}
}
