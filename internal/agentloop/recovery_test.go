package agentloop

import (
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestDetectNarrationMatchesAndSplitsToolList(t *testing.T) {
	names, ok := detectNarration("Invoking tool(s): Read, Grep.")
	if !ok {
		t.Fatal("expected a match")
	}
	if len(names) != 2 || names[0] != "Read" || names[1] != "Grep" {
		t.Errorf("names = %+v", names)
	}
}

func TestDetectNarrationNoMatchOnPlainText(t *testing.T) {
	if _, ok := detectNarration("The answer is 42."); ok {
		t.Error("expected no match")
	}
}

func TestSubagentTypeForMapsKnownTools(t *testing.T) {
	cases := map[string]string{
		"Read": "Explore", "Grep": "Explore", "Glob": "Explore",
		"Edit": "general-purpose", "Write": "general-purpose", "Bash": "general-purpose",
		"Unknown": "Explore",
	}
	for tool, want := range cases {
		if got := subagentTypeFor(tool); got != want {
			t.Errorf("subagentTypeFor(%q) = %q, want %q", tool, got, want)
		}
	}
}

func TestDetectActionVerbMatchesKnownVerb(t *testing.T) {
	tool, ok := detectActionVerb("Let me read the config file to check its contents.")
	if !ok || tool != "Read" {
		t.Errorf("tool = %q, ok = %v", tool, ok)
	}
}

func TestDetectActionVerbNoMatchForUnmappedVerb(t *testing.T) {
	if _, ok := detectActionVerb("Let me ponder this for a moment."); ok {
		t.Error("expected no match for an unmapped verb")
	}
}

func TestDetectActionVerbNoMatchWithoutOpeningClause(t *testing.T) {
	if _, ok := detectActionVerb("I read the file already."); ok {
		t.Error("expected no match: clause is not a sentence opener")
	}
}

func TestNeedsWebFallbackRequiresBothSignalAndOfferedTool(t *testing.T) {
	tools := []models.ToolDefinition{{Name: "web_fetch"}}
	if !needsWebFallback("I don't have access to current stock prices.", tools) {
		t.Error("expected fallback to trigger")
	}
	if needsWebFallback("I don't have access to current stock prices.", nil) {
		t.Error("should not trigger without an offered web_fetch tool")
	}
	if needsWebFallback("The answer is 42.", tools) {
		t.Error("should not trigger without a stale-data signal")
	}
}

func TestSynthesizeWebFetchCallCarriesQuery(t *testing.T) {
	call := synthesizeWebFetchCall("  current weather in Lisbon  ")
	if call.Name != "web_fetch" {
		t.Errorf("Name = %q", call.Name)
	}
	if call.Arguments["query"] != "current weather in Lisbon" {
		t.Errorf("query = %q", call.Arguments["query"])
	}
}
