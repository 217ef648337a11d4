package context

import (
	"strings"
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func userMsg(text string) models.Message {
	return models.Message{Role: models.RoleUser, Content: models.Content{Text: text}}
}

func TestCompressHistoryLeavesShortHistoryStructureAlone(t *testing.T) {
	messages := []models.Message{userMsg("hi"), userMsg("there")}
	out := CompressHistory(messages, DefaultCompressionSettings(), DefaultContextWindowChars)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestCompressHistoryCollapsesOlderMessagesIntoSummary(t *testing.T) {
	settings := DefaultCompressionSettings()
	var messages []models.Message
	for i := 0; i < 20; i++ {
		messages = append(messages, userMsg("message"))
	}
	out := CompressHistory(messages, settings, DefaultContextWindowChars)

	if len(out) != settings.KeepRecentTurns+1 {
		t.Fatalf("len(out) = %d, want %d", len(out), settings.KeepRecentTurns+1)
	}
	if !strings.Contains(out[0].Content.Text, "Earlier conversation summary") {
		t.Errorf("expected first message to be a summary, got %q", out[0].Content.Text)
	}
}

func TestCompressHistorySummaryMentionsToolNames(t *testing.T) {
	settings := DefaultCompressionSettings()
	var messages []models.Message
	messages = append(messages, userMsg("do the thing"))
	messages = append(messages, models.Message{
		Role: models.RoleAssistant,
		Content: models.Content{Blocks: []models.ContentBlock{
			{Kind: models.BlockToolUse, Name: "bash", ToolUseID: "1"},
		}},
	})
	for i := 0; i < 20; i++ {
		messages = append(messages, userMsg("filler"))
	}

	out := CompressHistory(messages, settings, DefaultContextWindowChars)
	if !strings.Contains(out[0].Content.Text, "bash") {
		t.Errorf("expected summary to mention tool name bash, got %q", out[0].Content.Text)
	}
}

func TestCompressMessageToolResultsShrinksOversizedContent(t *testing.T) {
	big := strings.Repeat("x", 10000)
	msg := models.Message{
		Role: models.RoleAssistant,
		Content: models.Content{Blocks: []models.ContentBlock{
			{Kind: models.BlockToolResult, ToolUseRefID: "1", ResultContent: big},
		}},
	}
	out := compressMessageToolResults(msg, 0.2, 500)
	got := out.Content.Blocks[0].ResultContent
	if len(got) >= len(big) {
		t.Fatalf("expected shrunk content, got len %d", len(got))
	}
	if !strings.Contains(got, "chars omitted") {
		t.Errorf("expected omission marker in %q", got)
	}
}

func TestCompressMessageToolResultsIdempotentOnSecondPass(t *testing.T) {
	big := strings.Repeat("x", 10000)
	msg := models.Message{
		Role: models.RoleAssistant,
		Content: models.Content{Blocks: []models.ContentBlock{
			{Kind: models.BlockToolResult, ToolUseRefID: "1", ResultContent: big},
		}},
	}
	once := compressMessageToolResults(msg, 0.2, 500)
	twice := compressMessageToolResults(once, 0.2, 500)

	if once.Content.Blocks[0].ResultContent != twice.Content.Blocks[0].ResultContent {
		t.Fatalf("second pass changed content:\nfirst:  %q\nsecond: %q",
			once.Content.Blocks[0].ResultContent, twice.Content.Blocks[0].ResultContent)
	}
}

func TestCompressHistoryIdempotentAcrossRepeatedPasses(t *testing.T) {
	settings := DefaultCompressionSettings()
	big := strings.Repeat("y", 10000)
	var messages []models.Message
	for i := 0; i < 20; i++ {
		messages = append(messages, models.Message{
			Role: models.RoleAssistant,
			Content: models.Content{Blocks: []models.ContentBlock{
				{Kind: models.BlockToolResult, ToolUseRefID: "1", ResultContent: big},
			}},
		})
	}

	once := CompressHistory(messages, settings, DefaultContextWindowChars)
	twice := CompressHistory(once, settings, DefaultContextWindowChars)

	if len(once) != len(twice) {
		t.Fatalf("len(once) = %d, len(twice) = %d, want equal", len(once), len(twice))
	}
	for i := range once {
		if once[i].Content.String() != twice[i].Content.String() {
			t.Errorf("message %d changed on second pass:\nfirst:  %q\nsecond: %q", i, once[i].Content.String(), twice[i].Content.String())
		}
		for j := range once[i].Content.Blocks {
			ob, tb := once[i].Content.Blocks[j], twice[i].Content.Blocks[j]
			if ob.ResultContent != tb.ResultContent {
				t.Errorf("message %d block %d changed on second pass:\nfirst:  %q\nsecond: %q", i, j, ob.ResultContent, tb.ResultContent)
			}
		}
	}
}

func TestIntelligentTruncateKeepsHeadAndTail(t *testing.T) {
	content := "HEAD" + strings.Repeat("middle", 1000) + "TAIL"
	out := intelligentTruncate(content, 100)
	if !strings.HasPrefix(out, "HEAD") {
		t.Errorf("expected output to start with HEAD, got %q", out[:20])
	}
	if !strings.HasSuffix(out, "TAIL") {
		t.Errorf("expected output to end with TAIL, got %q", out[len(out)-20:])
	}
}

func TestIntelligentTruncateNoopUnderLimit(t *testing.T) {
	content := "short"
	if out := intelligentTruncate(content, 100); out != content {
		t.Errorf("expected no change, got %q", out)
	}
}
