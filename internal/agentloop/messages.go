package agentloop

import (
	"encoding/json"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// toolResultsSinceLastUserText counts tool_result blocks appended after the
// most recent genuine user-authored text turn. A run of these past
// toolLoopThreshold, with no intervening user input, means the client is
// stuck feeding the loop tool output with nobody steering it — the pre-loop
// guard's signal.
func toolResultsSinceLastUserText(messages []models.Message) int {
	count := 0
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == models.RoleUser && m.Content.String() != "" {
			break
		}
		if m.Role == models.RoleTool {
			count += countBlocks(m.Content, models.BlockToolResult)
		}
	}
	return count
}

func countBlocks(c models.Content, kind models.BlockKind) int {
	n := 0
	for _, b := range c.Blocks {
		if b.Kind == kind {
			n++
		}
	}
	return n
}

// extractToolCalls reads every tool_use block off a response in order.
func extractToolCalls(resp *models.Response) []models.ToolCall {
	var calls []models.ToolCall
	for _, b := range resp.Content {
		if b.Kind != models.BlockToolUse {
			continue
		}
		args, _ := coerceArguments(b.Input)
		calls = append(calls, models.ToolCall{ID: b.ToolUseID, Name: b.Name, Arguments: args})
	}
	return calls
}

// coerceArguments normalises a tool_use block's Input (already a
// map[string]any in the common case, but possibly a struct or nil) into the
// canonical argument map, reporting malformed=true if it could not.
func coerceArguments(input any) (map[string]any, bool) {
	if input == nil {
		return map[string]any{}, true
	}
	if m, ok := input.(map[string]any); ok {
		return m, true
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return map[string]any{}, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}, false
	}
	return m, true
}

// responseText concatenates every text block in a response, in order.
func responseText(resp *models.Response) string {
	var out string
	for _, b := range resp.Content {
		if b.Kind == models.BlockText {
			out += b.Text
		}
	}
	return out
}

// hasToolCalls reports whether resp carries at least one tool_use block.
func hasToolCalls(resp *models.Response) bool {
	for _, b := range resp.Content {
		if b.Kind == models.BlockToolUse {
			return true
		}
	}
	return false
}

// appendUserText returns payload's messages with one more plain-text user
// turn appended, used for the nudge/retry recovery paths. The original
// slice is not mutated.
func appendUserText(messages []models.Message, text string) []models.Message {
	out := append([]models.Message(nil), messages...)
	out = append(out, models.Message{Role: models.RoleUser, Content: models.Content{Text: text}})
	return out
}

// appendAssistantText returns messages with an assistant turn appended,
// used to fold a recovered narration or subagent result back into context
// before retrying the provider call.
func appendAssistantText(messages []models.Message, text string) []models.Message {
	out := append([]models.Message(nil), messages...)
	out = append(out, models.Message{Role: models.RoleAssistant, Content: models.Content{Text: text}})
	return out
}

// toolUseBlock renders a tool call as the content block the transcript (and
// the downstream provider) expects to see for it.
func toolUseBlock(call models.ToolCall) models.ContentBlock {
	return models.ContentBlock{Kind: models.BlockToolUse, ToolUseID: call.ID, Name: call.Name, Input: call.Arguments}
}

// toolResultBlock renders an executed tool result as the content block a
// subsequent "tool" role message carries.
func toolResultBlock(result models.ToolResult) models.ContentBlock {
	return models.ContentBlock{Kind: models.BlockToolResult, ToolUseRefID: result.ID, ResultContent: result.Content, IsError: !result.OK}
}
