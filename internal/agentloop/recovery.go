package agentloop

import (
	"regexp"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// narrationPattern matches a model announcing a tool call in prose instead
// of actually emitting one ("Invoking tool(s): Read, Grep").
var narrationPattern = regexp.MustCompile(`(?i)Invoking tool\(s\):\s*(.+)`)

// actionVerbPattern matches an opening declarative clause ("Let me check
// the file...") that implies an unexecuted action.
var actionVerbPattern = regexp.MustCompile(`(?i)^(Let me|I'll|I'm going to|First let me)\s+(\w+)`)

// detectNarration reports the comma-separated tool names a response claims
// to invoke without any accompanying tool_use block.
func detectNarration(text string) ([]string, bool) {
	m := narrationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	var names []string
	for _, part := range strings.Split(m[1], ",") {
		name := strings.TrimSpace(part)
		name = strings.TrimRight(name, ".")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, len(names) > 0
}

// subagentTypeFor maps a named tool to the subagent type step 10 spawns to
// carry out the narrated intent, defaulting to the general explorer agent.
func subagentTypeFor(toolName string) string {
	switch strings.ToLower(toolName) {
	case "read", "grep", "glob":
		return "Explore"
	case "edit", "write", "bash":
		return "general-purpose"
	default:
		return "Explore"
	}
}

// actionVerbToTool maps the verb phrase a "Let me ..." narration opens with
// to the tool that verb most plausibly describes. Verbs outside this set
// fall through to nudge-retry rather than a guessed synthetic call — a
// mapping this small cannot cover every verb a model might use, and a wrong
// guess is worse than asking again.
var actionVerbToTool = map[string]string{
	"read":    "Read",
	"check":   "Read",
	"open":    "Read",
	"search":  "Grep",
	"find":    "Grep",
	"look":    "Grep",
	"list":    "Glob",
	"edit":    "Edit",
	"update":  "Edit",
	"write":   "Write",
	"create":  "Write",
	"run":     "Bash",
	"execute": "Bash",
}

// detectActionVerb reports the tool a "Let me/I'll ..." opening clause
// implies. When neither auto-subagent nor the LLM classifier settles the
// narration, recoverFromNarration appends an assistant note naming that
// tool and retries the provider call; no tool call is built or executed
// from it.
func detectActionVerb(text string) (tool string, ok bool) {
	m := actionVerbPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	verb := strings.ToLower(m[2])
	tool, ok = actionVerbToTool[verb]
	return tool, ok
}

// nudgeText is appended as a synthetic user turn to ask the model to either
// take the action it narrated or answer directly, used by both the
// empty-response and intent-narration recovery paths.
const nudgeText = "Please either call the tool you described or answer directly without narrating an action you are not taking."

// summarizeForLoopGuard builds the canned response returned when the
// pre-loop guard fires: too many tool results have accumulated since the
// last real user turn with no sign the client is steering the loop.
func summarizeForLoopGuard(model string) *models.Response {
	return textResponse(model,
		"I've gathered several tool results without further guidance. Let me know what you'd like me to do next.",
		models.StopEndTurn, models.Usage{})
}

// emptyResponseFallbackText is returned verbatim when a model produces no
// text and no tool calls twice in a row.
const emptyResponseFallbackText = "I wasn't able to generate a response for that. Could you rephrase or provide more detail?"

// loopWarningText is appended as a user turn, after that step's tool
// results, the first time a call signature repeats toolLoopThreshold times.
const loopWarningText = "You've repeated the same tool call several times. Consider trying a different approach or answering with what you already know."

// staleDataPhrases are the tells that a response is disclaiming it lacks
// current information rather than actually answering, step 14's trigger for
// a one-time synthetic web_fetch call.
var staleDataPhrases = []string{
	"i don't have access to current",
	"i don't have real-time",
	"i don't have access to real-time",
	"my knowledge cutoff",
	"i can't browse the web",
}

// needsWebFallback reports whether text signals the model needs fresh web
// data it can't otherwise get, and a web_fetch tool was actually offered
// this turn (synthesizing a call to a tool that was never declared would
// violate the same hallucination guard step 8 enforces).
func needsWebFallback(text string, offered []models.ToolDefinition) bool {
	lower := strings.ToLower(text)
	signaled := false
	for _, phrase := range staleDataPhrases {
		if strings.Contains(lower, phrase) {
			signaled = true
			break
		}
	}
	if !signaled {
		return false
	}
	for _, t := range offered {
		if strings.EqualFold(t.Name, "web_fetch") || strings.EqualFold(t.Name, "webfetch") {
			return true
		}
	}
	return false
}

// synthesizeWebFetchCall builds the one-time web_fetch call step 14 injects
// when needsWebFallback fires, querying on the response text itself since
// that is the best available signal for what the model was trying to look
// up.
func synthesizeWebFetchCall(text string) models.ToolCall {
	return models.ToolCall{
		ID:        "synthetic-web-fetch",
		Name:      "web_fetch",
		Arguments: map[string]any{"query": strings.TrimSpace(text)},
	}
}
