// Package parsers extracts tool_use intents from assistant text for models
// that narrate tool use in prose instead of emitting structured tool calls
// recovering tool calls a model emitted as plain text instead of a native tool_use block.
package parsers

import (
	"regexp"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Parser recognizes one family's fenced-code-block convention for narrating
// shell/tool invocations and turns it into structured tool calls.
type Parser interface {
	// ExtractToolCallsFromText returns the tool calls narrated in text, or
	// nil if none were found.
	ExtractToolCallsFromText(text string) []models.ToolCall
	// CleanArguments normalizes a tool call's arguments (e.g. trimming a
	// stray shell prompt sigil) after extraction.
	CleanArguments(call models.ToolCall) models.ToolCall
}

var fencedBlockRegex = regexp.MustCompile("(?s)```(bash|sh|shell|console|terminal)?\\n(.*?)```")

// promptSigilRegex strips a leading shell-prompt sigil ($ or #) and common
// bullet markers from a narrated command line.
var promptSigilRegex = regexp.MustCompile(`^[\s]*[-*]?\s*[\$#]\s*`)

// GenericToolParser recognizes fenced bash/sh/shell/console/terminal code
// blocks and treats each non-empty line as a Bash tool invocation. Model
// family parsers embed it and override extraction where a model's narration
// convention differs.
type GenericToolParser struct {
	// ToolName is the tool the extracted commands map to. Defaults to "Bash".
	ToolName string
}

// NewGenericToolParser returns a parser that maps fenced shell blocks to the
// Bash tool.
func NewGenericToolParser() *GenericToolParser {
	return &GenericToolParser{ToolName: "Bash"}
}

func (p *GenericToolParser) toolName() string {
	if p.ToolName == "" {
		return "Bash"
	}
	return p.ToolName
}

// ExtractToolCallsFromText implements Parser.
func (p *GenericToolParser) ExtractToolCallsFromText(text string) []models.ToolCall {
	matches := fencedBlockRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	var calls []models.ToolCall
	for _, m := range matches {
		body := m[2]
		for _, line := range strings.Split(body, "\n") {
			cmd := cleanLine(line)
			if cmd == "" {
				continue
			}
			calls = append(calls, models.ToolCall{
				Name:      p.toolName(),
				Arguments: map[string]any{"command": cmd},
			})
		}
	}
	return calls
}

// CleanArguments implements Parser; the generic parser's lines are already
// cleaned at extraction time, so this is a no-op pass-through.
func (p *GenericToolParser) CleanArguments(call models.ToolCall) models.ToolCall {
	return call
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = promptSigilRegex.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// Registry resolves a model name to the Parser that understands its
// narration convention.
type Registry struct {
	byModel map[string]Parser
	generic Parser
}

// NewRegistry builds a ParserRegistry pre-populated with the known model
// family names: llama, qwen, glm, deepseek, kimi, nemotron, minimax,
// gpt-oss. Each currently resolves to an unmodified GenericToolParser (none
// of these families' narration conventions has been observed to diverge
// from the generic fenced-bash-block convention yet); the map exists so a
// family that does diverge gets its own Parser without changing Resolve's
// callers.
func NewRegistry() *Registry {
	generic := NewGenericToolParser()
	families := []string{"llama", "qwen", "glm", "deepseek", "kimi", "nemotron", "minimax", "gpt-oss"}
	byModel := make(map[string]Parser, len(families))
	for _, f := range families {
		byModel[f] = NewGenericToolParser()
	}
	return &Registry{byModel: byModel, generic: generic}
}

// Resolve returns the Parser for modelName, matching on substring against
// the known family prefixes and falling back to the generic parser.
func (r *Registry) Resolve(modelName string) Parser {
	lower := strings.ToLower(modelName)
	for family, parser := range r.byModel {
		if strings.Contains(lower, family) {
			return parser
		}
	}
	return r.generic
}
