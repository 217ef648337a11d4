// Package bridge implements the provider-format bridge (C2): translating
// between the canonical Anthropic-content-block shape and the OpenAI
// tool-call shape, in both directions, plus per-model text-based tool-call
// parsing for providers that narrate tool use in prose.
package bridge

import "strings"

// Dialect identifies which wire shape a backend expects/returns.
type Dialect string

const (
	// DialectAnthropic is the Anthropic Messages API shape: content blocks,
	// a top-level `system` string, and tool_result blocks folded into user
	// messages.
	DialectAnthropic Dialect = "anthropic"

	// DialectOpenAI is the OpenAI Chat Completions shape: flat string or
	// multi-part content, `role: system` messages, `tool_calls` on the
	// assistant message, and `role: tool` result messages.
	DialectOpenAI Dialect = "openai"
)

// DialectForProvider maps a provider name to the wire dialect it speaks.
// Ollama, OpenRouter, Azure-OpenAI-compatible backends, and local vLLM
// servers all speak the OpenAI dialect; Bedrock and Vertex are normalized
// to the Anthropic dialect at the provider-client boundary before reaching
// the bridge (their native wire shapes are SDK-typed, not JSON dialects).
func DialectForProvider(provider string) Dialect {
	switch strings.ToLower(provider) {
	case "anthropic", "bedrock", "vertex":
		return DialectAnthropic
	default:
		return DialectOpenAI
	}
}
