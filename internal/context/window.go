// Package context shapes a request payload before it is handed to the
// agent loop's first provider call: it compresses history, injects
// long-term memory, optimises the system prompt, enforces a token budget,
// compacts oversized JSON-shaped message bodies, coalesces consecutive
// same-role messages, and appends a tool-call nudge.
package context

import "strings"

// CharsPerToken is the crude chars-to-tokens ratio used everywhere in this
// package in place of a real tokenizer.
const CharsPerToken = 4

// DefaultContextWindowChars is used when a provider's context window cannot
// be determined any other way.
const DefaultContextWindowChars = 8000 * CharsPerToken

// WindowResolver reports a model's context window in tokens. Implementations
// know how to ask a specific provider (Ollama's /api/show, OpenRouter's
// /v1/models, a hardcoded Anthropic/OpenAI family table); a nil result with
// ok=false means "ask someone else" so callers can chain resolvers.
type WindowResolver interface {
	ContextWindowTokens(model string) (tokens int, ok bool)
}

// ResolverFunc adapts a function to WindowResolver.
type ResolverFunc func(model string) (int, bool)

func (f ResolverFunc) ContextWindowTokens(model string) (int, bool) { return f(model) }

// ChainResolver tries each resolver in order and returns the first hit,
// falling back to DefaultContextWindowChars when none answer.
type ChainResolver struct {
	Resolvers []WindowResolver
}

// ContextWindowChars resolves a model's context window and converts it to
// an approximate character budget.
func (c ChainResolver) ContextWindowChars(model string) int {
	for _, r := range c.Resolvers {
		if r == nil {
			continue
		}
		if tokens, ok := r.ContextWindowTokens(model); ok && tokens > 0 {
			return tokens * CharsPerToken
		}
	}
	return DefaultContextWindowChars
}

// StaticFamilyResolver answers from a fixed table of known model-name
// substrings to context window sizes in tokens, matched longest-prefix-first
// by iteration order (callers should list more specific entries first).
type StaticFamilyResolver struct {
	Families []FamilyWindow
}

// FamilyWindow pairs a model-name substring with its known context window.
type FamilyWindow struct {
	Contains string
	Tokens   int
}

// KnownFamilies is a minimal, commonly-correct table for well-known
// Anthropic and OpenAI model families.
var KnownFamilies = []FamilyWindow{
	{Contains: "claude-3-5", Tokens: 200000},
	{Contains: "claude-3", Tokens: 200000},
	{Contains: "claude-opus-4", Tokens: 200000},
	{Contains: "claude-sonnet-4", Tokens: 200000},
	{Contains: "gpt-4o", Tokens: 128000},
	{Contains: "gpt-4-turbo", Tokens: 128000},
	{Contains: "gpt-4", Tokens: 8192},
	{Contains: "gpt-3.5", Tokens: 16385},
	{Contains: "o1", Tokens: 200000},
}

func (s StaticFamilyResolver) ContextWindowTokens(model string) (int, bool) {
	lowered := strings.ToLower(model)
	for _, f := range s.Families {
		if f.Contains != "" && strings.Contains(lowered, strings.ToLower(f.Contains)) {
			return f.Tokens, true
		}
	}
	return 0, false
}
