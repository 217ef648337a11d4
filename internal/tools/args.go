package tools

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseArguments tolerates the three shapes a tool call's arguments arrive in
// across providers: an already-parsed object (Ollama), a JSON-string-encoded
// object (most OpenAI-shaped providers), and a doubly-stringified nested
// JSON string (seen from some open-weight models that re-escape their own
// tool_calls payload). raw is the original encoded form, kept for
// diagnostics even when parsing succeeds.
func ParseArguments(raw any) (map[string]any, string) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, ""
	case map[string]any:
		return v, ""
	case string:
		return parseArgumentString(v)
	case json.RawMessage:
		return parseArgumentString(string(v))
	default:
		// Unexpected but JSON-marshalable shape (e.g. a typed struct from an
		// SDK response); round-trip it through json to normalise.
		b, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}, ""
		}
		parsed, _ := parseArgumentString(string(b))
		return parsed, string(b)
	}
}

func parseArgumentString(s string) (map[string]any, string) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return map[string]any{}, s
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return unwrapDoubleEncoded(parsed), s
	}

	// Not valid JSON on its own: the whole string may itself be a
	// JSON-encoded string containing JSON (double-stringified). gjson parses
	// permissively enough to detect and unwrap that case without a second
	// Unmarshal round trip failing outright.
	if gjson.Valid(trimmed) {
		result := gjson.Parse(trimmed)
		if result.Type == gjson.String {
			var inner map[string]any
			if err := json.Unmarshal([]byte(result.String()), &inner); err == nil {
				return inner, s
			}
		}
	}

	return map[string]any{}, s
}

// unwrapDoubleEncoded handles the case where Unmarshal succeeded but
// produced a single-field object whose value is itself a JSON-encoded
// string, e.g. {"__args__": "{\"path\":\"a.go\"}"} from some proxy layers.
func unwrapDoubleEncoded(m map[string]any) map[string]any {
	if len(m) != 1 {
		return m
	}
	for _, v := range m {
		s, ok := v.(string)
		if !ok {
			return m
		}
		var inner map[string]any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner
		}
	}
	return m
}
