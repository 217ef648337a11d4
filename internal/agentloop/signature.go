package agentloop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/lynkr-ai/gateway/pkg/models"
)

const signatureLen = 16

// callSignature identifies a tool call by name and argument content, so
// repeats of the exact same call (not just the same tool) can be detected.
// Arguments are re-marshalled with sorted keys first so two structurally
// identical argument maps produce the same signature regardless of the
// order the provider emitted their keys in.
func callSignature(call models.ToolCall) string {
	h := sha256.New()
	h.Write([]byte(call.Name))
	h.Write([]byte{0})
	h.Write(canonicalArguments(call.Arguments))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:signatureLen]
}

// canonicalArguments renders args as JSON with keys in sorted order, falling
// back to the raw %v-style encoding if marshalling somehow fails (an
// argument value that isn't JSON-serialisable).
func canonicalArguments(args map[string]any) []byte {
	if len(args) == 0 {
		return []byte("{}")
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(args[k])
		if err != nil {
			vb = []byte(`"<unencodable>"`)
		}
		ordered = append(ordered, kb...)
		ordered = append(ordered, ':')
		ordered = append(ordered, vb...)
	}
	ordered = append(ordered, '}')
	return ordered
}

// collapseAdjacentDuplicates drops a call when it has the identical
// signature to the immediately preceding call in the same response, a
// pattern seen when a model repeats itself mid-turn rather than across
// turns (which loop detection in state.go already covers).
func collapseAdjacentDuplicates(calls []models.ToolCall) []models.ToolCall {
	if len(calls) < 2 {
		return calls
	}
	out := make([]models.ToolCall, 0, len(calls))
	var lastSig string
	for i, c := range calls {
		sig := callSignature(c)
		if i > 0 && sig == lastSig {
			continue
		}
		out = append(out, c)
		lastSig = sig
	}
	return out
}

// scoreToolCalls ranks a candidate tool-call set for compare-mode provider
// selection: more calls and richer, well-formed arguments score higher, a
// named function call scores higher than a bare tool name, and malformed
// JSON arguments are penalised.
func scoreToolCalls(calls []models.ToolCall, malformed bool) int {
	score := len(calls) * 10
	for _, c := range calls {
		if c.Name != "" {
			score += 5
		}
		score += len(c.Arguments) * 2
		for _, v := range c.Arguments {
			if s, ok := v.(string); ok && s != "" {
				score++
			}
		}
	}
	if malformed {
		score -= 5
	}
	return score
}
