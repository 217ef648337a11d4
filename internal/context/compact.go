package context

import (
	"encoding/json"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"

	"github.com/lynkr-ai/gateway/internal/toon"
)

// CompactionSettings configures TOON compaction.
type CompactionSettings struct {
	MinBytes int
	Enabled  bool
}

// DefaultCompactionSettings compacts message strings over 4096 bytes that
// parse as JSON.
func DefaultCompactionSettings() CompactionSettings {
	return CompactionSettings{MinBytes: 4096, Enabled: true}
}

// CompactLargeJSON replaces message text that (a) parses as JSON and
// (b) is at least MinBytes long with its TOON-encoded form, to shrink the
// token cost of large structured payloads embedded in conversation text.
// role: tool messages are never touched. Encoding failures are swallowed —
// this step is fail-open, passing the original content through unchanged.
func CompactLargeJSON(messages []models.Message, settings CompactionSettings) []models.Message {
	if !settings.Enabled {
		return messages
	}
	minBytes := settings.MinBytes
	if minBytes <= 0 {
		minBytes = 4096
	}

	out := make([]models.Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role == models.RoleTool {
			continue
		}
		if m.Content.IsBlocks() {
			out[i] = compactBlocks(m, minBytes)
			continue
		}
		if compacted, ok := compactString(m.Content.Text, minBytes); ok {
			out[i] = models.Message{Role: m.Role, Content: models.Content{Text: compacted}}
		}
	}
	return out
}

func compactBlocks(m models.Message, minBytes int) models.Message {
	blocks := make([]models.ContentBlock, len(m.Content.Blocks))
	changed := false
	for i, b := range m.Content.Blocks {
		if b.Kind != models.BlockText {
			blocks[i] = b
			continue
		}
		if compacted, ok := compactString(b.Text, minBytes); ok {
			b.Text = compacted
			changed = true
		}
		blocks[i] = b
	}
	if !changed {
		return m
	}
	return models.Message{Role: m.Role, Content: models.Content{Blocks: blocks}}
}

func compactString(text string, minBytes int) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minBytes {
		return "", false
	}
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return "", false
	}
	return toon.Encode(decoded), true
}

// CoalesceConsecutiveRoles merges adjacent messages sharing the same role by
// concatenating their string forms with a blank-line separator.
func CoalesceConsecutiveRoles(messages []models.Message) []models.Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role && !m.Content.IsBlocks() && !out[n-1].Content.IsBlocks() {
			out[n-1].Content.Text = out[n-1].Content.Text + "\n\n" + m.Content.Text
			continue
		}
		out = append(out, m)
	}
	return out
}
