package context

import (
	"context"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// MemoryItem is one long-term memory fact available for injection.
type MemoryItem struct {
	Text  string
	Score float64
}

// MemoryStore retrieves long-term memories relevant to a query.
type MemoryStore interface {
	Search(ctx context.Context, query string, topK int) ([]MemoryItem, error)
}

// MemorySettings configures memory injection.
type MemorySettings struct {
	TopK    int
	Enabled bool
}

// DefaultMemorySettings returns a top-5, enabled configuration.
func DefaultMemorySettings() MemorySettings {
	return MemorySettings{TopK: 5, Enabled: true}
}

// InjectMemory extracts a query from the last user message, retrieves
// relevant memories, dedupes them against the recent window's text, and
// prepends a compact "# Context" block to the system prompt. It is a no-op
// (returning system unchanged) when store is nil, disabled, or there is no
// user message to query from.
func InjectMemory(ctx context.Context, store MemoryStore, settings MemorySettings, system string, messages []models.Message) string {
	if store == nil || !settings.Enabled {
		return system
	}
	query := lastUserText(messages)
	if query == "" {
		return system
	}

	topK := settings.TopK
	if topK <= 0 {
		topK = 5
	}
	items, err := store.Search(ctx, query, topK)
	if err != nil || len(items) == 0 {
		return system
	}

	recentText := recentWindowText(messages)
	var lines []string
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		if strings.Contains(recentText, text) {
			continue
		}
		lines = append(lines, "- "+text)
	}
	if len(lines) == 0 {
		return system
	}

	block := "# Context\n" + strings.Join(lines, "\n")
	if system == "" {
		return block
	}
	return block + "\n\n" + system
}

func lastUserText(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			if t := messages[i].Content.String(); t != "" {
				return t
			}
		}
	}
	return ""
}

// recentWindowText concatenates the trailing few messages' text, used as a
// dedupe corpus so memory injection never repeats what's already visible.
func recentWindowText(messages []models.Message) string {
	const window = 6
	start := len(messages) - window
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, m := range messages[start:] {
		sb.WriteString(m.Content.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
