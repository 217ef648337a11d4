package context

import (
	"fmt"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// CompressionSettings configures tiered history compression.
type CompressionSettings struct {
	// Threshold is the message count above which compression kicks in.
	Threshold int
	// KeepRecentTurns is how many trailing messages stay outside the
	// summarized-older split.
	KeepRecentTurns int

	// VeryRecentCount is how many of the trailing messages get the lightest
	// (veryRecent) tier treatment.
	VeryRecentCount int
	// RecentCount is how many messages after veryRecent get the recent tier.
	RecentCount int

	VeryRecentRetain float64
	RecentRetain     float64
	OldRetain        float64

	VeryRecentBudget float64 // fraction of contextWindowChars
	RecentBudget     float64
	OldBudget        float64
}

// DefaultCompressionSettings mirrors the tiering scheme: last 4 messages
// are veryRecent (90% kept), the next 6 are recent (50% kept), everything
// older is old (20% kept), with shrinking per-tier char budgets.
func DefaultCompressionSettings() CompressionSettings {
	return CompressionSettings{
		Threshold:        15,
		KeepRecentTurns:  10,
		VeryRecentCount:  4,
		RecentCount:      6,
		VeryRecentRetain: 0.90,
		RecentRetain:     0.50,
		OldRetain:        0.20,
		VeryRecentBudget: 0.25,
		RecentBudget:     0.10,
		OldBudget:        0.03,
	}
}

type tier int

const (
	tierVeryRecent tier = iota
	tierRecent
	tierOld
)

// CompressHistory implements the history-compression step: once a
// conversation crosses Threshold messages, everything before the trailing
// KeepRecentTurns is collapsed into one synthetic summary message, and the
// kept messages have their tool_result blocks shrunk per tier.
func CompressHistory(messages []models.Message, settings CompressionSettings, contextWindowChars int) []models.Message {
	if contextWindowChars <= 0 {
		contextWindowChars = DefaultContextWindowChars
	}
	if len(messages) <= settings.Threshold {
		return tierCompressTail(messages, settings, contextWindowChars)
	}

	splitAt := len(messages) - settings.KeepRecentTurns
	if splitAt < 0 {
		splitAt = 0
	}
	older := messages[:splitAt]
	recent := messages[splitAt:]

	summary := summarizeOlder(older)
	compressedRecent := tierCompressTail(recent, settings, contextWindowChars)

	out := make([]models.Message, 0, len(compressedRecent)+1)
	if summary != nil {
		out = append(out, *summary)
	}
	out = append(out, compressedRecent...)
	return out
}

// summarizeOlder renders dropped history as one user-role synthetic message
// of the form "[Earlier conversation summary: User: ... | Assistant used
// tools: X, Y | Assistant: ...]". Returns nil if there's nothing to collapse.
func summarizeOlder(older []models.Message) *models.Message {
	if len(older) == 0 {
		return nil
	}

	var lastUserText, lastAssistantText string
	toolNames := make([]string, 0)
	seen := make(map[string]bool)

	for _, m := range older {
		switch m.Role {
		case models.RoleUser:
			if t := m.Content.String(); t != "" {
				lastUserText = t
			}
		case models.RoleAssistant:
			if t := m.Content.String(); t != "" {
				lastAssistantText = t
			}
			for _, b := range m.Content.Blocks {
				if b.Kind == models.BlockToolUse && b.Name != "" && !seen[b.Name] {
					seen[b.Name] = true
					toolNames = append(toolNames, b.Name)
				}
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("[Earlier conversation summary: ")
	if lastUserText != "" {
		sb.WriteString("User: ")
		sb.WriteString(truncateRunes(lastUserText, 400))
	}
	if len(toolNames) > 0 {
		sb.WriteString(" | Assistant used tools: ")
		sb.WriteString(strings.Join(toolNames, ", "))
	}
	if lastAssistantText != "" {
		sb.WriteString(" | Assistant: ")
		sb.WriteString(truncateRunes(lastAssistantText, 400))
	}
	sb.WriteString("]")

	return &models.Message{
		Role:    models.RoleUser,
		Content: models.Content{Text: sb.String()},
	}
}

// tierCompressTail applies per-tier tool_result shrinking to the trailing
// window of messages, counting tiers from the end backwards.
func tierCompressTail(messages []models.Message, settings CompressionSettings, contextWindowChars int) []models.Message {
	out := make([]models.Message, len(messages))
	copy(out, messages)

	n := len(out)
	for i := n - 1; i >= 0; i-- {
		distanceFromEnd := n - 1 - i
		t, retain, budgetFrac := classifyTier(distanceFromEnd, settings)
		if out[i].Role != models.RoleUser && out[i].Role != models.RoleAssistant {
			continue
		}
		if !hasToolResult(out[i]) {
			continue
		}
		cap := int(float64(contextWindowChars) * budgetFrac)
		out[i] = compressMessageToolResults(out[i], retain, cap)
		_ = t
	}
	return out
}

func classifyTier(distanceFromEnd int, s CompressionSettings) (tier, float64, float64) {
	switch {
	case distanceFromEnd < s.VeryRecentCount:
		return tierVeryRecent, s.VeryRecentRetain, s.VeryRecentBudget
	case distanceFromEnd < s.VeryRecentCount+s.RecentCount:
		return tierRecent, s.RecentRetain, s.RecentBudget
	default:
		return tierOld, s.OldRetain, s.OldBudget
	}
}

func hasToolResult(m models.Message) bool {
	for _, b := range m.Content.Blocks {
		if b.Kind == models.BlockToolResult {
			return true
		}
	}
	return false
}

// compressMessageToolResults copy-on-writes a message's tool_result blocks,
// shrinking each to at most cap*retain chars, using head+tail truncation
// with an omission marker. The limit is a function of the tier's constants
// only, so re-running compression over its own output is a no-op.
func compressMessageToolResults(m models.Message, retain float64, cap int) models.Message {
	blocks := make([]models.ContentBlock, len(m.Content.Blocks))
	changed := false
	for i, b := range m.Content.Blocks {
		if b.Kind != models.BlockToolResult {
			blocks[i] = b
			continue
		}
		// limit is derived only from the tier's constant cap/retain, never
		// from the current (possibly already-truncated) content length —
		// otherwise a second compression pass over already-compressed
		// output would keep shrinking the limit every time it ran.
		limit := int(float64(cap) * retain)
		if limit <= 0 {
			limit = 1
		}
		if len(b.ResultContent) <= limit {
			blocks[i] = b
			continue
		}
		b.ResultContent = intelligentTruncate(b.ResultContent, limit)
		blocks[i] = b
		changed = true
	}
	if !changed {
		return m
	}
	return models.Message{Role: m.Role, Content: models.Content{Text: m.Content.Text, Blocks: blocks}}
}

// intelligentTruncate keeps a head and tail of content separated by an
// omission marker reporting how many characters were dropped, targeting a
// total length near limit.
func intelligentTruncate(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	marker := func(n int) string { return fmt.Sprintf("\n…[%d chars omitted]…\n", n) }
	// Reserve room for the marker itself using its max plausible width.
	reserve := len(marker(len(content)))
	avail := limit - reserve
	if avail <= 0 {
		return marker(len(content))
	}
	head := avail * 2 / 3
	tail := avail - head
	omitted := len(content) - head - tail
	return content[:head] + marker(omitted) + content[len(content)-tail:]
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
