package context

import (
	"encoding/json"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// BudgetSettings configures token-budget enforcement.
type BudgetSettings struct {
	MaxTokens int
}

// DefaultBudgetSettings allows up to 100k estimated tokens before
// re-compression kicks in.
func DefaultBudgetSettings() BudgetSettings {
	return BudgetSettings{MaxTokens: 100000}
}

// EstimateTokens approximates the token cost of a shaped request as
// ceil(charCount/4) summed over system, tools (as JSON), and message content.
func EstimateTokens(system string, tools []models.ToolDefinition, messages []models.Message) int {
	chars := len(system)
	if toolsJSON, err := json.Marshal(tools); err == nil {
		chars += len(toolsJSON)
	}
	for _, m := range messages {
		chars += len(m.Content.String())
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// EnforceBudget re-runs history compression with progressively tighter
// tiers until the estimated token count is within settings.MaxTokens or no
// further tightening is possible.
func EnforceBudget(system string, tools []models.ToolDefinition, messages []models.Message, settings BudgetSettings, contextWindowChars int) []models.Message {
	if settings.MaxTokens <= 0 {
		return messages
	}

	tightened := DefaultCompressionSettings()
	current := messages
	for attempt := 0; attempt < 4; attempt++ {
		if EstimateTokens(system, tools, current) <= settings.MaxTokens {
			return current
		}
		tightened = tighten(tightened)
		current = CompressHistory(messages, tightened, contextWindowChars)
	}
	return current
}

// tighten halves every tier's retention and budget fraction, within reason,
// for another compression pass.
func tighten(s CompressionSettings) CompressionSettings {
	s.VeryRecentRetain = halve(s.VeryRecentRetain, 0.10)
	s.RecentRetain = halve(s.RecentRetain, 0.05)
	s.OldRetain = halve(s.OldRetain, 0.02)
	s.VeryRecentBudget = halve(s.VeryRecentBudget, 0.05)
	s.RecentBudget = halve(s.RecentBudget, 0.02)
	s.OldBudget = halve(s.OldBudget, 0.01)
	return s
}

func halve(v, floor float64) float64 {
	v /= 2
	if v < floor {
		return floor
	}
	return v
}
