package context

import (
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

const taskDelegationParagraph = "You have access to a Task tool that can delegate multi-step work to a " +
	"subagent. Prefer delegating open-ended exploration or multi-file work to Task rather than " +
	"performing every step yourself inline."

const toolTerminationParagraph = "When you are done calling tools and ready to answer, respond with plain " +
	"text and no further tool calls. Do not narrate that you are about to call a tool — call it."

// PromptOptimizationSettings configures system-prompt optimisation.
type PromptOptimizationSettings struct {
	MinimalToolDescriptions bool
	// NonAnthropicDialect is true when the active provider is not
	// Anthropic-shaped, triggering the tool-termination paragraph.
	NonAnthropicDialect bool
}

// OptimizeSystemPrompt applies tool-description minimisation and injects the
// task-delegation / tool-termination paragraphs described for this step.
func OptimizeSystemPrompt(system string, tools []models.ToolDefinition, settings PromptOptimizationSettings) (string, []models.ToolDefinition) {
	optimizedTools := tools
	if settings.MinimalToolDescriptions {
		optimizedTools = make([]models.ToolDefinition, len(tools))
		for i, t := range tools {
			t.Description = minimalDescription(t.Description)
			optimizedTools[i] = t
		}
	}

	var extras []string
	if hasTask(tools) {
		extras = append(extras, taskDelegationParagraph)
	}
	if settings.NonAnthropicDialect {
		extras = append(extras, toolTerminationParagraph)
	}
	if len(extras) == 0 {
		return system, optimizedTools
	}

	joined := strings.Join(extras, "\n\n")
	if system == "" {
		return joined, optimizedTools
	}
	return system + "\n\n" + joined, optimizedTools
}

// minimalDescription keeps only the first sentence of a tool description,
// capped at 120 chars, to shrink the tools payload sent to the model.
func minimalDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	if idx := strings.IndexAny(desc, ".\n"); idx >= 0 && idx < len(desc)-1 {
		desc = desc[:idx+1]
	}
	const maxLen = 120
	if len(desc) > maxLen {
		desc = desc[:maxLen]
	}
	return desc
}

func hasTask(tools []models.ToolDefinition) bool {
	for _, t := range tools {
		if strings.EqualFold(t.Name, "task") {
			return true
		}
	}
	return false
}

// ToolCallNudge is appended to the system prompt in step 7 whenever any
// tools are bound to the request.
const ToolCallNudge = "Go ahead and use the tool calls if you want to. Do not describe what you are about to do — just call the tools directly."

// AppendToolCallNudge appends ToolCallNudge to system when len(tools) > 0.
func AppendToolCallNudge(system string, tools []models.ToolDefinition) string {
	if len(tools) == 0 {
		return system
	}
	if system == "" {
		return ToolCallNudge
	}
	return system + "\n\n" + ToolCallNudge
}
