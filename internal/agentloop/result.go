package agentloop

import "github.com/lynkr-ai/gateway/pkg/models"

// Result is what one processMessage invocation returns: an HTTP-shaped
// status plus the response body and the exact reason the loop stopped.
type Result struct {
	Status            int
	Response          *models.Response
	TerminationReason models.TerminationReason
	Routing           models.RoutingDecision
	Steps             int
	ToolCallsExecuted int
}

func errorResult(status int, reason models.TerminationReason, message string) *Result {
	return &Result{
		Status:            status,
		TerminationReason: reason,
		Response: &models.Response{
			Type:       "message",
			Role:       models.RoleAssistant,
			StopReason: models.StopEndTurn,
			Content:    []models.ContentBlock{{Kind: models.BlockText, Text: message}},
		},
	}
}

// statusForReason maps a termination reason onto the HTTP status the
// boundary should answer with. Benign stops (the model finished, or the
// loop decided on its own to stop) answer 200; upstream/backend failures
// answer 503; malformed or disallowed traffic answers 4xx/5xx accordingly.
func statusForReason(reason models.TerminationReason) int {
	switch reason {
	case models.TerminationCompletion,
		models.TerminationMaxSteps,
		models.TerminationMaxToolCallsExceeded,
		models.TerminationToolCallLoop,
		models.TerminationToolLoopGuard,
		models.TerminationEmptyResponseFallback,
		models.TerminationSuggestionModeSkip,
		models.TerminationToolUse:
		return 200
	case models.TerminationShutdown,
		models.TerminationProviderUnreachable,
		models.TerminationModelUnavailable,
		models.TerminationStreaming:
		return 503
	case models.TerminationNonJSONResponse, models.TerminationMalformedResponse:
		return 502
	case models.TerminationAPIError:
		return 500
	default:
		return 200
	}
}

func textResponse(model string, text string, stop models.StopReason, usage models.Usage) *models.Response {
	return &models.Response{
		Type:       "message",
		Role:       models.RoleAssistant,
		Model:      model,
		StopReason: stop,
		Usage:      usage,
		Content:    []models.ContentBlock{{Kind: models.BlockText, Text: text}},
	}
}
