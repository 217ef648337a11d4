package bridge

import (
	"encoding/json"
	"regexp"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// thinkBlockRegex strips model-internal <think>...</think> narration that
// some open-weight models emit inline with ordinary text.
var thinkBlockRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// anthropicWireResponse is the subset of the Anthropic Messages API response
// shape the bridge understands.
type anthropicWireResponse struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	Role       string                `json:"role"`
	Model      string                `json:"model"`
	Content    []models.ContentBlock `json:"content"`
	StopReason string                `json:"stop_reason"`
	Usage      struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// openAIWireResponse is the subset of the OpenAI Chat Completions response
// shape the bridge understands.
type openAIWireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []OpenAIToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// finishReasonToStop maps an OpenAI finish_reason to the canonical
// Anthropic-shaped stop_reason.
func finishReasonToStop(reason string) models.StopReason {
	switch reason {
	case "length":
		return models.StopMaxTokens
	case "tool_calls", "function_call":
		return models.StopToolUse
	case "stop", "":
		return models.StopEndTurn
	default:
		return models.StopEndTurn
	}
}

// NormalizeResponse converts a raw backend response body into the canonical
// Anthropic-shaped Response, regardless of which dialect produced it.
func NormalizeResponse(raw json.RawMessage, dialect Dialect, fallbackModel string) (*models.Response, error) {
	switch dialect {
	case DialectAnthropic:
		return normalizeAnthropic(raw, fallbackModel)
	default:
		return normalizeOpenAI(raw, fallbackModel)
	}
}

func normalizeAnthropic(raw json.RawMessage, fallbackModel string) (*models.Response, error) {
	var wire anthropicWireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	model := wire.Model
	if model == "" {
		model = fallbackModel
	}
	content := stripThinking(wire.Content)
	return &models.Response{
		ID:         wire.ID,
		Type:       "message",
		Role:       models.RoleAssistant,
		Model:      model,
		Content:    content,
		StopReason: stopReasonOrEndTurn(wire.StopReason),
		Usage: models.Usage{
			InputTokens:              wire.Usage.InputTokens,
			OutputTokens:             wire.Usage.OutputTokens,
			CacheReadInputTokens:     wire.Usage.CacheReadInputTokens,
			CacheCreationInputTokens: wire.Usage.CacheCreationInputTokens,
		},
	}, nil
}

func stopReasonOrEndTurn(s string) models.StopReason {
	switch models.StopReason(s) {
	case models.StopEndTurn, models.StopMaxTokens, models.StopToolUse, models.StopSequence:
		return models.StopReason(s)
	default:
		return models.StopEndTurn
	}
}

func normalizeOpenAI(raw json.RawMessage, fallbackModel string) (*models.Response, error) {
	var wire openAIWireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	model := wire.Model
	if model == "" {
		model = fallbackModel
	}
	resp := &models.Response{
		ID:    wire.ID,
		Type:  "message",
		Role:  models.RoleAssistant,
		Model: model,
		Usage: models.Usage{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
		},
		StopReason: models.StopEndTurn,
	}
	if len(wire.Choices) == 0 {
		return resp, nil
	}
	choice := wire.Choices[0]
	resp.StopReason = finishReasonToStop(choice.FinishReason)

	var blocks []models.ContentBlock
	if text := thinkBlockRegex.ReplaceAllString(choice.Message.Content, ""); text != "" {
		blocks = append(blocks, models.ContentBlock{Kind: models.BlockText, Text: text})
	}
	for _, tc := range choice.Message.ToolCalls {
		var input any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		blocks = append(blocks, models.ContentBlock{
			Kind:      models.BlockToolUse,
			ToolUseID: tc.ID,
			Name:      tc.Function.Name,
			Input:     input,
		})
	}
	resp.Content = blocks
	return resp, nil
}

func stripThinking(blocks []models.ContentBlock) []models.ContentBlock {
	out := make([]models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == models.BlockText {
			b.Text = thinkBlockRegex.ReplaceAllString(b.Text, "")
		}
		out = append(out, b)
	}
	return out
}
