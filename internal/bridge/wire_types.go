package bridge

import "github.com/lynkr-ai/gateway/pkg/models"

// AnthropicWireRequest is the JSON shape sent to an Anthropic-dialect
// backend. ContentBlock's own json tags already match the Anthropic wire
// shape for tool_use/tool_result/text/image, so messages reuse it directly.
type AnthropicWireRequest struct {
	Model       string                 `json:"model"`
	System      string                 `json:"system,omitempty"`
	Messages    []AnthropicWireMessage `json:"messages"`
	Tools       []AnthropicWireTool    `json:"tools,omitempty"`
	ToolChoice  any                    `json:"tool_choice,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature *float64               `json:"temperature,omitempty"`
	Stream      bool                   `json:"stream,omitempty"`
}

// AnthropicWireMessage is one message in the Anthropic dialect: role plus an
// ordered content-block array (role is always "user" or "assistant" — system
// is lifted out, tool is re-encoded as a user message carrying tool_result
// blocks).
type AnthropicWireMessage struct {
	Role    string               `json:"role"`
	Content []models.ContentBlock `json:"content"`
}

// AnthropicWireTool is a tool definition in the Anthropic dialect.
type AnthropicWireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// OpenAIWireRequest is the JSON shape sent to an OpenAI-dialect backend.
type OpenAIWireRequest struct {
	Model       string              `json:"model"`
	Messages    []OpenAIWireMessage `json:"messages"`
	Tools       []OpenAIWireTool    `json:"tools,omitempty"`
	ToolChoice  any                 `json:"tool_choice,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// OpenAIWireMessage is one message in the OpenAI dialect.
type OpenAIWireMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content,omitempty"` // string | []OpenAIContentPart | nil
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

// OpenAIContentPart is one element of a multi-part OpenAI message content
// array (used for text interleaved with images).
type OpenAIContentPart struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *OpenAIImageURLPart `json:"image_url,omitempty"`
}

// OpenAIImageURLPart carries an image reference for a content part.
type OpenAIImageURLPart struct {
	URL string `json:"url"`
}

// OpenAIToolCall is one function call on an assistant message.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"` // always "function"
	Function OpenAIFunctionCall `json:"function"`
}

// OpenAIFunctionCall carries the name and JSON-string-encoded arguments of a
// tool call, per the OpenAI wire shape.
type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIWireTool is a tool definition in the OpenAI dialect.
type OpenAIWireTool struct {
	Type     string             `json:"type"` // always "function"
	Function OpenAIFunctionDef `json:"function"`
}

// OpenAIFunctionDef is the function schema nested inside an OpenAIWireTool.
type OpenAIFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
