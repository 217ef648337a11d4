package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lynkr-ai/gateway/internal/bridge"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// OpenAIShaped is the Client implementation shared by every backend that
// speaks the OpenAI Chat Completions dialect: OpenAI itself, OpenRouter,
// Azure's OpenAI-compatible endpoint, and local OpenAI-compatible servers.
// Ollama wraps two of these (local and cloud) and layers its own
// cloud-routing/probe/warm-up behavior on top (see ollama.go).
type OpenAIShaped struct {
	name   string
	client *openai.Client
}

// NewOpenAIShaped builds an OpenAI-dialect client against baseURL (empty
// uses the provider's default) with apiKey for bearer auth.
func NewOpenAIShaped(name, apiKey, baseURL string) *OpenAIShaped {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIShaped{name: name, client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIShaped) Name() string { return p.name }

// Invoke implements Client. It converts payload via the format bridge,
// issues one non-streaming chat completion call, and returns the raw JSON
// body for later normalization by the caller.
func (p *OpenAIShaped) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	if payload == nil {
		return nil, newClientError(p.name, ErrAPIError, 400, "payload is nil", nil)
	}
	model := payload.Model
	if opts.Model != "" {
		model = opts.Model
	}
	cloned := payload.Clone()
	cloned.Model = model

	wire, err := bridge.PrepareRequest(cloned, bridge.DialectOpenAI)
	if err != nil {
		return nil, newClientError(p.name, ErrAPIError, 400, "failed to prepare request", err)
	}
	req := toOpenAIRequest(wire.(*bridge.OpenAIWireRequest))

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(p.name, err)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, newClientError(p.name, ErrMalformedResponse, 502, "failed to marshal response", err)
	}
	return &Response{
		Status:         200,
		JSON:           body,
		ContentType:    "application/json",
		OK:             true,
		ActualProvider: p.name,
	}, nil
}

func toOpenAIRequest(wire *bridge.OpenAIWireRequest) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:     wire.Model,
		MaxTokens: wire.MaxTokens,
	}
	if wire.Temperature != nil {
		req.Temperature = float32(*wire.Temperature)
	}
	for _, m := range wire.Messages {
		cm := openai.ChatCompletionMessage{
			Role:       m.Role,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		if s, ok := m.Content.(string); ok {
			cm.Content = s
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		req.Messages = append(req.Messages, cm)
	}
	for _, t := range wire.Tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return req
}

// classifyOpenAIError maps a go-openai transport/API error to one of the
// four typed client failure kinds.
func classifyOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		if status == 0 {
			status = 500
		}
		return newClientError(provider, ErrAPIError, status, apiErr.Message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || strings.Contains(err.Error(), "connection refused") {
		return newClientError(provider, ErrProviderUnreachable, 503, "provider unreachable", err)
	}
	return newClientError(provider, ErrMalformedResponse, 502, "malformed response", err)
}
