package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lynkr-ai/gateway/internal/bridge"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// AnthropicClient implements Client for the hosted Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a client against apiKey, optionally overriding
// the default base URL (used for Anthropic-compatible proxies).
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Invoke implements Client.
func (c *AnthropicClient) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	if payload == nil {
		return nil, newClientError("anthropic", ErrAPIError, 400, "payload is nil", nil)
	}
	model := payload.Model
	if opts.Model != "" {
		model = opts.Model
	}
	cloned := payload.Clone()
	cloned.Model = model

	wire, err := bridge.PrepareRequest(cloned, bridge.DialectAnthropic)
	if err != nil {
		return nil, newClientError("anthropic", ErrAPIError, 400, "failed to prepare request", err)
	}
	req := toAnthropicParams(wire.(*bridge.AnthropicWireRequest))

	msg, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, newClientError("anthropic", ErrMalformedResponse, 502, "failed to marshal response", err)
	}
	return &Response{
		Status:         200,
		JSON:           body,
		ContentType:    "application/json",
		OK:             true,
		ActualProvider: "anthropic",
	}, nil
}

func toAnthropicParams(wire *bridge.AnthropicWireRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(wire.Model),
		MaxTokens: int64(maxOrDefault(wire.MaxTokens, 4096)),
	}
	if wire.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: wire.System}}
	}
	for _, m := range wire.Messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			switch b.Kind {
			case models.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case models.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, b.Input, b.Name))
			case models.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseRefID, b.ResultContent, b.IsError))
			}
		}
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}
	for _, t := range wire.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
				},
			},
		})
	}
	return params
}

func maxOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status == 0 {
			status = 500
		}
		return newClientError("anthropic", ErrAPIError, status, apiErr.Error(), err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return newClientError("anthropic", ErrProviderUnreachable, 503, "provider unreachable", err)
	}
	return newClientError("anthropic", ErrMalformedResponse, 502, "malformed response", err)
}
