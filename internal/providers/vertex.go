package providers

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/lynkr-ai/gateway/internal/bridge"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// VertexClient implements Client for Google Vertex AI / Gemini, speaking the
// Anthropic dialect internally (Gemini's own content-part shape is close
// enough to Anthropic's block shape that the bridge's Anthropic dialect is
// reused and then mapped onto genai's typed Content/Part structures here).
type VertexClient struct {
	client  *genai.Client
	project string
	region  string
}

// NewVertexClient builds a client against the given GCP project/region using
// application-default credentials.
func NewVertexClient(ctx context.Context, project, region string) (*VertexClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}
	return &VertexClient{client: client, project: project, region: region}, nil
}

func (c *VertexClient) Name() string { return "vertex" }

// Invoke implements Client.
func (c *VertexClient) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	if payload == nil {
		return nil, newClientError("vertex", ErrAPIError, 400, "payload is nil", nil)
	}
	model := payload.Model
	if opts.Model != "" {
		model = opts.Model
	}
	cloned := payload.Clone()

	wireAny, err := bridge.PrepareRequest(cloned, bridge.DialectAnthropic)
	if err != nil {
		return nil, newClientError("vertex", ErrAPIError, 400, "failed to prepare request", err)
	}
	wire := wireAny.(*bridge.AnthropicWireRequest)

	contents := toGenaiContents(wire.Messages)
	var cfg *genai.GenerateContentConfig
	if wire.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(wire.System, genai.RoleUser),
		}
	}
	if len(wire.Tools) > 0 {
		if cfg == nil {
			cfg = &genai.GenerateContentConfig{}
		}
		cfg.Tools = toGenaiTools(wire.Tools)
	}

	result, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, classifyVertexError(err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, newClientError("vertex", ErrMalformedResponse, 502, "failed to marshal response", err)
	}
	return &Response{
		Status:         200,
		JSON:           body,
		ContentType:    "application/json",
		OK:             true,
		ActualProvider: "vertex",
	}, nil
}

func toGenaiContents(messages []bridge.AnthropicWireMessage) []*genai.Content {
	var out []*genai.Content
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, b := range m.Content {
			switch b.Kind {
			case models.BlockText:
				parts = append(parts, genai.NewPartFromText(b.Text))
			case models.BlockToolResult:
				parts = append(parts, genai.NewPartFromText(b.ResultContent))
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func toGenaiTools(tools []bridge.AnthropicWireTool) []*genai.Tool {
	var decls []*genai.FunctionDeclaration
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func classifyVertexError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "unsupported model"):
		return newClientError("vertex", ErrModelUnavailable, 503, err.Error(), err)
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "connection"):
		return newClientError("vertex", ErrProviderUnreachable, 503, err.Error(), err)
	default:
		return newClientError("vertex", ErrAPIError, 500, err.Error(), err)
	}
}
