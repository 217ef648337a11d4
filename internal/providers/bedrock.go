package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/lynkr-ai/gateway/internal/bridge"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// bedrockAnthropicVersion is the Bedrock Anthropic-on-Bedrock wire version
// field required on every InvokeModel body.
const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockClient implements Client against AWS Bedrock's Anthropic-compatible
// InvokeModel API. It speaks the Anthropic dialect: the format bridge
// produces the same request shape used for the hosted Anthropic API, with
// the Bedrock wrapper only adding `anthropic_version` and dropping `model`
// (carried instead as the InvokeModel ModelId).
type BedrockClient struct {
	client *bedrockruntime.Client
}

// NewBedrockClient builds a client using the default AWS credential chain
// for the given region.
func NewBedrockClient(ctx context.Context, region string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &BedrockClient{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (c *BedrockClient) Name() string { return "bedrock" }

type bedrockInvokeBody struct {
	AnthropicVersion string                        `json:"anthropic_version"`
	Messages         []bridge.AnthropicWireMessage `json:"messages"`
	System           string                        `json:"system,omitempty"`
	Tools            []bridge.AnthropicWireTool    `json:"tools,omitempty"`
	MaxTokens        int                           `json:"max_tokens"`
	Temperature      *float64                      `json:"temperature,omitempty"`
}

// Invoke implements Client.
func (c *BedrockClient) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	if payload == nil {
		return nil, newClientError("bedrock", ErrAPIError, 400, "payload is nil", nil)
	}
	model := payload.Model
	if opts.Model != "" {
		model = opts.Model
	}
	cloned := payload.Clone()

	wireAny, err := bridge.PrepareRequest(cloned, bridge.DialectAnthropic)
	if err != nil {
		return nil, newClientError("bedrock", ErrAPIError, 400, "failed to prepare request", err)
	}
	wire := wireAny.(*bridge.AnthropicWireRequest)

	body := bedrockInvokeBody{
		AnthropicVersion: bedrockAnthropicVersion,
		Messages:         wire.Messages,
		System:           wire.System,
		Tools:            wire.Tools,
		MaxTokens:        maxOrDefault(wire.MaxTokens, 4096),
		Temperature:      wire.Temperature,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, newClientError("bedrock", ErrAPIError, 400, "failed to marshal request", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        bodyBytes,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	return &Response{
		Status:         200,
		JSON:           out.Body,
		ContentType:    "application/json",
		OK:             true,
		ActualProvider: "bedrock",
	}, nil
}

func classifyBedrockError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case strings.Contains(code, "ResourceNotFound"), strings.Contains(code, "ModelNotReady"),
			strings.Contains(code, "ModelNotAccessible"):
			return newClientError("bedrock", ErrModelUnavailable, 503, apiErr.ErrorMessage(), err)
		case strings.Contains(code, "ThrottlingException"), strings.Contains(code, "ServiceUnavailable"):
			return newClientError("bedrock", ErrProviderUnreachable, 503, apiErr.ErrorMessage(), err)
		default:
			return newClientError("bedrock", ErrAPIError, 500, apiErr.ErrorMessage(), err)
		}
	}
	return newClientError("bedrock", ErrProviderUnreachable, 503, "provider unreachable", err)
}
