package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lynkr-ai/gateway/internal/agentloop"
	"github.com/lynkr-ai/gateway/internal/audit"
	"github.com/lynkr-ai/gateway/internal/bridge"
	"github.com/lynkr-ai/gateway/internal/observability"
	"github.com/lynkr-ai/gateway/internal/providers"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// providerAdapter implements agentloop.Provider by composing a
// providers.Client lookup, bridge.PrepareRequest's wire translation (done
// inside each Client.Invoke), and bridge.NormalizeResponse's conversion of
// the raw reply back to the canonical Response shape. The agent loop never
// imports internal/providers or internal/bridge directly; this is the one
// seam where the abstract Provider meets the concrete wire.
type providerAdapter struct {
	registry *clientRegistry
	metrics  *observability.Metrics
	usage    *observability.UsageLogger
	audit    *audit.Logger
}

func newProviderAdapter(registry *clientRegistry, metrics *observability.Metrics, usage *observability.UsageLogger, auditLog *audit.Logger) *providerAdapter {
	return &providerAdapter{registry: registry, metrics: metrics, usage: usage, audit: auditLog}
}

// Invoke implements agentloop.Provider.
func (a *providerAdapter) Invoke(ctx context.Context, provider, model string, payload *models.Payload) (*models.Response, error) {
	start := time.Now()
	if a.audit != nil {
		a.audit.LogProviderRequest(ctx, observability.SessionIDFromContext(ctx), provider, model)
	}

	client, ok := a.registry.get(provider)
	if !ok {
		a.recordOutcome(provider, model, "error")
		err := fmt.Errorf("no client configured for provider %q", provider)
		a.recordAuditError(ctx, provider, model, "model_unavailable", err)
		return nil, &agentloop.ProviderError{
			Kind: agentloop.ErrKindModelUnavailable,
			Err:  err,
		}
	}

	raw, err := client.Invoke(ctx, payload, providers.Options{Model: model})
	if err != nil {
		a.recordOutcome(provider, model, "error")
		a.recordAuditError(ctx, provider, model, "client_error", err)
		return nil, translateClientError(err)
	}
	if raw.Stream != nil {
		_ = raw.Stream.Close()
		a.recordOutcome(provider, model, "error")
		streamErr := errors.New("provider returned a streamed body for a non-streaming invocation")
		a.recordAuditError(ctx, provider, model, "unexpected_stream", streamErr)
		return nil, &agentloop.ProviderError{
			Kind: agentloop.ErrKindStreaming,
			Err:  streamErr,
		}
	}
	if !raw.OK || len(raw.JSON) == 0 {
		a.recordOutcome(provider, model, "error")
		err := fmt.Errorf("provider %q returned no JSON body (status %d)", client.Name(), raw.Status)
		a.recordAuditError(ctx, provider, model, "empty_response", err)
		return nil, &agentloop.ProviderError{
			Kind: agentloop.ErrKindNonJSON,
			Err:  err,
		}
	}

	dialect := bridge.DialectForProvider(client.Name())
	resp, err := bridge.NormalizeResponse(raw.JSON, dialect, model)
	if err != nil {
		a.recordOutcome(provider, model, "error")
		a.recordAuditError(ctx, provider, model, "malformed_response", err)
		return nil, &agentloop.ProviderError{Kind: agentloop.ErrKindNonJSON, Err: err}
	}
	resp.Model = model

	duration := time.Since(start)
	if a.metrics != nil {
		a.metrics.RecordLLMRequest(provider, model, "success", duration.Seconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	if a.usage != nil {
		a.usage.RecordTokens(provider, model, int64(resp.Usage.InputTokens), int64(resp.Usage.OutputTokens))
	}
	if a.audit != nil {
		a.audit.LogProviderResponse(ctx, observability.SessionIDFromContext(ctx), provider, model, resp.Usage.InputTokens, resp.Usage.OutputTokens, duration)
	}
	return resp, nil
}

func (a *providerAdapter) recordOutcome(provider, model, status string) {
	if a.metrics == nil {
		return
	}
	a.metrics.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
}

func (a *providerAdapter) recordAuditError(ctx context.Context, provider, model, kind string, err error) {
	if a.audit == nil {
		return
	}
	a.audit.LogProviderError(ctx, observability.SessionIDFromContext(ctx), provider, model, kind, err.Error())
}

// auditSink adapts audit.Logger to agentloop.AuditSink, so the loop can
// record tool decisions without importing internal/audit directly.
type auditSink struct {
	logger *audit.Logger
}

func (s auditSink) ToolInvoked(ctx context.Context, toolName, toolCallID string, input json.RawMessage) {
	s.logger.LogToolInvocation(ctx, toolName, toolCallID, input, observability.SessionIDFromContext(ctx))
}

func (s auditSink) ToolCompleted(ctx context.Context, toolName, toolCallID string, success bool, output string, duration time.Duration) {
	s.logger.LogToolCompletion(ctx, toolName, toolCallID, success, output, duration, observability.SessionIDFromContext(ctx))
}

func (s auditSink) ToolDenied(ctx context.Context, toolName, toolCallID, reason string) {
	s.logger.LogToolDenied(ctx, toolName, toolCallID, reason, observability.SessionIDFromContext(ctx))
}

// translateClientError maps a providers.ClientError's four-way Kind onto
// the agent loop's ProviderErrorKind. An error that isn't a *ClientError at
// all (a context cancellation, a programmer error) passes through as a
// generic api_error so the loop still terminates cleanly.
func translateClientError(err error) error {
	var ce *providers.ClientError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case providers.ErrModelUnavailable:
			return &agentloop.ProviderError{Kind: agentloop.ErrKindModelUnavailable, Err: ce}
		case providers.ErrProviderUnreachable:
			return &agentloop.ProviderError{Kind: agentloop.ErrKindUnreachable, Err: ce}
		case providers.ErrMalformedResponse:
			return &agentloop.ProviderError{Kind: agentloop.ErrKindNonJSON, Err: ce}
		default:
			return &agentloop.ProviderError{Kind: agentloop.ErrKindAPI, Err: ce}
		}
	}
	return &agentloop.ProviderError{Kind: agentloop.ErrKindAPI, Err: err}
}
