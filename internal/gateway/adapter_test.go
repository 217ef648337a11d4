package gateway

import (
	"context"
	"testing"

	"github.com/lynkr-ai/gateway/internal/agentloop"
	"github.com/lynkr-ai/gateway/internal/providers"
	"github.com/lynkr-ai/gateway/pkg/models"
)

type fakeClient struct {
	name string
	resp *providers.Response
	err  error
}

func (f *fakeClient) Name() string { return f.name }
func (f *fakeClient) Invoke(ctx context.Context, payload *models.Payload, opts providers.Options) (*providers.Response, error) {
	return f.resp, f.err
}

func TestProviderAdapterNormalizesAnthropicJSON(t *testing.T) {
	body := []byte(`{"id":"msg_1","model":"claude-test","role":"assistant","content":[{"type":"text","text":"hi"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`)
	reg := &clientRegistry{clients: map[string]providers.Client{
		"anthropic": &fakeClient{name: "anthropic", resp: &providers.Response{OK: true, JSON: body}},
	}}
	adapter := newProviderAdapter(reg, nil, nil, nil)

	resp, err := adapter.Invoke(context.Background(), "anthropic", "claude-test", &models.Payload{Model: "claude-test"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Model != "claude-test" {
		t.Errorf("Model = %q", resp.Model)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "hi" {
		t.Errorf("Content = %+v", resp.Content)
	}
}

func TestProviderAdapterUnknownProviderIsModelUnavailable(t *testing.T) {
	reg := &clientRegistry{clients: map[string]providers.Client{}}
	adapter := newProviderAdapter(reg, nil, nil, nil)

	_, err := adapter.Invoke(context.Background(), "missing", "m", &models.Payload{})
	var pe *agentloop.ProviderError
	if err == nil {
		t.Fatal("expected an error")
	}
	if !asProviderError(err, &pe) || pe.Kind != agentloop.ErrKindModelUnavailable {
		t.Errorf("err = %v", err)
	}
}

func TestProviderAdapterClientErrorTranslatesKind(t *testing.T) {
	reg := &clientRegistry{clients: map[string]providers.Client{
		"ollama": &fakeClient{name: "ollama", err: &providers.ClientError{Kind: providers.ErrProviderUnreachable, Provider: "ollama", Message: "dial tcp: connection refused"}},
	}}
	adapter := newProviderAdapter(reg, nil, nil, nil)

	_, err := adapter.Invoke(context.Background(), "ollama", "llama3", &models.Payload{})
	var pe *agentloop.ProviderError
	if !asProviderError(err, &pe) || pe.Kind != agentloop.ErrKindUnreachable {
		t.Errorf("err = %v", err)
	}
}

func asProviderError(err error, out **agentloop.ProviderError) bool {
	pe, ok := err.(*agentloop.ProviderError)
	if ok {
		*out = pe
	}
	return ok
}
