package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/lynkr-ai/gateway/internal/config"
	"github.com/lynkr-ai/gateway/internal/httpapi"
	"github.com/lynkr-ai/gateway/internal/providers"
)

// clientRegistry holds one providers.Client per configured backend, keyed
// by its lower-cased name. Mirrors the teacher's buildProvider-into-a-map
// wiring: each backend is constructed once at startup from its config
// block and looked up by name at request time.
type clientRegistry struct {
	clients map[string]providers.Client
}

// buildClientRegistry constructs one providers.Client per entry in
// cfg.Providers. A provider whose client cannot be constructed (e.g. a
// missing AWS region) is skipped with its error collected, not fatal to
// the rest of the registry.
func buildClientRegistry(ctx context.Context, cfg config.LLMConfig) (*clientRegistry, []error) {
	reg := &clientRegistry{clients: make(map[string]providers.Client, len(cfg.Providers))}
	var errs []error

	for name, pc := range cfg.Providers {
		client, err := buildClient(ctx, name, pc)
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %q: %w", name, err))
			continue
		}
		reg.clients[strings.ToLower(name)] = client
	}
	return reg, errs
}

func buildClient(ctx context.Context, name string, pc config.LLMProviderConfig) (providers.Client, error) {
	apiKey, err := resolveAPIKey(ctx, pc)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(name) {
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("api key is required")
		}
		return providers.NewAnthropicClient(apiKey, pc.BaseURL), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("api key is required")
		}
		return providers.NewOpenAIShaped("openai", apiKey, pc.BaseURL), nil
	case "openrouter":
		if apiKey == "" {
			return nil, fmt.Errorf("api key is required")
		}
		return providers.NewOpenRouterClient(apiKey, pc.BaseURL), nil
	case "ollama":
		return providers.NewOllamaClient(providers.OllamaConfig{
			Endpoint: pc.BaseURL,
		}), nil
	case "bedrock":
		region := pc.Region
		if region == "" {
			region = "us-east-1"
		}
		return providers.NewBedrockClient(ctx, region)
	case "vertex":
		if pc.Project == "" {
			return nil, fmt.Errorf("project is required")
		}
		region := pc.Region
		if region == "" {
			region = "us-central1"
		}
		return providers.NewVertexClient(ctx, pc.Project, region)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", name)
	}
}

// resolveAPIKey returns pc.APIKey as-is when set, or, when pc.OAuth2 names a
// client-credentials grant instead, exchanges it for a bearer token used
// exactly like a static key. Providers that configure neither return an
// empty string, which the per-provider case in buildClient rejects as
// missing.
func resolveAPIKey(ctx context.Context, pc config.LLMProviderConfig) (string, error) {
	if pc.APIKey != "" {
		return pc.APIKey, nil
	}
	if pc.OAuth2.ClientID == "" {
		return "", nil
	}
	return httpapi.ResolveProviderToken(ctx, httpapi.ProviderOAuth2Config{
		ClientID:     pc.OAuth2.ClientID,
		ClientSecret: pc.OAuth2.ClientSecret,
		TokenURL:     pc.OAuth2.TokenURL,
		Scopes:       pc.OAuth2.Scopes,
	})
}

func (r *clientRegistry) get(name string) (providers.Client, bool) {
	c, ok := r.clients[strings.ToLower(name)]
	return c, ok
}
