package doctor

import (
	"context"
	"sort"
	"time"

	"github.com/lynkr-ai/gateway/internal/config"
	"github.com/lynkr-ai/gateway/internal/httpapi"
)

// ProviderProbe captures whether a configured provider's credentials could
// be resolved. It deliberately does not invoke the provider itself — doctor
// runs are expected to be side-effect-free, and a live Invoke call would
// both cost money and require a real conversational payload to shape.
type ProviderProbe struct {
	Provider string
	OK       bool
	Detail   string
}

// ProbeProviderCredentials resolves each configured provider's credential
// (static API key or OAuth2 client-credentials exchange) and reports
// whether resolution succeeded, without issuing any model invocation.
func ProbeProviderCredentials(ctx context.Context, cfg config.LLMConfig) []ProviderProbe {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ProviderProbe, 0, len(names))
	for _, name := range names {
		pc := cfg.Providers[name]
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		probe := probeOne(probeCtx, name, pc)
		cancel()
		results = append(results, probe)
	}
	return results
}

func probeOne(ctx context.Context, name string, pc config.LLMProviderConfig) ProviderProbe {
	if pc.APIKey != "" {
		return ProviderProbe{Provider: name, OK: true, Detail: "static api_key configured"}
	}
	if pc.OAuth2.ClientID != "" {
		if _, err := httpapi.ResolveProviderToken(ctx, httpapi.ProviderOAuth2Config{
			ClientID:     pc.OAuth2.ClientID,
			ClientSecret: pc.OAuth2.ClientSecret,
			TokenURL:     pc.OAuth2.TokenURL,
			Scopes:       pc.OAuth2.Scopes,
		}); err != nil {
			return ProviderProbe{Provider: name, OK: false, Detail: "oauth2 token exchange failed: " + err.Error()}
		}
		return ProviderProbe{Provider: name, OK: true, Detail: "oauth2 client credentials resolved"}
	}
	if name == "ollama" || name == "bedrock" || name == "vertex" {
		return ProviderProbe{Provider: name, OK: true, Detail: "no static credential required"}
	}
	return ProviderProbe{Provider: name, OK: false, Detail: "no api_key or oauth2 client credentials configured"}
}
