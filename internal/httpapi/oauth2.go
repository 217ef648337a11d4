package httpapi

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// ProviderOAuth2Config is the subset of config.OAuth2Config needed to mint a
// provider bearer token. Declared locally rather than imported from
// internal/config so this package stays free of a config dependency; the
// gateway package adapts config.OAuth2Config into this shape at the one call
// site that needs it.
type ProviderOAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// ResolveProviderToken exchanges provider client credentials for a bearer
// token via the OAuth2 client-credentials grant, for providers that front
// their API behind an OAuth2-protected gateway rather than issuing static
// API keys. The returned token is used exactly like a static API key by the
// provider client constructors.
func ResolveProviderToken(ctx context.Context, cfg ProviderOAuth2Config) (string, error) {
	if cfg.ClientID == "" || cfg.TokenURL == "" {
		return "", fmt.Errorf("httpapi: client_id and token_url are required for oauth2 provider credentials")
	}
	conf := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	token, err := conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("httpapi: resolve oauth2 provider token: %w", err)
	}
	return token.AccessToken, nil
}
