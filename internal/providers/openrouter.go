package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

const openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient is an OpenAI-dialect client against OpenRouter, which
// multiplexes many upstream models behind one endpoint. It layers a small
// model catalog on top of OpenAIShaped: ModelInfo returns a model's context
// window and per-token price, refreshing the cached listing at most once per
// catalogTTL. Nothing in the gateway calls ModelInfo; routing and context
// shaping do not consult the catalog.
type OpenRouterClient struct {
	*OpenAIShaped
	http    *http.Client
	baseURL string

	catalog     map[string]OpenRouterModelInfo
	catalogAt   time.Time
	catalogTTL  time.Duration
}

// OpenRouterModelInfo is the subset of OpenRouter's /models listing used for
// routing and cost-optimization decisions.
type OpenRouterModelInfo struct {
	ID              string  `json:"id"`
	ContextLength   int     `json:"context_length"`
	PromptPriceUSD  float64 `json:"-"`
	CompletionPriceUSD float64 `json:"-"`
}

type openRouterModelsResponse struct {
	Data []struct {
		ID            string `json:"id"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// NewOpenRouterClient builds a client against apiKey, optionally overriding
// the default base URL (used for OpenRouter-compatible testing proxies).
func NewOpenRouterClient(apiKey, baseURL string) *OpenRouterClient {
	if baseURL == "" {
		baseURL = openRouterDefaultBaseURL
	}
	return &OpenRouterClient{
		OpenAIShaped: NewOpenAIShaped("openrouter", apiKey, baseURL),
		http:         &http.Client{Timeout: DefaultProbeTimeout},
		baseURL:      baseURL,
		catalogTTL:   1 * time.Hour,
	}
}

func (c *OpenRouterClient) Name() string { return "openrouter" }

// Invoke implements Client by delegating to the embedded OpenAI-dialect
// client and reports "openrouter" as the actual provider; the catalog is not
// consulted on this path.
func (c *OpenRouterClient) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	resp, err := c.OpenAIShaped.Invoke(ctx, payload, opts)
	if err != nil {
		return nil, err
	}
	resp.ActualProvider = "openrouter"
	return resp, nil
}

// ModelInfo returns catalog metadata for modelName, refreshing the cached
// catalog from OpenRouter's /models endpoint if it is stale or empty. A
// cache miss after a refresh attempt returns ok=false rather than an error:
// callers treat an unknown model as "use defaults", not a hard failure.
func (c *OpenRouterClient) ModelInfo(ctx context.Context, modelName string) (OpenRouterModelInfo, bool) {
	if time.Since(c.catalogAt) > c.catalogTTL || c.catalog == nil {
		if err := c.refreshCatalog(ctx); err != nil {
			if c.catalog == nil {
				return OpenRouterModelInfo{}, false
			}
		}
	}
	info, ok := c.catalog[modelName]
	return info, ok
}

func (c *OpenRouterClient) refreshCatalog(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.baseURL, "/")+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed openRouterModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}

	catalog := make(map[string]OpenRouterModelInfo, len(parsed.Data))
	for _, m := range parsed.Data {
		catalog[m.ID] = OpenRouterModelInfo{
			ID:                 m.ID,
			ContextLength:      m.ContextLength,
			PromptPriceUSD:     parsePrice(m.Pricing.Prompt),
			CompletionPriceUSD: parsePrice(m.Pricing.Completion),
		}
	}
	c.catalog = catalog
	c.catalogAt = time.Now()
	return nil
}

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := json.Number(s).Float64()
	if err != nil {
		return 0
	}
	return v
}
