package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	Endpoint        string
	CloudEndpoint   string
	CloudAPIKey     string
	ToolModel       string // when set, the canonical tool set is injected into payloads that carry no tools
	StartupTimeout  time.Duration
	HTTPClient      *http.Client
}

// OllamaClient routes between a local Ollama server and an optional cloud
// endpoint, probes once for Anthropic-compatible support, injects a
// canonical tool set when none is bound but a tool model is configured, and
// can wait at startup for a model to finish loading.
type OllamaClient struct {
	cfg   OllamaConfig
	local *OpenAIShaped
	cloud *OpenAIShaped
	http  *http.Client

	probeOnce   sync.Once
	anthropicOK bool
}

// NewOllamaClient builds an Ollama client from cfg.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &OllamaClient{cfg: cfg, http: httpClient}
	c.local = NewOpenAIShaped("ollama", "", strings.TrimRight(cfg.Endpoint, "/")+"/v1")
	if cfg.CloudEndpoint != "" {
		c.cloud = NewOpenAIShaped("ollama", cfg.CloudAPIKey, strings.TrimRight(cfg.CloudEndpoint, "/")+"/v1")
	}
	return c
}

func (c *OllamaClient) Name() string { return "ollama" }

// isCloudModel reports whether modelName carries the "-cloud"/":cloud"
// routing suffix.
func isCloudModel(modelName string) bool {
	return strings.HasSuffix(modelName, "-cloud") || strings.HasSuffix(modelName, ":cloud")
}

// Invoke implements Client. Cloud-tagged models route to the cloud endpoint
// with Authorization only in that case; when the payload carries
// no tools but a dedicated tool model is configured, the canonical tool set
// is injected.
func (c *OllamaClient) Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error) {
	model := payload.Model
	if opts.Model != "" {
		model = opts.Model
	}

	cloned := payload.Clone()
	cloned.Model = model
	if len(cloned.Tools) == 0 && c.cfg.ToolModel != "" {
		cloned.Tools = canonicalToolSet()
	}

	target := c.local
	if isCloudModel(model) {
		if c.cloud == nil {
			return nil, newClientError("ollama", ErrModelUnavailable, 503,
				fmt.Sprintf("model %q requires a cloud endpoint, none configured", model), nil)
		}
		target = c.cloud
	}

	resp, err := target.Invoke(ctx, cloned, opts)
	if err != nil {
		var ce *ClientError
		if asClientError(err, &ce) && strings.Contains(strings.ToLower(ce.Message), "not found") {
			ce.Kind = ErrModelUnavailable
			return nil, ce
		}
		return nil, err
	}
	resp.ActualProvider = "ollama"
	return resp, nil
}

func asClientError(err error, out **ClientError) bool {
	ce, ok := err.(*ClientError)
	if ok {
		*out = ce
	}
	return ok
}

// canonicalToolSet is the default tool set injected when a conversation has
// no tools bound but a dedicated tool model is configured.
func canonicalToolSet() []models.ToolDefinition {
	return []models.ToolDefinition{
		{Name: "Read", Description: "Read a file from the workspace", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"file_path": map[string]any{"type": "string"}},
			"required":   []any{"file_path"},
		}},
		{Name: "Bash", Description: "Run a shell command", InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"command": map[string]any{"type": "string"}},
			"required":   []any{"command"},
		}},
	}
}

// ProbeAnthropicCompatible probes once (per process) whether the local
// Ollama server also exposes an Anthropic-compatible /v1/messages route,
// caching the result with a single-writer-once probe.
func (c *OllamaClient) ProbeAnthropicCompatible(ctx context.Context) bool {
	c.probeOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(probeCtx, http.MethodPost,
			strings.TrimRight(c.cfg.Endpoint, "/")+"/v1/messages", strings.NewReader(`{}`))
		if err != nil {
			return
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		// Any non-404 means the route exists (a malformed body still routes).
		c.anthropicOK = resp.StatusCode != http.StatusNotFound
	})
	return c.anthropicOK
}

// modelStatus is the subset of /api/ps / /api/tags fields needed to decide
// whether a model has finished loading.
type modelStatus struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// WaitForModelLoaded polls /api/ps then /api/tags until model appears
// loaded, up to cfg.StartupTimeout. Callers typically invoke this
// once at process startup, not per-request.
func (c *OllamaClient) WaitForModelLoaded(ctx context.Context, model string) error {
	timeout := c.cfg.StartupTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.modelReported(ctx, "/api/ps", model) || c.modelReported(ctx, "/api/tags", model) {
			return nil
		}
		if time.Now().After(deadline) {
			return newClientError("ollama", ErrModelUnavailable, 503,
				fmt.Sprintf("model %q did not become ready within %s", model, timeout), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *OllamaClient) modelReported(ctx context.Context, path, model string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.Endpoint, "/")+path, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	var status modelStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	for _, m := range status.Models {
		if m.Name == model || strings.HasPrefix(m.Name, model+":") {
			return true
		}
	}
	return false
}
