// Package providers implements one HTTP client per named backend (C1).
//
// Each client's only job is to translate the canonical Payload into the
// backend's wire dialect, issue one HTTP call, and return the raw response.
// Clients never interpret tool_use intents — that is the format bridge's
// (internal/bridge) and the agent loop's job.
package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Response is the raw, provider-shaped result of one Invoke call.
type Response struct {
	Status         int
	Headers        http.Header
	JSON           json.RawMessage
	Text           string
	Stream         io.ReadCloser
	ContentType    string
	OK             bool
	ActualProvider string
}

// Options configures a single Invoke call.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Model overrides payload.Model when the router selected a specific one.
	Model string
}

// Client issues one HTTP call to a named backend and returns the raw
// response. Implementations MUST NOT interpret tool calls.
type Client interface {
	// Name returns the stable provider identifier (e.g. "anthropic", "openai").
	Name() string
	// Invoke sends payload to the backend and returns its raw response.
	Invoke(ctx context.Context, payload *models.Payload, opts Options) (*Response, error)
}

// defaultTimeouts: probe 5s, chat 2-5min, pull 5min. Chat calls use
// the longer end by default; callers may override via Options.Timeout.
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultChatTimeout  = 5 * time.Minute
	DefaultPullTimeout  = 5 * time.Minute
)

func timeoutOrDefault(opts Options, def time.Duration) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return def
}
