// Package audit provides structured, privacy-aware audit logging for
// provider calls, tool invocations, and policy decisions made by the agent
// loop.
package audit

import (
	"encoding/json"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventToolInvocation EventType = "tool.invocation"
	EventToolCompletion EventType = "tool.completion"
	EventToolDenied     EventType = "tool.denied"

	EventProviderRequest  EventType = "provider.request"
	EventProviderResponse EventType = "provider.response"
	EventProviderError    EventType = "provider.error"

	EventRoutingDecision EventType = "routing.decision"

	EventSessionCreate  EventType = "session.create"
	EventSessionCompact EventType = "session.compact"

	EventGatewayStartup  EventType = "gateway.startup"
	EventGatewayShutdown EventType = "gateway.shutdown"
)

// Level represents audit log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a single audit log entry.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Level      Level          `json:"level"`
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"session_id,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty"`
	Error      string         `json:"error,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	SpanID     string         `json:"span_id,omitempty"`
}

// ToolInvocationDetails documents a tool call's input for replay/audit.
type ToolInvocationDetails struct {
	ToolName   string          `json:"tool_name"`
	ToolCallID string          `json:"tool_call_id"`
	Input      json.RawMessage `json:"input,omitempty"`
	InputHash  string          `json:"input_hash,omitempty"`
}

// OutputFormat specifies the audit log output format.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Sink specifies where audit events are durably written.
type Sink string

const (
	SinkLog    Sink = "log"
	SinkSQLite Sink = "sqlite"
	SinkBoth   Sink = "both"
)

// Config configures the audit logger.
type Config struct {
	Enabled bool
	Level   Level
	Format  OutputFormat
	Output  string // "stdout", "stderr", or "file:/path/to/file.log"

	Sink   Sink
	DBPath string

	IncludeToolInput  bool
	IncludeToolOutput bool
	MaxFieldSize      int

	EventTypes []EventType
	SampleRate float64

	BufferSize    int
	FlushInterval time.Duration
}

// DefaultConfig returns audit logging disabled by default, with
// privacy-conservative defaults for when it's turned on.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		Level:             LevelInfo,
		Format:            FormatJSON,
		Output:            "stdout",
		Sink:              SinkLog,
		IncludeToolInput:  false,
		IncludeToolOutput: false,
		MaxFieldSize:      1024,
		SampleRate:        1.0,
		BufferSize:        1000,
		FlushInterval:     5 * time.Second,
	}
}
