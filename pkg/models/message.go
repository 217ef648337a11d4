// Package models provides the provider-agnostic domain types shared across the
// gateway: messages and content blocks, tool calls/results, sessions and turns,
// routing decisions, and progress events.
package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// BlockKind tags the variant of a ContentBlock.
type BlockKind string

const (
	BlockText      BlockKind = "text"
	BlockToolUse   BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
	BlockImage     BlockKind = "image"
	BlockThinking  BlockKind = "thinking"
)

// ContentBlock is a single typed element of a message's content array.
// Exactly the fields relevant to Kind are populated; this models the
// Anthropic-shaped tagged variant directly rather than duck-typing on
// an untyped map, per the "dynamic shape polymorphism" design note.
type ContentBlock struct {
	Kind BlockKind `json:"type"`

	// Text / Thinking
	Text string `json:"text,omitempty"`

	// ToolUse
	ToolUseID string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Input     any    `json:"input,omitempty"`

	// ToolResult
	ToolUseRefID string `json:"tool_use_id,omitempty"`
	ResultContent string `json:"content,omitempty"`
	IsError       bool   `json:"is_error,omitempty"`

	// Image
	ImageSource *ImageSource `json:"source,omitempty"`
}

// ImageSource describes an inline or referenced image payload.
type ImageSource struct {
	Type      string `json:"type"` // "base64" | "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Content is either a plain string or an ordered sequence of ContentBlock.
// Message.Content carries one of Text or Blocks; exactly one is meaningful
// at a time, mirroring the wire shape's `string | block[]` union.
type Content struct {
	Text   string
	Blocks []ContentBlock
}

// IsBlocks reports whether this Content is block-structured.
func (c Content) IsBlocks() bool { return len(c.Blocks) > 0 }

// String renders the content as a flat string, concatenating block text and
// tool narration in order. Used for coalescing, token estimation, and
// complexity classification.
func (c Content) String() string {
	if !c.IsBlocks() {
		return c.Text
	}
	var out string
	for _, b := range c.Blocks {
		switch b.Kind {
		case BlockText, BlockThinking:
			out += b.Text
		case BlockToolResult:
			out += b.ResultContent
		}
	}
	return out
}

// Message is one turn's worth of conversation content, in canonical
// (Anthropic-content-block) form.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// ToolDefinition is the canonical, provider-agnostic tool schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is the canonical in-core representation of a requested tool
// invocation, after arguments have been parsed out of whatever wire shape
// the provider used.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Raw       string         `json:"raw,omitempty"`
}

// ToolResult is the canonical result of executing a ToolCall.
type ToolResult struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	OK       bool           `json:"ok"`
	Status   int            `json:"status,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StopReason is the canonical termination reason for one model turn.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopSequence     StopReason = "stop_sequence"
)

// Usage reports token accounting for one model call.
type Usage struct {
	InputTokens             int `json:"input_tokens"`
	OutputTokens            int `json:"output_tokens"`
	CacheReadInputTokens    int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

// Response is the canonical Anthropic-shaped assistant response, produced by
// the format bridge regardless of which backend actually served the request.
type Response struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // always "message"
	Role       Role           `json:"role"` // always RoleAssistant
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// RequestMode is an internal annotation on a Payload; it never leaves the
// process boundary.
type RequestMode string

const (
	ModeMain          RequestMode = "main"
	ModeSuggestion    RequestMode = "suggestion"
	ModeTopic         RequestMode = "topic"
	ModeToolExecution RequestMode = "tool_execution"
)

// Payload is the inbound Messages-API-shaped request plus internal
// annotations that drive the pipeline but are stripped before any wire send.
type Payload struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	System      string           `json:"system,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  any              `json:"tool_choice,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
	MaxSteps       int   `json:"max_steps,omitempty"`
	MaxDurationMs  int64 `json:"max_duration_ms,omitempty"`

	// Internal annotations; never serialized to a backend.
	RequestMode      RequestMode `json:"-"`
	NoToolInjection  bool        `json:"-"`
	InvokeTextRetry  bool        `json:"-"`
	LetMeSynthetic   bool        `json:"-"`

	// Provider/transport fields stripped by the format bridge before send.
	Provider           string `json:"provider,omitempty"`
	APIType            string `json:"api_type,omitempty"`
	Beta               string `json:"beta,omitempty"`
	Thinking           any    `json:"thinking,omitempty"`
	ContextManagement  any    `json:"context_management,omitempty"`
}

// Clone returns a deep-enough copy of Payload safe to mutate independently
// (messages and tools slices are copied; block contents are shared, since
// ContentBlock is treated as immutable once constructed).
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Messages = append([]Message(nil), p.Messages...)
	cp.Tools = append([]ToolDefinition(nil), p.Tools...)
	return &cp
}

// TurnType classifies a persisted Turn.
type TurnType string

const (
	TurnMessage      TurnType = "message"
	TurnToolRequest  TurnType = "tool_request"
	TurnToolResult   TurnType = "tool_result"
	TurnError        TurnType = "error"
	TurnSystemWarning TurnType = "system_warning"
)

// Turn is one persisted unit of session history.
type Turn struct {
	Role      Role           `json:"role"`
	Type      TurnType       `json:"type"`
	Status    string         `json:"status,omitempty"`
	Content   Content        `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session is a per-conversation record: metadata plus bounded in-memory
// history. Ephemeral sessions were server-minted (the client sent no id)
// and are never persisted.
type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	History   []Turn         `json:"history"`

	Ephemeral        bool   `json:"-"`
	PendingUserInput string `json:"-"`
}

// MaxInMemoryTurns bounds in-memory session history; oldest-first eviction
// applies beyond this cap. Persisted history (when non-ephemeral) remains
// authoritative regardless of this cap.
const MaxInMemoryTurns = 100

// AppendTurn appends a turn to session history, evicting the oldest turn
// once the in-memory cap is exceeded.
func (s *Session) AppendTurn(t Turn) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	s.History = append(s.History, t)
	if len(s.History) > MaxInMemoryTurns {
		s.History = s.History[len(s.History)-MaxInMemoryTurns:]
	}
	s.UpdatedAt = t.Timestamp
}

// Tier is a coarse complexity class used by the smart router.
type Tier string

const (
	TierSimple    Tier = "SIMPLE"
	TierMedium    Tier = "MEDIUM"
	TierComplex   Tier = "COMPLEX"
	TierReasoning Tier = "REASONING"
)

// RoutingMethod identifies which stage of the router pipeline produced a
// RoutingDecision.
type RoutingMethod string

const (
	MethodForcePattern  RoutingMethod = "force_pattern"
	MethodToolThreshold RoutingMethod = "tool_threshold"
	MethodComplexity    RoutingMethod = "complexity"
	MethodCostOptimized RoutingMethod = "cost_optimized"
)

// RoutingDecision is the output of the smart router pipeline for one request.
type RoutingDecision struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model,omitempty"`
	Tier      Tier          `json:"tier"`
	Method    RoutingMethod `json:"method"`
	Reason    string        `json:"reason"`
	Score     float64       `json:"score"`
	Threshold float64       `json:"threshold"`
	Agentic   string        `json:"agentic,omitempty"`
	CostOptimized bool      `json:"cost_optimized,omitempty"`
}

// TerminationReason is the exact, closed set of reasons an agent loop
// invocation can end with.
type TerminationReason string

const (
	TerminationCompletion           TerminationReason = "completion"
	TerminationStreaming            TerminationReason = "streaming"
	TerminationNonJSONResponse      TerminationReason = "non_json_response"
	TerminationAPIError             TerminationReason = "api_error"
	TerminationShutdown             TerminationReason = "shutdown"
	TerminationMaxSteps             TerminationReason = "max_steps"
	TerminationMaxToolCallsExceeded TerminationReason = "max_tool_calls_exceeded"
	TerminationToolCallLoop         TerminationReason = "tool_call_loop"
	TerminationToolLoopGuard        TerminationReason = "tool_loop_guard"
	TerminationEmptyResponseFallback TerminationReason = "empty_response_fallback"
	TerminationProviderUnreachable  TerminationReason = "provider_unreachable"
	TerminationModelUnavailable     TerminationReason = "model_unavailable"
	TerminationMalformedResponse    TerminationReason = "malformed_response"
	TerminationSuggestionModeSkip   TerminationReason = "suggestion_mode_skip"
	TerminationToolUse              TerminationReason = "tool_use"
)
