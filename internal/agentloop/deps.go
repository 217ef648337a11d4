package agentloop

import (
	"context"
	"encoding/json"
	"time"

	agentcontext "github.com/lynkr-ai/gateway/internal/context"
	"github.com/lynkr-ai/gateway/internal/policy"
	"github.com/lynkr-ai/gateway/internal/progress"
	"github.com/lynkr-ai/gateway/internal/tools"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// Provider invokes one named backend and returns its canonical response.
// Implementations wrap internal/providers.Client + internal/bridge
// normalisation so the loop only ever sees the canonical Payload/Response
// shapes.
type Provider interface {
	Invoke(ctx context.Context, provider, model string, payload *models.Payload) (*models.Response, error)
}

// ProviderError classifies a Provider.Invoke failure into the wire-level
// distinctions the loop must translate into specific termination reasons.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string { return e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// ProviderErrorKind distinguishes the wire-level failure classes the
// per-step procedure translates into specific 503 termination reasons.
type ProviderErrorKind string

const (
	ErrKindUnreachable    ProviderErrorKind = "provider_unreachable"
	ErrKindModelUnavailable ProviderErrorKind = "model_unavailable"
	ErrKindStreaming      ProviderErrorKind = "streaming"
	ErrKindNonJSON        ProviderErrorKind = "non_json_response"
	ErrKindAPI            ProviderErrorKind = "api_error"
)

// Router selects a provider/model/tool-execution target for one step.
type Router interface {
	Route(payload *models.Payload, priorToolResults int) models.RoutingDecision
}

// ToolExecutor runs a single tool call against the registered handlers
// under a timeout/concurrency policy.
type ToolExecutor interface {
	ExecuteOne(ctx context.Context, call models.ToolCall, mode tools.ExecutionMode) tools.Result
}

// PolicyEngine gates each tool call before execution.
type PolicyEngine interface {
	Evaluate(toolName string, toolCallsExecuted int, cfg policy.Config) policy.Decision
}

// Sanitizer redacts/limits tool output content before it is persisted or
// returned to the client (C4).
type Sanitizer interface {
	Sanitize(content string) string
}

// PromptCache is the subset of internal/cache.PromptCache the loop needs.
type PromptCache interface {
	Lookup(key string) (models.Response, bool)
	Store(key string, response models.Response)
}

// SessionManager is the subset of internal/sessions.Manager the loop needs.
type SessionManager interface {
	AppendTurnToSession(ctx context.Context, session *models.Session, t models.Turn) (*models.Session, error)
}

// Classifier issues a short auxiliary model call used to detect
// intent-without-action narration. A nil Classifier disables step 11's
// LLM-classifier recovery path (the synthetic-tool-call fallback still
// runs).
type Classifier interface {
	Classify(ctx context.Context, model, prompt string) (yes bool, err error)
}

// SubagentSpawner runs a one-shot subagent task and returns its folded-back
// result text. A nil SubagentSpawner disables step 10's auto-subagent path;
// the loop falls through directly to nudge-retry.
type SubagentSpawner interface {
	Spawn(ctx context.Context, agentType, taskPrompt string) (string, error)
}

// ShutdownFlag reports whether the process is draining. Polled at the start
// of every step and before every provider call.
type ShutdownFlag interface {
	ShuttingDown() bool
}

// AuditSink records tool-call decisions for later inspection. A nil AuditSink
// disables audit recording entirely; the loop's control flow never depends
// on it. Implementations read session correlation out of ctx.
type AuditSink interface {
	ToolInvoked(ctx context.Context, toolName, toolCallID string, input json.RawMessage)
	ToolCompleted(ctx context.Context, toolName, toolCallID string, success bool, output string, duration time.Duration)
	ToolDenied(ctx context.Context, toolName, toolCallID, reason string)
}

// ShutdownFlagFunc adapts a function to ShutdownFlag.
type ShutdownFlagFunc func() bool

func (f ShutdownFlagFunc) ShuttingDown() bool { return f() }

// Deps bundles every collaborator the orchestrator calls out to. Fields
// beyond Provider, Router, Executor, Policy are optional; a nil value
// degrades the corresponding feature gracefully rather than panicking.
type Deps struct {
	Provider   Provider
	Router     Router
	Executor   ToolExecutor
	Policy     PolicyEngine
	Sanitizer  Sanitizer
	Prompt     PromptCache
	Sessions   SessionManager
	Progress   *progress.Emitter
	Classifier Classifier
	Subagent   SubagentSpawner
	Shutdown   ShutdownFlag
	Audit      AuditSink
	Now        func() time.Time

	// Shaper runs the seven-step context-shaping pipeline at step 1. A nil
	// Shaper skips shaping entirely and uses the payload as given.
	Shaper         *agentcontext.Shaper
	ShaperSettings agentcontext.Settings

	// ToolPolicy configures PolicyEngine.Evaluate for this invocation.
	ToolPolicy policy.Config
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
