// Package agentloop implements the agent loop orchestrator (C10): the
// state machine that interleaves model calls with tool execution,
// recovers from empty responses and intent-narration without a real tool
// call, enforces loop detection and limits, and terminates with one of a
// closed set of reasons.
package agentloop

import (
	"time"

	"github.com/lynkr-ai/gateway/internal/tools"
)

// Limits bound one processMessage invocation. Overridable per-request via
// Options.
type Limits struct {
	MaxSteps               int
	MaxDurationMs           int64
	MaxToolCallsPerRequest int
	ToolLoopThreshold      int // distinct-signature repeat count that triggers tool_call_loop
	ToolResultWarnAt       int // total tool results this turn that triggers the "stop and answer" nudge
}

// DefaultLimits returns the documented defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:               6,
		MaxDurationMs:           120_000,
		MaxToolCallsPerRequest: 12,
		ToolLoopThreshold:      3,
		ToolResultWarnAt:       8,
	}
}

// Options configures one processMessage call, overriding Limits fields
// that are non-zero.
type Options struct {
	Limits
	CompareProviders bool                // also invoke the conversation provider and score both tool-call sets
	Mode             tools.ExecutionMode // defaults to tools.ModeServer when empty
}

func (o Options) resolveMode() tools.ExecutionMode {
	if o.Mode == "" {
		return tools.ModeServer
	}
	return o.Mode
}

func (o Options) resolve() Limits {
	limits := DefaultLimits()
	if o.MaxSteps > 0 {
		limits.MaxSteps = o.MaxSteps
	}
	if o.MaxDurationMs > 0 {
		limits.MaxDurationMs = o.MaxDurationMs
	}
	if o.MaxToolCallsPerRequest > 0 {
		limits.MaxToolCallsPerRequest = o.MaxToolCallsPerRequest
	}
	if o.ToolLoopThreshold > 0 {
		limits.ToolLoopThreshold = o.ToolLoopThreshold
	}
	if o.ToolResultWarnAt > 0 {
		limits.ToolResultWarnAt = o.ToolResultWarnAt
	}
	return limits
}

const (
	emptyResponseRetryCap = 1
	invokeTextRetryCap    = 3
	autoSpawnCap          = 2
	classifierRetryCap    = 2
)

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
