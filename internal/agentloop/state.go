package agentloop

import "time"

// state is the per-invocation bookkeeping threaded through processMessage.
// It never outlives one call and carries no concurrency protection of its
// own; the loop that owns it runs single-threaded except for the tool-call
// fan-out inside one step.
type state struct {
	step              int
	toolCallsExecuted int
	fallbackPerformed bool

	// toolCallHistory counts, by call signature, how many times a call with
	// that signature has been issued this invocation. Used by step 13's loop
	// detection.
	toolCallHistory map[string]int

	loopWarningInjected  bool
	emptyResponseRetried bool
	invokeTextRetries    int
	autoSpawnAttempts    int
	classifierRetries    int
	webFallbackUsed      bool

	start time.Time
}

func newState(now time.Time) *state {
	return &state{
		toolCallHistory: make(map[string]int),
		start:           now,
	}
}

// recordSignature increments the repeat count for sig and reports the new
// count, so callers can compare against Limits.ToolLoopThreshold.
func (s *state) recordSignature(sig string) int {
	s.toolCallHistory[sig]++
	return s.toolCallHistory[sig]
}

func (s *state) elapsedMs() int64 {
	return elapsedMs(s.start)
}
