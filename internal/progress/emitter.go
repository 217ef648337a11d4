package progress

import "time"

// Emitter builds and publishes progress events for one agent-loop
// invocation, stamping every event with the session/agent id it was
// constructed with.
type Emitter struct {
	bus       *Bus
	sessionID string
	agentID   string
}

// NewEmitter builds an Emitter that publishes onto bus. A nil bus makes
// every call a no-op, so the loop can always hold a non-nil Emitter.
func NewEmitter(bus *Bus, sessionID, agentID string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID, agentID: agentID}
}

func (e *Emitter) publish(ev Event) {
	if e.bus == nil {
		return
	}
	ev.SessionID = e.sessionID
	ev.AgentID = e.agentID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.bus.Publish(ev)
}

// AgentLoopStarted marks the beginning of processMessage.
func (e *Emitter) AgentLoopStarted() {
	e.publish(Event{Type: EventAgentLoopStarted})
}

// AgentLoopStepStarted marks the start of one loop step.
func (e *Emitter) AgentLoopStepStarted(step int) {
	e.publish(Event{Type: EventAgentLoopStepStarted, Step: step})
}

// ModelInvocationStarted marks a provider call about to be made.
func (e *Emitter) ModelInvocationStarted(step int, provider, model string) {
	e.publish(Event{Type: EventModelInvocationStarted, Step: step, Provider: provider, Model: model})
}

// ModelInvocationCompleted marks a provider call's return.
func (e *Emitter) ModelInvocationCompleted(step int, provider, model string) {
	e.publish(Event{Type: EventModelInvocationCompleted, Step: step, Provider: provider, Model: model})
}

// ToolExecutionStarted marks a tool call about to run, carrying a truncated
// preview of its request for observability.
func (e *Emitter) ToolExecutionStarted(step int, toolName, toolCallID, requestPreview string) {
	e.publish(Event{
		Type:           EventToolExecutionStarted,
		Step:           step,
		ToolName:       toolName,
		ToolCallID:     toolCallID,
		RequestPreview: Preview(requestPreview),
	})
}

// ToolExecutionCompleted marks a tool call's return, carrying a truncated
// preview of its response.
func (e *Emitter) ToolExecutionCompleted(step int, toolName, toolCallID, responsePreview string) {
	e.publish(Event{
		Type:            EventToolExecutionCompleted,
		Step:            step,
		ToolName:        toolName,
		ToolCallID:      toolCallID,
		ResponsePreview: Preview(responsePreview),
	})
}

// AgentLoopCompleted marks a terminal return from processMessage.
func (e *Emitter) AgentLoopCompleted(step int) {
	e.publish(Event{Type: EventAgentLoopCompleted, Step: step})
}

// Error marks a reified, non-fatal error surfaced during the loop.
func (e *Emitter) Error(step int, err error) {
	if err == nil {
		return
	}
	e.publish(Event{Type: EventError, Step: step, Error: err.Error()})
}
