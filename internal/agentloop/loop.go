package agentloop

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/lynkr-ai/gateway/internal/cache"
	"github.com/lynkr-ai/gateway/internal/tools"
	"github.com/lynkr-ai/gateway/pkg/models"
)

// ProcessMessage runs the full agent loop for one inbound request: it
// shapes context, repeatedly invokes a model, recovers from degenerate
// model behaviour, executes the tool calls the model asks for, and returns
// once the model produces a final answer or one of the loop's limits or
// guards fires.
//
// payload is never mutated; session, if non-nil, accumulates turns as the
// loop progresses and is persisted through deps.Sessions when the session
// is not ephemeral.
func ProcessMessage(ctx context.Context, deps Deps, payload *models.Payload, session *models.Session, opts Options) *Result {
	limits := opts.resolve()
	mode := opts.resolveMode()

	if deps.Progress != nil {
		deps.Progress.AgentLoopStarted()
	}

	if guardCount := toolResultsSinceLastUserText(payload.Messages); guardCount >= limits.ToolLoopThreshold {
		resp := summarizeForLoopGuard(payload.Model)
		persistAssistantTurn(ctx, deps, session, resp)
		return &Result{Status: statusForReason(models.TerminationToolLoopGuard), Response: resp, TerminationReason: models.TerminationToolLoopGuard}
	}

	working := payload.Clone()
	if session != nil {
		working.Messages = stripPendingInputPrefix(working.Messages, session)
	}

	if deps.Prompt != nil && working.RequestMode != models.ModeToolExecution {
		if cached, ok := deps.Prompt.Lookup(cacheKeyFor(working)); ok {
			persistAssistantTurn(ctx, deps, session, &cached)
			return &Result{Status: 200, Response: &cached, TerminationReason: models.TerminationCompletion}
		}
	}

	st := newState(deps.now())
	var lastRouting models.RoutingDecision

	for {
		if st.elapsedMs() > limits.MaxDurationMs {
			return finalize(ctx, deps, session, nil, models.TerminationMaxSteps, lastRouting, st, "the request took too long to complete")
		}
		if deps.Shutdown != nil && deps.Shutdown.ShuttingDown() {
			return finalize(ctx, deps, session, nil, models.TerminationShutdown, lastRouting, st, "the service is shutting down")
		}

		st.step++
		if deps.Progress != nil {
			deps.Progress.AgentLoopStepStarted(st.step)
		}
		if st.step > limits.MaxSteps {
			return finalize(ctx, deps, session, nil, models.TerminationMaxSteps, lastRouting, st, "the request reached its step limit")
		}

		if st.step == 1 && deps.Shaper != nil {
			system, toolDefs, msgs := deps.Shaper.Shape(ctx, working, deps.ShaperSettings)
			working.System = system
			working.Tools = toolDefs
			working.Messages = msgs
		}

		priorToolResults := countPriorToolResults(working.Messages)
		decision := deps.Router.Route(working, priorToolResults)
		lastRouting = decision
		if opts.CompareProviders {
			lastRouting = compareProviders(ctx, deps, working, decision, priorToolResults)
		}

		if deps.Progress != nil {
			deps.Progress.ModelInvocationStarted(st.step, lastRouting.Provider, lastRouting.Model)
		}
		resp, provErr := deps.Provider.Invoke(ctx, lastRouting.Provider, lastRouting.Model, working)
		if provErr != nil {
			if deps.Progress != nil {
				deps.Progress.Error(st.step, provErr)
			}
			reason, message := translateProviderError(provErr)
			return finalize(ctx, deps, session, nil, reason, lastRouting, st, message)
		}
		if deps.Progress != nil {
			deps.Progress.ModelInvocationCompleted(st.step, lastRouting.Provider, lastRouting.Model)
		}

		calls := collapseAdjacentDuplicates(extractToolCalls(resp))
		if len(calls) > 0 && len(working.Tools) == 0 && !working.NoToolInjection {
			// Hallucination guard: nothing was offered to call and no
			// injection happened, so these can't be real.
			calls = nil
		}
		text := responseText(resp)

		if text == "" && len(calls) == 0 {
			if st.emptyResponseRetried {
				fallback := textResponse(lastRouting.Model, emptyResponseFallbackText, models.StopEndTurn, resp.Usage)
				return finalize(ctx, deps, session, fallback, models.TerminationEmptyResponseFallback, lastRouting, st, "")
			}
			st.emptyResponseRetried = true
			working.Messages = appendUserText(working.Messages, nudgeText)
			continue
		}

		if len(calls) == 0 {
			if names, ok := detectNarration(text); ok {
				if recovered, retry := recoverFromNarration(ctx, deps, working, st, names, text); retry {
					working = recovered
					continue
				}
			}
		}

		if len(calls) == 0 && !st.webFallbackUsed && needsWebFallback(text, working.Tools) {
			st.webFallbackUsed = true
			calls = []models.ToolCall{synthesizeWebFetchCall(text)}
		}

		if len(calls) == 0 {
			// A genuine final answer: no tool calls, no narration gap.
			appendResponseTurn(working, resp)
			cacheIfEligible(deps, working, resp, st)
			return finalize(ctx, deps, session, resp, models.TerminationCompletion, lastRouting, st, "")
		}

		appendResponseTurn(working, resp)

		loopTerminated, warned := checkToolCallLoop(st, calls, limits)
		if loopTerminated {
			return finalize(ctx, deps, session, resp, models.TerminationToolCallLoop, lastRouting, st, "")
		}

		results, execErr := executeToolCalls(ctx, deps, working, calls, mode, limits, st)
		if execErr != nil {
			return finalize(ctx, deps, session, resp, models.TerminationMaxToolCallsExceeded, lastRouting, st, execErr.Error())
		}
		appendToolResultTurn(working, results)
		if warned {
			working.Messages = appendUserText(working.Messages, loopWarningText)
		}
		persistToolTurns(ctx, deps, session, calls, results)
	}
}

// countPriorToolResults counts every tool_result block across the whole
// conversation so far, used by the router's complexity scoring.
func countPriorToolResults(messages []models.Message) int {
	n := 0
	for _, m := range messages {
		n += countBlocks(m.Content, models.BlockToolResult)
	}
	return n
}

// compareProviders additionally invokes the conversation-tier provider and
// keeps whichever of the two candidate tool-call sets scores higher,
// falling back silently to the tool-execution decision if the comparison
// call fails.
func compareProviders(ctx context.Context, deps Deps, payload *models.Payload, toolDecision models.RoutingDecision, priorToolResults int) models.RoutingDecision {
	convoPayload := payload.Clone()
	convoPayload.Tools = nil
	convoDecision := deps.Router.Route(convoPayload, priorToolResults)
	if convoDecision.Provider == toolDecision.Provider && convoDecision.Model == toolDecision.Model {
		return toolDecision
	}

	toolResp, toolErr := deps.Provider.Invoke(ctx, toolDecision.Provider, toolDecision.Model, payload)
	convoResp, convoErr := deps.Provider.Invoke(ctx, convoDecision.Provider, convoDecision.Model, convoPayload)
	if toolErr != nil {
		return convoDecision
	}
	if convoErr != nil {
		return toolDecision
	}

	toolCalls := extractToolCalls(toolResp)
	convoCalls := extractToolCalls(convoResp)
	if scoreToolCalls(convoCalls, false) > scoreToolCalls(toolCalls, false) {
		return convoDecision
	}
	return toolDecision
}

// translateProviderError maps a Provider.Invoke failure onto the
// termination reason and message the boundary should answer with.
func translateProviderError(err error) (models.TerminationReason, string) {
	var perr *ProviderError
	if pe, ok := err.(*ProviderError); ok {
		perr = pe
	}
	if perr == nil {
		return models.TerminationAPIError, err.Error()
	}
	switch perr.Kind {
	case ErrKindUnreachable:
		return models.TerminationProviderUnreachable, "the provider could not be reached"
	case ErrKindModelUnavailable:
		return models.TerminationModelUnavailable, "the requested model is not available"
	case ErrKindStreaming:
		return models.TerminationStreaming, "streaming responses are not supported on this path"
	case ErrKindNonJSON:
		return models.TerminationNonJSONResponse, "the provider returned a non-JSON response"
	default:
		return models.TerminationAPIError, perr.Error()
	}
}

// checkToolCallLoop records every call's signature and reports whether the
// turn should terminate as a tool_call_loop (a signature repeated past
// limits.ToolLoopThreshold) and whether a one-time warning should be
// injected (the signature just reached the threshold for the first time).
func checkToolCallLoop(st *state, calls []models.ToolCall, limits Limits) (terminate, warn bool) {
	for _, c := range calls {
		count := st.recordSignature(callSignature(c))
		switch {
		case count > limits.ToolLoopThreshold:
			terminate = true
		case count == limits.ToolLoopThreshold && !st.loopWarningInjected:
			st.loopWarningInjected = true
			warn = true
		}
	}
	return terminate, warn
}

// executeToolCalls evaluates each call against policy, runs allowed calls
// (Task calls concurrently, everything else sequentially) and returns a
// synthetic denied result for everything policy rejects. Before evaluating
// each call it returns an error if limits.MaxToolCallsPerRequest calls have
// already been executed in this request; the calls a batch lets through
// all run, even when that takes the count past the cap.
func executeToolCalls(ctx context.Context, deps Deps, payload *models.Payload, calls []models.ToolCall, mode tools.ExecutionMode, limits Limits, st *state) ([]tools.Result, error) {
	results := make([]tools.Result, 0, len(calls))
	var toRun []models.ToolCall

	for _, call := range calls {
		if st.toolCallsExecuted >= limits.MaxToolCallsPerRequest {
			return results, errToolCallCapExceeded
		}
		decision := deps.Policy.Evaluate(call.Name, st.toolCallsExecuted, deps.ToolPolicy)
		if !decision.Allowed {
			if deps.Audit != nil {
				deps.Audit.ToolDenied(ctx, call.Name, call.ID, decision.Reason)
			}
			results = append(results, tools.Result{
				Call:     call,
				Executed: true,
				Result: models.ToolResult{
					ID: call.ID, Name: call.Name, OK: false,
					Content:  "tool call denied: " + decision.Reason,
					Metadata: map[string]any{"code": string(decision.Code)},
				},
			})
			st.toolCallsExecuted++
			continue
		}
		toRun = append(toRun, call)
	}

	concurrent, sequential := tools.PartitionConcurrent(toRun)
	for _, call := range sequential {
		results = append(results, runTrackedTool(ctx, deps, call, mode, st))
		st.toolCallsExecuted++
	}
	taskResults := make([]tools.Result, len(concurrent))
	var wg sync.WaitGroup
	for i, call := range concurrent {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			taskResults[i] = runTrackedTool(ctx, deps, call, mode, st)
		}(i, call)
	}
	wg.Wait()
	results = append(results, taskResults...)
	st.toolCallsExecuted += len(concurrent)
	return results, nil
}

// runTrackedTool executes one tool call with progress and audit
// instrumentation wrapped around the actual call.
func runTrackedTool(ctx context.Context, deps Deps, call models.ToolCall, mode tools.ExecutionMode, st *state) tools.Result {
	if deps.Progress != nil {
		deps.Progress.ToolExecutionStarted(st.step, call.Name, call.ID, "")
	}
	if deps.Audit != nil {
		input, _ := json.Marshal(call.Arguments)
		deps.Audit.ToolInvoked(ctx, call.Name, call.ID, input)
	}

	start := time.Now()
	r := deps.Executor.ExecuteOne(ctx, call, mode)
	duration := time.Since(start)

	if deps.Progress != nil {
		deps.Progress.ToolExecutionCompleted(st.step, call.Name, call.ID, r.Result.Content)
	}
	if deps.Audit != nil {
		deps.Audit.ToolCompleted(ctx, call.Name, call.ID, r.Result.OK, r.Result.Content, duration)
	}
	return r
}

var errToolCallCapExceeded = toolCallCapError{}

type toolCallCapError struct{}

func (toolCallCapError) Error() string { return "tool call cap exceeded for this request" }

// appendResponseTurn folds an assistant response's content blocks into the
// working payload so the next provider call sees the full turn, including
// any tool_use blocks it just emitted.
func appendResponseTurn(payload *models.Payload, resp *models.Response) {
	payload.Messages = append(payload.Messages, models.Message{Role: models.RoleAssistant, Content: models.Content{Blocks: resp.Content}})
}

// appendToolResultTurn folds executed tool results back into the working
// payload as a single tool-role turn.
func appendToolResultTurn(payload *models.Payload, results []tools.Result) {
	blocks := make([]models.ContentBlock, 0, len(results))
	for _, r := range results {
		if !r.Executed {
			continue
		}
		blocks = append(blocks, toolResultBlock(r.Result))
	}
	if len(blocks) == 0 {
		return
	}
	payload.Messages = append(payload.Messages, models.Message{Role: models.RoleTool, Content: models.Content{Blocks: blocks}})
}

// stripPendingInputPrefix removes a previously-interrupted user turn's
// already-processed prefix from the newest user message, so a retried
// request does not re-present text the loop already acted on. The session's
// pending-input marker is cleared once consumed.
func stripPendingInputPrefix(messages []models.Message, session *models.Session) []models.Message {
	if session.PendingUserInput == "" {
		return messages
	}
	out := append([]models.Message(nil), messages...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != models.RoleUser {
			continue
		}
		text := out[i].Content.String()
		if strings.HasPrefix(text, session.PendingUserInput) {
			out[i].Content = models.Content{Text: strings.TrimPrefix(text, session.PendingUserInput)}
		}
		break
	}
	session.PendingUserInput = ""
	return out
}

func persistAssistantTurn(ctx context.Context, deps Deps, session *models.Session, resp *models.Response) {
	if deps.Sessions == nil || session == nil || resp == nil {
		return
	}
	_, _ = deps.Sessions.AppendTurnToSession(ctx, session, models.Turn{
		Role: models.RoleAssistant, Type: models.TurnMessage,
		Content: models.Content{Blocks: resp.Content},
	})
}

func persistToolTurns(ctx context.Context, deps Deps, session *models.Session, calls []models.ToolCall, results []tools.Result) {
	if deps.Sessions == nil || session == nil {
		return
	}
	callBlocks := make([]models.ContentBlock, 0, len(calls))
	for _, c := range calls {
		callBlocks = append(callBlocks, toolUseBlock(c))
	}
	_, _ = deps.Sessions.AppendTurnToSession(ctx, session, models.Turn{
		Role: models.RoleAssistant, Type: models.TurnToolRequest,
		Content: models.Content{Blocks: callBlocks},
	})

	resultBlocks := make([]models.ContentBlock, 0, len(results))
	for _, r := range results {
		if r.Executed {
			resultBlocks = append(resultBlocks, toolResultBlock(r.Result))
		}
	}
	_, _ = deps.Sessions.AppendTurnToSession(ctx, session, models.Turn{
		Role: models.RoleTool, Type: models.TurnToolResult,
		Content: models.Content{Blocks: resultBlocks},
	})
}

// cacheIfEligible stores resp in the prompt cache only for the single-step,
// no-tool-calls case: a conversation that executed tools, or took more than
// one step to reach its final answer, is not safe to replay verbatim for a
// differently-shaped follow-up request.
func cacheIfEligible(deps Deps, payload *models.Payload, resp *models.Response, st *state) {
	if deps.Prompt == nil || payload.RequestMode == models.ModeToolExecution {
		return
	}
	if st.step != 1 || st.toolCallsExecuted != 0 {
		return
	}
	deps.Prompt.Store(cacheKeyFor(payload), *resp)
}

func cacheKeyFor(payload *models.Payload) string {
	return cache.Key(payload.Model, payload.Tools, payload.Messages, payload.RequestMode)
}

func finalize(ctx context.Context, deps Deps, session *models.Session, resp *models.Response, reason models.TerminationReason, routing models.RoutingDecision, st *state, message string) *Result {
	if resp == nil {
		resp = errorResult(statusForReason(reason), reason, message).Response
	} else {
		persistAssistantTurn(ctx, deps, session, resp)
	}
	if deps.Progress != nil {
		deps.Progress.AgentLoopCompleted(st.step)
	}
	sanitized := sanitizeResponse(deps, resp)
	return &Result{
		Status:            statusForReason(reason),
		Response:          sanitized,
		TerminationReason: reason,
		Routing:           routing,
		Steps:             st.step,
		ToolCallsExecuted: st.toolCallsExecuted,
	}
}

func sanitizeResponse(deps Deps, resp *models.Response) *models.Response {
	if deps.Sanitizer == nil || resp == nil {
		return resp
	}
	out := *resp
	blocks := make([]models.ContentBlock, len(resp.Content))
	copy(blocks, resp.Content)
	for i, b := range blocks {
		if b.Kind == models.BlockText {
			blocks[i].Text = deps.Sanitizer.Sanitize(b.Text)
		}
	}
	out.Content = blocks
	return &out
}

// recoverFromNarration implements step 10: it first tries to resolve a
// narrated-but-unexecuted tool call by spawning a one-shot subagent, then
// asks the classifier (a "no" ends recovery), and otherwise retries up to
// invokeTextRetryCap times, each retry appending either a note naming the
// tool a "Let me ..." clause implies or, failing that, a plain nudge. It
// returns the updated payload to retry the provider call against, and
// whether the caller should actually retry (false once every recovery
// avenue, including the caller's own retry caps, is exhausted).
func recoverFromNarration(ctx context.Context, deps Deps, payload *models.Payload, st *state, names []string, narrationText string) (*models.Payload, bool) {
	if deps.Subagent != nil && st.autoSpawnAttempts < autoSpawnCap {
		st.autoSpawnAttempts++
		agentType := subagentTypeFor(names[0])
		result, err := deps.Subagent.Spawn(ctx, agentType, narrationText)
		if err == nil {
			payload.Messages = appendAssistantText(payload.Messages, result)
			return payload, true
		}
	}

	if classified, ok := classifyNarration(ctx, deps, st, narrationText); ok && !classified {
		// Classifier says this wasn't really a narrated action; treat
		// the text as a final answer by declining to retry.
		return payload, false
	}

	if st.invokeTextRetries >= invokeTextRetryCap {
		return payload, false
	}
	st.invokeTextRetries++
	if tool, ok := detectActionVerb(narrationText); ok {
		payload.Messages = appendAssistantText(payload.Messages,
			"(synthesizing a "+tool+" call in response to: "+narrationText+")")
		return payload, true
	}
	payload.Messages = appendUserText(payload.Messages, nudgeText)
	return payload, true
}

// classifyNarration runs step 11's LLM classifier, capped at
// classifierRetryCap calls per invocation. ok is false when no classifier
// is configured or the cap is already spent, in which case the caller must
// fall through to its own retry path.
func classifyNarration(ctx context.Context, deps Deps, st *state, text string) (yes, ok bool) {
	if deps.Classifier == nil || st.classifierRetries >= classifierRetryCap {
		return false, false
	}
	st.classifierRetries++
	result, err := deps.Classifier.Classify(ctx, "", "Did the following message commit to taking an action it has not yet taken? Answer YES or NO.\n\n"+text)
	if err != nil {
		return false, false
	}
	return result, true
}
