package agentloop

import (
	"context"
	"testing"

	"github.com/lynkr-ai/gateway/internal/policy"
	"github.com/lynkr-ai/gateway/internal/tools"
	"github.com/lynkr-ai/gateway/pkg/models"
)

type fakeProvider struct {
	responses []*models.Response
	errs      []error
	calls     int
}

func (f *fakeProvider) Invoke(ctx context.Context, provider, model string, payload *models.Payload) (*models.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	return f.responses[i], nil
}

type fakeRouter struct{ decision models.RoutingDecision }

func (f fakeRouter) Route(payload *models.Payload, priorToolResults int) models.RoutingDecision {
	return f.decision
}

type fakeExecutor struct{}

func (fakeExecutor) ExecuteOne(ctx context.Context, call models.ToolCall, mode tools.ExecutionMode) tools.Result {
	return tools.Result{Call: call, Executed: true, Result: models.ToolResult{ID: call.ID, Name: call.Name, OK: true, Content: "done"}}
}

type fakePolicy struct{}

func (fakePolicy) Evaluate(toolName string, toolCallsExecuted int, cfg policy.Config) policy.Decision {
	return policy.Decision{Allowed: true}
}

type fakePromptCache struct {
	stored map[string]models.Response
}

func (f *fakePromptCache) Lookup(key string) (models.Response, bool) {
	r, ok := f.stored[key]
	return r, ok
}

func (f *fakePromptCache) Store(key string, response models.Response) {
	if f.stored == nil {
		f.stored = make(map[string]models.Response)
	}
	f.stored[key] = response
}

func baseDeps(provider Provider) Deps {
	return Deps{
		Provider: provider,
		Router:   fakeRouter{decision: models.RoutingDecision{Provider: "anthropic", Model: "claude-test"}},
		Executor: fakeExecutor{},
		Policy:   fakePolicy{},
	}
}

func textOnlyResponse(text string) *models.Response {
	return &models.Response{Content: []models.ContentBlock{{Kind: models.BlockText, Text: text}}, StopReason: models.StopEndTurn}
}

func toolCallResponse(id, name string, args map[string]any) *models.Response {
	return &models.Response{Content: []models.ContentBlock{{Kind: models.BlockToolUse, ToolUseID: id, Name: name, Input: args}}, StopReason: models.StopToolUse}
}

func samplePayload() *models.Payload {
	return &models.Payload{
		Model:    "claude-test",
		Messages: []models.Message{{Role: models.RoleUser, Content: models.Content{Text: "hello"}}},
		Tools:    []models.ToolDefinition{{Name: "Read"}},
	}
}

func TestProcessMessageCompletesOnFinalTextResponse(t *testing.T) {
	deps := baseDeps(&fakeProvider{responses: []*models.Response{textOnlyResponse("the answer is 42")}})
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if result.TerminationReason != models.TerminationCompletion {
		t.Fatalf("TerminationReason = %v", result.TerminationReason)
	}
	if result.Status != 200 {
		t.Errorf("Status = %d", result.Status)
	}
	if responseText(result.Response) != "the answer is 42" {
		t.Errorf("response text = %q", responseText(result.Response))
	}
}

func TestProcessMessageExecutesToolCallsThenCompletes(t *testing.T) {
	provider := &fakeProvider{responses: []*models.Response{
		toolCallResponse("1", "Read", map[string]any{"path": "a.go"}),
		textOnlyResponse("done reading"),
	}}
	deps := baseDeps(provider)
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if result.TerminationReason != models.TerminationCompletion {
		t.Fatalf("TerminationReason = %v", result.TerminationReason)
	}
	if result.ToolCallsExecuted != 1 {
		t.Errorf("ToolCallsExecuted = %d, want 1", result.ToolCallsExecuted)
	}
	if result.Steps != 2 {
		t.Errorf("Steps = %d, want 2", result.Steps)
	}
}

func TestProcessMessageCachesSingleStepNoToolFinalAnswer(t *testing.T) {
	prompt := &fakePromptCache{}
	deps := baseDeps(&fakeProvider{responses: []*models.Response{textOnlyResponse("the answer is 42")}})
	deps.Prompt = prompt

	ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if len(prompt.stored) != 1 {
		t.Fatalf("len(prompt.stored) = %d, want 1 entry cached for a single-step no-tool answer", len(prompt.stored))
	}
}

func TestProcessMessageDoesNotCacheAfterToolExecution(t *testing.T) {
	prompt := &fakePromptCache{}
	provider := &fakeProvider{responses: []*models.Response{
		toolCallResponse("1", "Read", map[string]any{"path": "a.go"}),
		textOnlyResponse("done reading"),
	}}
	deps := baseDeps(provider)
	deps.Prompt = prompt

	ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if len(prompt.stored) != 0 {
		t.Fatalf("len(prompt.stored) = %d, want 0 — a response reached after executing tools must not be cached", len(prompt.stored))
	}
}

func TestProcessMessagePreLoopGuardFiresBeforeAnyProviderCall(t *testing.T) {
	provider := &fakeProvider{responses: []*models.Response{textOnlyResponse("should never be reached")}}
	deps := baseDeps(provider)

	payload := samplePayload()
	payload.Messages = []models.Message{
		{Role: models.RoleUser, Content: models.Content{Text: "go look around"}},
		{Role: models.RoleTool, Content: models.Content{Blocks: []models.ContentBlock{{Kind: models.BlockToolResult, ResultContent: "r1"}}}},
		{Role: models.RoleTool, Content: models.Content{Blocks: []models.ContentBlock{{Kind: models.BlockToolResult, ResultContent: "r2"}}}},
		{Role: models.RoleTool, Content: models.Content{Blocks: []models.ContentBlock{{Kind: models.BlockToolResult, ResultContent: "r3"}}}},
	}

	result := ProcessMessage(context.Background(), deps, payload, nil, Options{})

	if result.TerminationReason != models.TerminationToolLoopGuard {
		t.Fatalf("TerminationReason = %v, want tool_loop_guard", result.TerminationReason)
	}
	if provider.calls != 0 {
		t.Errorf("provider was called %d times, want 0", provider.calls)
	}
}

func TestProcessMessageMaxStepsTerminates(t *testing.T) {
	provider := &fakeProvider{responses: []*models.Response{
		toolCallResponse("1", "Read", map[string]any{"path": "a.go"}),
		toolCallResponse("2", "Read", map[string]any{"path": "b.go"}),
		toolCallResponse("3", "Read", map[string]any{"path": "c.go"}),
	}}
	deps := baseDeps(provider)
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{Limits: Limits{MaxSteps: 2}})

	if result.TerminationReason != models.TerminationMaxSteps {
		t.Fatalf("TerminationReason = %v, want max_steps", result.TerminationReason)
	}
}

func TestProcessMessageToolCallLoopDetected(t *testing.T) {
	same := toolCallResponse("1", "Read", map[string]any{"path": "a.go"})
	provider := &fakeProvider{responses: []*models.Response{same}}
	deps := baseDeps(provider)
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{Limits: Limits{MaxSteps: 20, ToolLoopThreshold: 3}})

	if result.TerminationReason != models.TerminationToolCallLoop {
		t.Fatalf("TerminationReason = %v, want tool_call_loop", result.TerminationReason)
	}
}

func TestProcessMessageProviderErrorTranslatesReason(t *testing.T) {
	provider := &fakeProvider{errs: []error{&ProviderError{Kind: ErrKindUnreachable, Err: errDial}}}
	deps := baseDeps(provider)
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if result.TerminationReason != models.TerminationProviderUnreachable {
		t.Fatalf("TerminationReason = %v, want provider_unreachable", result.TerminationReason)
	}
	if result.Status != 503 {
		t.Errorf("Status = %d, want 503", result.Status)
	}
}

func TestProcessMessageEmptyResponseFallsBackAfterOneRetry(t *testing.T) {
	empty := &models.Response{}
	provider := &fakeProvider{responses: []*models.Response{empty, empty}}
	deps := baseDeps(provider)
	result := ProcessMessage(context.Background(), deps, samplePayload(), nil, Options{})

	if result.TerminationReason != models.TerminationEmptyResponseFallback {
		t.Fatalf("TerminationReason = %v, want empty_response_fallback", result.TerminationReason)
	}
	if provider.calls != 2 {
		t.Errorf("provider was called %d times, want 2 (one retry)", provider.calls)
	}
}

func TestProcessMessageHallucinationGuardDropsUnofferedToolCalls(t *testing.T) {
	provider := &fakeProvider{responses: []*models.Response{
		toolCallResponse("1", "Read", map[string]any{"path": "a.go"}),
		textOnlyResponse("fallback answer"),
	}}
	deps := baseDeps(provider)
	payload := samplePayload()
	payload.Tools = nil // nothing offered, so any tool_use block must be a hallucination

	result := ProcessMessage(context.Background(), deps, payload, nil, Options{})

	if result.TerminationReason != models.TerminationCompletion {
		t.Fatalf("TerminationReason = %v", result.TerminationReason)
	}
	if result.ToolCallsExecuted != 0 {
		t.Errorf("ToolCallsExecuted = %d, want 0 (hallucinated call should be dropped)", result.ToolCallsExecuted)
	}
}

var errDial = dialError("connection refused")

type dialError string

func (e dialError) Error() string { return string(e) }
