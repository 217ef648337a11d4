package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// ExecutionMode mirrors the loop's toolExecutionMode: server executes every
// call in-process, client/passthrough return tool_use blocks to the caller
// unexecuted except for server-side tools, which always run in-process.
type ExecutionMode string

const (
	ModeServer      ExecutionMode = "server"
	ModeClient      ExecutionMode = "client"
	ModePassthrough ExecutionMode = "passthrough"
)

// DefaultMaxOutputBytes caps a tool result's content when the tool didn't
// set its own MaxOutputBytes.
const DefaultMaxOutputBytes = 16 * 1024

// DefaultPerToolTimeout bounds one tool invocation when the caller doesn't
// override it.
const DefaultPerToolTimeout = 30 * time.Second

// DefaultConcurrency bounds how many tool calls within one turn run at once.
const DefaultConcurrency = 4

// Config tunes the Executor.
type Config struct {
	Concurrency    int
	PerToolTimeout time.Duration
	MaxOutputBytes int
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PerToolTimeout <= 0 {
		c.PerToolTimeout = DefaultPerToolTimeout
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return c
}

// Executor dispatches resolved tool calls against a Registry, normalising
// results to the canonical shape, truncating oversized output, and timing
// every invocation.
type Executor struct {
	registry *Registry
	config   Config
}

// NewExecutor builds an Executor against registry with the given Config
// (zero fields fall back to package defaults).
func NewExecutor(registry *Registry, config Config) *Executor {
	return &Executor{registry: registry, config: config.withDefaults()}
}

// Result is one call's outcome plus the bookkeeping the loop needs: how long
// it took and whether the call was actually executed (false in
// client/passthrough mode for a non-server-side tool).
type Result struct {
	Call     models.ToolCall
	Result   models.ToolResult
	Executed bool
	Duration time.Duration
}

// ShouldExecute reports whether call should run in-process given mode:
// server-side tools always do; otherwise only in ModeServer.
func (e *Executor) ShouldExecute(call models.ToolCall, mode ExecutionMode) bool {
	if e.registry.IsServerSide(call.Name) {
		return true
	}
	return mode == ModeServer
}

// ExecuteOne runs a single call and returns its normalised Result. If mode
// says the call should not execute (hybrid routing), Executed is false and
// Result is the zero value — the caller is responsible for returning the
// tool_use block to the client unexecuted.
func (e *Executor) ExecuteOne(ctx context.Context, call models.ToolCall, mode ExecutionMode) Result {
	if !e.ShouldExecute(call, mode) {
		return Result{Call: call, Executed: false}
	}

	start := time.Now()
	handler, opts, ok := e.registry.Get(call.Name)
	if !ok {
		return Result{
			Call: call, Executed: true, Duration: time.Since(start),
			Result: models.ToolResult{ID: call.ID, Name: call.Name, OK: false,
				Content: fmt.Sprintf("tool not found: %s", call.Name)},
		}
	}

	if err := ValidateArguments(opts.Schema, call.Arguments); err != nil {
		return Result{
			Call: call, Executed: true, Duration: time.Since(start),
			Result: models.ToolResult{ID: call.ID, Name: call.Name, OK: false,
				Content: err.Error()},
		}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var result models.ToolResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		toolCtx, cancel := context.WithTimeout(ctx, e.config.PerToolTimeout)
		raw, err := runWithTimeout(toolCtx, handler, call)
		ctxErr := toolCtx.Err()
		cancel()

		result = normalizeResult(call, raw, err, ctxErr)
		if result.OK || attempt == maxAttempts {
			break
		}
		if opts.RetryBackoff > 0 {
			select {
			case <-time.After(opts.RetryBackoff):
			case <-ctx.Done():
				result = models.ToolResult{ID: call.ID, Name: call.Name, OK: false, Content: "tool execution canceled"}
				break
			}
		}
	}
	duration := time.Since(start)

	maxBytes := opts.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = e.config.MaxOutputBytes
	}
	result = truncateResult(result, maxBytes)

	return Result{Call: call, Result: result, Executed: true, Duration: duration}
}

// runWithTimeout isolates the handler call in its own goroutine so a hung
// handler cannot block past ctx's deadline; the handler's own result is
// simply discarded if it straggles in after the timeout fires.
func runWithTimeout(ctx context.Context, handler Handler, call models.ToolCall) (any, error) {
	type outcome struct {
		val any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		val, err := handler(ctx, call)
		select {
		case done <- outcome{val, err}:
		default:
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}

// normalizeResult maps a handler's string | {ok,status,content,metadata} |
// nil return (or an error, or a timed-out context) onto the canonical
// models.ToolResult shape.
func normalizeResult(call models.ToolCall, raw any, err error, ctxErr error) models.ToolResult {
	if ctxErr != nil {
		content := "tool execution canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			content = "tool execution timed out"
		}
		return models.ToolResult{ID: call.ID, Name: call.Name, OK: false, Content: content}
	}
	if err != nil {
		return models.ToolResult{ID: call.ID, Name: call.Name, OK: false, Content: err.Error()}
	}

	switch v := raw.(type) {
	case nil:
		return models.ToolResult{ID: call.ID, Name: call.Name, OK: true, Content: ""}
	case string:
		return models.ToolResult{ID: call.ID, Name: call.Name, OK: true, Content: v}
	case models.ToolResult:
		if v.ID == "" {
			v.ID = call.ID
		}
		if v.Name == "" {
			v.Name = call.Name
		}
		return v
	case map[string]any:
		result := models.ToolResult{ID: call.ID, Name: call.Name, OK: true}
		if ok, has := v["ok"].(bool); has {
			result.OK = ok
		}
		if status, has := v["status"].(int); has {
			result.Status = status
		} else if statusF, has := v["status"].(float64); has {
			result.Status = int(statusF)
		}
		if content, has := v["content"].(string); has {
			result.Content = content
		}
		if meta, has := v["metadata"].(map[string]any); has {
			result.Metadata = meta
		}
		return result
	default:
		return models.ToolResult{ID: call.ID, Name: call.Name, OK: false,
			Content: fmt.Sprintf("unrecognised tool result shape %T", raw)}
	}
}

// truncateResult caps result.Content at maxBytes, recording the original and
// truncated lengths in metadata so the loop can reason about the cut.
func truncateResult(result models.ToolResult, maxBytes int) models.ToolResult {
	if maxBytes <= 0 || len(result.Content) <= maxBytes {
		return result
	}
	originalLength := len(result.Content)
	truncated := result.Content[:maxBytes]
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["truncated"] = true
	result.Metadata["originalLength"] = originalLength
	result.Metadata["truncatedLength"] = maxBytes
	result.Content = truncated
	return result
}

// PartitionConcurrent splits calls into the subset that may run concurrently
// (Task calls, which fan out like a Promise.all) and the remainder, which
// must run sequentially to preserve side-effect ordering.
func PartitionConcurrent(calls []models.ToolCall) (concurrent, sequential []models.ToolCall) {
	for _, c := range calls {
		if canonicalKey(resolveAlias(c.Name)) == "task" {
			concurrent = append(concurrent, c)
			continue
		}
		sequential = append(sequential, c)
	}
	return concurrent, sequential
}

// ExecuteBatch runs sequential calls in order and concurrent calls (Task
// calls) fanned out with a bounded semaphore, then returns all results in
// the same order calls was given in.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []models.ToolCall, mode ExecutionMode) []Result {
	concurrentCalls, sequentialCalls := PartitionConcurrent(calls)

	indexOf := make(map[string]int, len(calls))
	for i, c := range calls {
		indexOf[c.ID] = i
	}
	results := make([]Result, len(calls))

	for _, c := range sequentialCalls {
		results[indexOf[c.ID]] = e.ExecuteOne(ctx, c, mode)
	}

	if len(concurrentCalls) > 0 {
		sem := make(chan struct{}, e.config.Concurrency)
		var wg sync.WaitGroup
		for _, c := range concurrentCalls {
			wg.Add(1)
			sem <- struct{}{}
			go func(call models.ToolCall) {
				defer wg.Done()
				defer func() { <-sem }()
				results[indexOf[call.ID]] = e.ExecuteOne(ctx, call, mode)
			}(c)
		}
		wg.Wait()
	}

	return results
}
