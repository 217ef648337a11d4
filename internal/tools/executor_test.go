package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestExecuteOneNormalizesStringResult(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(ctx context.Context, call models.ToolCall) (any, error) {
		return "hello", nil
	}, Options{})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "echo"}, ModeServer)
	if !res.Executed {
		t.Fatal("expected Executed = true")
	}
	if !res.Result.OK || res.Result.Content != "hello" {
		t.Errorf("unexpected result: %+v", res.Result)
	}
}

func TestExecuteOneNormalizesMapResult(t *testing.T) {
	r := NewRegistry()
	r.Register("status", func(ctx context.Context, call models.ToolCall) (any, error) {
		return map[string]any{"ok": false, "content": "denied", "status": 403}, nil
	}, Options{})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "status"}, ModeServer)
	if res.Result.OK {
		t.Error("expected OK = false")
	}
	if res.Result.Content != "denied" || res.Result.Status != 403 {
		t.Errorf("unexpected result: %+v", res.Result)
	}
}

func TestExecuteOneSkipsNonServerSideInClientMode(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("edit", func(ctx context.Context, call models.ToolCall) (any, error) {
		called = true
		return "done", nil
	}, Options{})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "edit"}, ModeClient)
	if res.Executed {
		t.Error("expected Executed = false in client mode for a non-server-side tool")
	}
	if called {
		t.Error("handler should not have run")
	}
}

func TestExecuteOneAlwaysRunsServerSideTool(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("Task", func(ctx context.Context, call models.ToolCall) (any, error) {
		called = true
		return "spawned", nil
	}, Options{ServerSide: true})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "Task"}, ModePassthrough)
	if !res.Executed || !called {
		t.Error("server-side tool should always execute regardless of mode")
	}
}

func TestExecuteOneTimesOut(t *testing.T) {
	r := NewRegistry()
	r.Register("slow", func(ctx context.Context, call models.ToolCall) (any, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "too slow", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, Options{})
	e := NewExecutor(r, Config{PerToolTimeout: 20 * time.Millisecond})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "slow"}, ModeServer)
	if res.Result.OK {
		t.Error("expected timed-out call to report OK = false")
	}
	if !strings.Contains(res.Result.Content, "timed out") {
		t.Errorf("expected timeout message, got %q", res.Result.Content)
	}
}

func TestExecuteOneTruncatesOutput(t *testing.T) {
	r := NewRegistry()
	r.Register("dump", func(ctx context.Context, call models.ToolCall) (any, error) {
		return strings.Repeat("x", 100), nil
	}, Options{})
	e := NewExecutor(r, Config{MaxOutputBytes: 10})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "dump"}, ModeServer)
	if len(res.Result.Content) != 10 {
		t.Errorf("len(Content) = %d, want 10", len(res.Result.Content))
	}
	if res.Result.Metadata["truncated"] != true {
		t.Errorf("expected metadata.truncated = true, got %v", res.Result.Metadata)
	}
	if res.Result.Metadata["originalLength"] != 100 {
		t.Errorf("expected metadata.originalLength = 100, got %v", res.Result.Metadata["originalLength"])
	}
}

func TestExecuteOneRetriesUpToMaxAttempts(t *testing.T) {
	r := NewRegistry()
	var attempts int32
	r.Register("flaky", func(ctx context.Context, call models.ToolCall) (any, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return nil, errors.New("transient failure")
		}
		return "recovered", nil
	}, Options{MaxAttempts: 5, RetryBackoff: time.Millisecond})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "flaky"}, ModeServer)
	if !res.Result.OK || res.Result.Content != "recovered" {
		t.Errorf("expected eventual success, got %+v", res.Result)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteOneGivesUpAfterMaxAttempts(t *testing.T) {
	r := NewRegistry()
	var attempts int32
	r.Register("alwaysfails", func(ctx context.Context, call models.ToolCall) (any, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("permanent failure")
	}, Options{MaxAttempts: 2})
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "alwaysfails"}, ModeServer)
	if res.Result.OK {
		t.Error("expected final failure")
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestExecuteOneUnknownTool(t *testing.T) {
	r := NewRegistry()
	e := NewExecutor(r, Config{})

	res := e.ExecuteOne(context.Background(), models.ToolCall{ID: "1", Name: "ghost"}, ModeServer)
	if res.Result.OK {
		t.Error("expected OK = false for unknown tool")
	}
}

func TestExecuteBatchPartitionsTaskCallsConcurrently(t *testing.T) {
	r := NewRegistry()
	var active int32
	var maxActive int32
	var mu sync.Mutex
	r.Register("Task", func(ctx context.Context, call models.ToolCall) (any, error) {
		current := atomic.AddInt32(&active, 1)
		mu.Lock()
		if current > maxActive {
			maxActive = current
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return "done", nil
	}, Options{ServerSide: true})
	e := NewExecutor(r, Config{Concurrency: 4})

	calls := []models.ToolCall{
		{ID: "1", Name: "Task"},
		{ID: "2", Name: "Task"},
		{ID: "3", Name: "Task"},
	}
	results := e.ExecuteBatch(context.Background(), calls, ModeServer)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for _, res := range results {
		if !res.Result.OK {
			t.Errorf("unexpected failure for call %s: %+v", res.Call.ID, res.Result)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if maxActive < 2 {
		t.Errorf("maxActive = %d, want at least 2 Task calls running at once", maxActive)
	}
}
