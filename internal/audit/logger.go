package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/lynkr-ai/gateway/internal/observability"
)

// Logger is a structured, privacy-aware audit trail for provider calls,
// tool invocations, and policy decisions: the record an operator reaches
// for when asked "what did the agent actually do for session X." Writes
// are buffered and flushed asynchronously so a slow sink never blocks the
// agent loop.
type Logger struct {
	config     Config
	output     io.WriteCloser
	slogger    *slog.Logger
	db         *sql.DB
	buffer     chan *Event
	wg         sync.WaitGroup
	done       chan struct{}
	eventTypes map[EventType]bool
}

// NewLogger builds a Logger from config. A disabled config returns a
// no-op Logger so every call site can call its methods unconditionally.
func NewLogger(config Config) (*Logger, error) {
	if !config.Enabled {
		return &Logger{config: config}, nil
	}

	if config.SampleRate == 0 {
		config.SampleRate = 1.0
	}
	if config.BufferSize == 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxFieldSize == 0 {
		config.MaxFieldSize = 1024
	}
	if config.Sink == "" {
		config.Sink = SinkLog
	}

	l := &Logger{
		config:     config,
		buffer:     make(chan *Event, config.BufferSize),
		done:       make(chan struct{}),
		eventTypes: eventTypeSet(config.EventTypes),
	}

	if config.Sink == SinkLog || config.Sink == SinkBoth {
		output, err := openOutput(config.Output)
		if err != nil {
			return nil, err
		}
		l.output = output

		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}
		if config.Format == FormatText {
			handler = slog.NewTextHandler(output, opts)
		} else {
			handler = slog.NewJSONHandler(output, opts)
		}
		l.slogger = slog.New(handler).With("component", "audit")
	}

	if config.Sink == SinkSQLite || config.Sink == SinkBoth {
		db, err := openAuditDB(config.DBPath)
		if err != nil {
			return nil, err
		}
		l.db = db
	}

	l.wg.Add(1)
	go l.writeLoop()

	return l, nil
}

func openOutput(output string) (io.WriteCloser, error) {
	switch {
	case output == "stdout" || output == "":
		return nopCloser{os.Stdout}, nil
	case output == "stderr":
		return nopCloser{os.Stderr}, nil
	case strings.HasPrefix(output, "file:"):
		path := strings.TrimPrefix(output, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("audit: open output file: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("audit: unsupported output %q", output)
	}
}

func openAuditDB(path string) (*sql.DB, error) {
	if path == "" {
		path = "audit.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite sink: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			level TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			session_id TEXT,
			provider TEXT,
			model TEXT,
			tool_name TEXT,
			action TEXT NOT NULL,
			details TEXT,
			error TEXT
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: init sqlite schema: %w", err)
	}
	return db, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func eventTypeSet(types []EventType) map[EventType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// Close drains the write buffer and releases any open sink handles.
func (l *Logger) Close() error {
	if !l.config.Enabled {
		return nil
	}
	select {
	case <-l.done:
		return nil
	default:
	}
	close(l.done)
	l.wg.Wait()

	var firstErr error
	if l.output != nil {
		if err := l.output.Close(); err != nil {
			firstErr = err
		}
	}
	if l.db != nil {
		if err := l.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Log records one audit event, subject to sampling and event-type
// filtering. A full buffer falls back to a direct (blocking) write rather
// than dropping the event.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if !l.config.Enabled {
		return
	}
	if l.config.SampleRate < 1.0 && rand.Float64() > l.config.SampleRate {
		return
	}
	if len(l.eventTypes) > 0 && !l.eventTypes[event.Type] {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.TraceID == "" {
		event.TraceID = observability.GetTraceID(ctx)
	}
	if event.SpanID == "" {
		event.SpanID = observability.GetSpanID(ctx)
	}

	select {
	case l.buffer <- event:
	default:
		l.writeEvent(event)
	}
}

// LogToolInvocation records a tool call's name and (privacy-gated) input.
func (l *Logger) LogToolInvocation(ctx context.Context, toolName, toolCallID string, input json.RawMessage, sessionID string) {
	details := map[string]any{"tool_name": toolName, "tool_call_id": toolCallID}
	if l.config.IncludeToolInput && input != nil {
		details["input"] = truncate(string(input), l.config.MaxFieldSize)
	} else if input != nil {
		details["input_hash"] = hashString(string(input))
	}

	l.Log(ctx, &Event{
		Type: EventToolInvocation, Level: LevelInfo, SessionID: sessionID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_invoked", Details: details,
	})
}

// LogToolCompletion records a tool call's outcome and duration.
func (l *Logger) LogToolCompletion(ctx context.Context, toolName, toolCallID string, success bool, output string, duration time.Duration, sessionID string) {
	level := LevelInfo
	if !success {
		level = LevelWarn
	}
	details := map[string]any{
		"tool_name": toolName, "tool_call_id": toolCallID,
		"success": success, "duration_ms": duration.Milliseconds(),
	}
	if l.config.IncludeToolOutput && output != "" {
		details["output"] = truncate(output, l.config.MaxFieldSize)
	} else if output != "" {
		details["output_size"] = len(output)
	}

	l.Log(ctx, &Event{
		Type: EventToolCompletion, Level: level, SessionID: sessionID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_completed", Details: details, Duration: duration,
	})
}

// LogToolDenied records a policy-level tool denial.
func (l *Logger) LogToolDenied(ctx context.Context, toolName, toolCallID, reason, sessionID string) {
	l.Log(ctx, &Event{
		Type: EventToolDenied, Level: LevelWarn, SessionID: sessionID,
		ToolName: toolName, ToolCallID: toolCallID, Action: "tool_denied",
		Details: map[string]any{"reason": reason},
	})
}

// LogProviderError records a failed provider invocation.
func (l *Logger) LogProviderError(ctx context.Context, provider, model, kind, errMsg, sessionID string) {
	l.Log(ctx, &Event{
		Type: EventProviderError, Level: LevelError, SessionID: sessionID,
		Provider: provider, Model: model, Action: "provider_error",
		Error: errMsg, Details: map[string]any{"kind": kind},
	})
}

// LogRoutingDecision records which provider/model/tier a request was
// routed to and why.
func (l *Logger) LogRoutingDecision(ctx context.Context, sessionID, provider, model, tier, method, reason string) {
	l.Log(ctx, &Event{
		Type: EventRoutingDecision, Level: LevelInfo, SessionID: sessionID,
		Provider: provider, Model: model, Action: "routed",
		Details: map[string]any{"tier": tier, "method": method, "reason": reason},
	})
}

// LogSessionCompact records an agent-context compaction pass.
func (l *Logger) LogSessionCompact(ctx context.Context, sessionID string, before, after, tokensSaved int, strategy string) {
	l.Log(ctx, &Event{
		Type: EventSessionCompact, Level: LevelInfo, SessionID: sessionID, Action: "session_compacted",
		Details: map[string]any{
			"messages_before": before, "messages_after": after,
			"tokens_saved": tokensSaved, "strategy": strategy,
		},
	})
}

// LogSessionCreate records a new session being established.
func (l *Logger) LogSessionCreate(ctx context.Context, sessionID string, ephemeral bool) {
	l.Log(ctx, &Event{
		Type: EventSessionCreate, Level: LevelInfo, SessionID: sessionID, Action: "session_created",
		Details: map[string]any{"ephemeral": ephemeral},
	})
}

// LogProviderRequest records a request dispatched to a provider.
func (l *Logger) LogProviderRequest(ctx context.Context, sessionID, provider, model string) {
	l.Log(ctx, &Event{
		Type: EventProviderRequest, Level: LevelDebug, SessionID: sessionID,
		Provider: provider, Model: model, Action: "provider_requested",
	})
}

// LogProviderResponse records a successful provider response.
func (l *Logger) LogProviderResponse(ctx context.Context, sessionID, provider, model string, inputTokens, outputTokens int, duration time.Duration) {
	l.Log(ctx, &Event{
		Type: EventProviderResponse, Level: LevelInfo, SessionID: sessionID,
		Provider: provider, Model: model, Action: "provider_responded", Duration: duration,
		Details: map[string]any{"input_tokens": inputTokens, "output_tokens": outputTokens},
	})
}

// LogGatewayStartup records the gateway coming online.
func (l *Logger) LogGatewayStartup(ctx context.Context, version string) {
	l.Log(ctx, &Event{
		Type: EventGatewayStartup, Level: LevelInfo, Action: "gateway_started",
		Details: map[string]any{"version": version},
	})
}

// LogGatewayShutdown records the gateway shutting down.
func (l *Logger) LogGatewayShutdown(ctx context.Context, reason string) {
	l.Log(ctx, &Event{
		Type: EventGatewayShutdown, Level: LevelInfo, Action: "gateway_stopped",
		Details: map[string]any{"reason": reason},
	})
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-l.buffer:
			l.writeEvent(event)
		case <-ticker.C:
			l.flushBuffer()
		case <-l.done:
			l.flushBuffer()
			return
		}
	}
}

func (l *Logger) flushBuffer() {
	for {
		select {
		case event := <-l.buffer:
			l.writeEvent(event)
		default:
			return
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.slogger != nil {
		l.writeToSlog(event)
	}
	if l.db != nil {
		l.writeToDB(event)
	}
}

func (l *Logger) writeToSlog(event *Event) {
	attrs := []any{
		"audit_id", event.ID, "audit_type", event.Type, "action", event.Action,
		"timestamp", event.Timestamp.Format(time.RFC3339Nano),
	}
	if event.SessionID != "" {
		attrs = append(attrs, "session_id", event.SessionID)
	}
	if event.Provider != "" {
		attrs = append(attrs, "provider", event.Provider)
	}
	if event.Model != "" {
		attrs = append(attrs, "model", event.Model)
	}
	if event.ToolName != "" {
		attrs = append(attrs, "tool_name", event.ToolName)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}
	if event.TraceID != "" {
		attrs = append(attrs, "trace_id", event.TraceID)
	}
	for k, v := range event.Details {
		attrs = append(attrs, "detail_"+k, v)
	}

	level := slogLevel(event.Level)
	l.slogger.Log(context.Background(), level, event.Action, attrs...)
}

func (l *Logger) writeToDB(event *Event) {
	details, _ := json.Marshal(event.Details)
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO audit_events
			(id, type, level, timestamp, session_id, provider, model, tool_name, action, details, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, string(event.Type), string(event.Level), event.Timestamp.UnixNano(),
		event.SessionID, event.Provider, event.Model, event.ToolName, event.Action, string(details), event.Error)
	if err != nil {
		l.logFallback("audit: sqlite sink write failed", "error", err)
	}
}

func (l *Logger) logFallback(msg string, args ...any) {
	if l.slogger != nil {
		l.slogger.Warn(msg, args...)
		return
	}
	slog.Warn(msg, args...)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
