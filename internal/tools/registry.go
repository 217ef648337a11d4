// Package tools implements the process-wide tool registry and executor: name
// resolution (including aliases and a lazy category loader), argument
// parsing, JSON-schema validation, and bounded concurrent execution with
// output truncation.
package tools

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Handler is the function a tool registers to actually do work. It receives
// the already-parsed call arguments and returns either a plain string, a
// map carrying {ok, status, content, metadata}, or nil; ExecuteOne normalises
// any of these into the canonical models.ToolResult shape.
type Handler func(ctx context.Context, call models.ToolCall) (any, error)

// Options configures one registered tool.
type Options struct {
	// ServerSide tools (Task, WebSearch, WebFetch) always execute in-process
	// regardless of the request's tool execution mode.
	ServerSide bool

	// MaxOutputBytes caps this tool's result content; 0 uses the executor's
	// default cap.
	MaxOutputBytes int

	// Schema is the tool's input_schema, used both for binding into provider
	// payloads and for argument validation before Handler runs.
	Schema map[string]any

	Description string

	// MaxAttempts is the total number of attempts for a failing call
	// (default 1, no retry). Only meaningful for idempotent tool classes; a tool with
	// side effects should leave this at the default.
	MaxAttempts int

	// RetryBackoff waits between attempts when MaxAttempts > 1.
	RetryBackoff time.Duration
}

// registeredTool pairs a Handler with its Options under its canonical name.
type registeredTool struct {
	name    string
	handler Handler
	opts    Options
}

// Registry is a process-wide map of tool name to handler, with a
// case-insensitive index, an alias table, and an optional lazy category
// loader invoked on first reference to a tool it owns.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool

	// categories lazily registers a whole family of tools (e.g. every
	// browser tool) the first time any tool in that family is referenced,
	// keyed by a representative member name.
	categories     map[string]func(*Registry)
	loadedCategory map[string]bool
}

// NewRegistry builds an empty registry with the default alias table wired in.
func NewRegistry() *Registry {
	return &Registry{
		tools:          make(map[string]*registeredTool),
		categories:     make(map[string]func(*Registry)),
		loadedCategory: make(map[string]bool),
	}
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(name string, handler Handler, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[canonicalKey(name)] = &registeredTool{name: name, handler: handler, opts: opts}
}

// RegisterCategory installs a lazy loader: the first time Get (which
// ExecuteOne and IsServerSide go through) is asked for triggerName (or any
// of its aliases), load is invoked once to
// register the rest of that category's tools before lookup proceeds.
func (r *Registry) RegisterCategory(triggerName string, load func(*Registry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[canonicalKey(triggerName)] = load
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, canonicalKey(name))
}

// Get resolves name through the alias table and returns the registered tool,
// triggering its lazy category loader on first reference if one is pending.
func (r *Registry) Get(name string) (Handler, Options, bool) {
	key := canonicalKey(resolveAlias(name))

	r.mu.RLock()
	_, loaded := r.loadedCategory[key]
	load, hasCategory := r.categories[key]
	r.mu.RUnlock()

	if hasCategory && !loaded {
		r.mu.Lock()
		if !r.loadedCategory[key] {
			load(r)
			r.loadedCategory[key] = true
		}
		r.mu.Unlock()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[key]
	if !ok {
		return nil, Options{}, false
	}
	return t.handler, t.opts, true
}

// IsServerSide reports whether name (after alias resolution) is a server-side
// tool that always executes in-process regardless of execution mode.
func (r *Registry) IsServerSide(name string) bool {
	_, opts, ok := r.Get(name)
	return ok && opts.ServerSide
}

// Definitions returns every registered tool as a canonical ToolDefinition,
// suitable for binding into a Payload sent to a provider.
func (r *Registry) Definitions() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, models.ToolDefinition{
			Name:        t.name,
			Description: t.opts.Description,
			InputSchema: t.opts.Schema,
		})
	}
	return defs
}

func canonicalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
