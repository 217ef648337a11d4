// Package policy evaluates tool calls against per-request caps and
// allow/deny rules, and sanitises tool results and response content before
// they leave the gateway.
package policy

import (
	"strings"
	"sync"
)

// Profile is a pre-configured tool access level, layered under the
// required allow/deny primitive as a convenience for common setups.
type Profile string

const (
	ProfileMinimal   Profile = "minimal"
	ProfileCoding    Profile = "coding"
	ProfileMessaging Profile = "messaging"
	ProfileFull      Profile = "full"
)

// DefaultGroups are the built-in bulk-grant groups referenced in an allow or
// deny list as "group:name".
var DefaultGroups = map[string][]string{
	"group:fs":      {"read", "write", "edit", "bash"},
	"group:web":     {"websearch", "webfetch"},
	"group:runtime": {"bash", "sandbox"},
	"group:memory":  {"memory_search"},
}

// ProfileDefaults is the default allow list for each Profile. ProfileFull
// allows everything not explicitly denied, so it carries no allow list.
var ProfileDefaults = map[Profile][]string{
	ProfileMinimal:   {"status"},
	ProfileCoding:     {"group:fs", "group:runtime", "group:web", "group:memory"},
	ProfileMessaging: {"send_message", "status"},
	ProfileFull:      nil,
}

// Config is one request's tool policy: a profile plus explicit allow/deny
// lists (deny always wins) and the per-request tool-call cap.
type Config struct {
	Profile                Profile
	Allow                  []string
	Deny                   []string
	MaxToolCallsPerRequest int
}

// Code is the machine-readable reason a call was denied, surfaced in the
// synthetic tool_result's error payload.
type Code string

const (
	CodeDenied     Code = "denied"
	CodeCallCapped Code = "max_tool_calls_exceeded"
)

// Decision is the result of Evaluate.
type Decision struct {
	Allowed bool
	Code    Code
	Reason  string
	Status  int
}

// Engine evaluates tool calls against a Config, expanding groups and
// profiles behind a read lock so concurrent requests can share one Engine.
type Engine struct {
	mu     sync.RWMutex
	groups map[string][]string
}

// NewEngine builds an Engine seeded with DefaultGroups; AddGroup can extend
// it with request- or deployment-specific groups.
func NewEngine() *Engine {
	groups := make(map[string][]string, len(DefaultGroups))
	for k, v := range DefaultGroups {
		groups[k] = v
	}
	return &Engine{groups: groups}
}

// AddGroup registers or replaces a custom group.
func (e *Engine) AddGroup(name string, tools []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups[name] = tools
}

// Evaluate decides whether toolName may run given cfg and how many tool
// calls this request has already executed. A cap violation takes
// precedence over an allow/deny decision since a capped request should stop
// regardless of which tool it's about to call.
func (e *Engine) Evaluate(toolName string, toolCallsExecuted int, cfg Config) Decision {
	if cfg.MaxToolCallsPerRequest > 0 && toolCallsExecuted >= cfg.MaxToolCallsPerRequest {
		return Decision{
			Allowed: false,
			Code:    CodeCallCapped,
			Reason:  "maximum tool calls per request exceeded",
			Status:  429,
		}
	}

	name := normalizeTool(toolName)
	deny := e.expand(cfg.Deny)
	if contains(deny, name) {
		return Decision{Allowed: false, Code: CodeDenied, Reason: "tool " + name + " is denied by policy", Status: 403}
	}

	allow := e.expand(cfg.Allow)
	allow = append(allow, e.expand(ProfileDefaults[cfg.Profile])...)

	if cfg.Profile == ProfileFull && len(cfg.Allow) == 0 {
		return Decision{Allowed: true}
	}
	if len(allow) == 0 && cfg.Profile == "" {
		// No profile and no explicit allow list configured: default open,
		// deny list is still honored above.
		return Decision{Allowed: true}
	}
	if contains(allow, name) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Code: CodeDenied, Reason: "tool " + name + " is not in the allow list", Status: 403}
}

// expand resolves "group:*" references in items to their constituent tool
// names, leaving plain tool names untouched.
func (e *Engine) expand(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []string
	for _, item := range items {
		name := normalizeTool(item)
		if tools, ok := e.groups[name]; ok {
			out = append(out, tools...)
			continue
		}
		out = append(out, name)
	}
	return out
}

func normalizeTool(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
