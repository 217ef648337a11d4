package context

import (
	gocontext "context"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Settings bundles the per-step configuration for the whole shaping
// pipeline, applied once at step 1 of the agent loop before the first
// provider call.
type Settings struct {
	Compression  CompressionSettings
	Memory       MemorySettings
	PromptOpts   PromptOptimizationSettings
	Budget       BudgetSettings
	Compaction   CompactionSettings
}

// DefaultSettings returns the default configuration for every step.
func DefaultSettings() Settings {
	return Settings{
		Compression: DefaultCompressionSettings(),
		Memory:      DefaultMemorySettings(),
		Budget:      DefaultBudgetSettings(),
		Compaction:  DefaultCompactionSettings(),
	}
}

// Shaper runs the seven-step context-shaping pipeline over a request
// payload.
type Shaper struct {
	Window *ChainResolver
	Memory MemoryStore
}

// NewShaper builds a Shaper. window and memory may be nil; a nil window
// falls back to DefaultContextWindowChars, a nil memory store skips
// injection entirely.
func NewShaper(window *ChainResolver, memory MemoryStore) *Shaper {
	return &Shaper{Window: window, Memory: memory}
}

// Shape runs all seven steps in order and returns the reshaped system
// prompt, tools, and messages. The incoming payload is not mutated.
func (s *Shaper) Shape(ctx gocontext.Context, payload *models.Payload, settings Settings) (system string, tools []models.ToolDefinition, messages []models.Message) {
	contextWindowChars := DefaultContextWindowChars
	if s.Window != nil {
		contextWindowChars = s.Window.ContextWindowChars(payload.Model)
	}

	// 1. History compression.
	messages = CompressHistory(payload.Messages, settings.Compression, contextWindowChars)

	// 2. Memory injection.
	system = InjectMemory(ctx, s.Memory, settings.Memory, payload.System, messages)

	// 3. System-prompt optimisation.
	system, tools = OptimizeSystemPrompt(system, payload.Tools, settings.PromptOpts)

	// 4. Token-budget enforcement.
	messages = EnforceBudget(system, tools, messages, settings.Budget, contextWindowChars)

	// 5. TOON compaction.
	messages = CompactLargeJSON(messages, settings.Compaction)

	// 6. Consecutive-role coalescing.
	messages = CoalesceConsecutiveRoles(messages)

	// 7. Tool-call nudge.
	system = AppendToolCallNudge(system, tools)

	return system, tools, messages
}
