package routing

import (
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func buildPayload(text string, tools []models.ToolDefinition) *models.Payload {
	return &models.Payload{
		Messages: []models.Message{{Role: models.RoleUser, Content: models.Content{Text: text}}},
		Tools:    tools,
	}
}

func TestRouteForceLocalGreeting(t *testing.T) {
	r := NewRouter(Config{DefaultTarget: TierTarget{Provider: "ollama", Model: "llama3.1"}})
	d := r.Route(buildPayload("hey!", nil), 0)
	if d.Method != models.MethodForcePattern || d.Provider != "ollama" {
		t.Errorf("Route(greeting) = %+v", d)
	}
}

func TestRouteForceCloudSecurityAudit(t *testing.T) {
	r := NewRouter(Config{
		DefaultTarget: TierTarget{Provider: "ollama", Model: "llama3.1"},
		TierMap:       NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}),
	})
	d := r.Route(buildPayload("please do a full security audit", nil), 0)
	if d.Method != models.MethodForcePattern || d.Provider != "anthropic" {
		t.Errorf("Route(security audit) = %+v", d)
	}
}

func TestRouteToolCountWithinLocalThreshold(t *testing.T) {
	r := NewRouter(Config{
		OllamaMaxToolsForRouting: 3,
		LocalProviderHasTools:    true,
		DefaultTarget:            TierTarget{Provider: "ollama", Model: "llama3.1"},
	})
	tools := []models.ToolDefinition{{Name: "read"}, {Name: "grep"}}
	d := r.Route(buildPayload("look at these files please and tell me what's going on", tools), 0)
	if d.Method != models.MethodToolThreshold || d.Tier != models.TierSimple {
		t.Errorf("Route(few tools) = %+v", d)
	}
}

func TestRouteToolCountExceedsThresholdFallsBackToCloud(t *testing.T) {
	r := NewRouter(Config{
		OllamaMaxToolsForRouting: 2,
		FallbackOnTooManyTools:   true,
		DefaultTarget:            TierTarget{Provider: "ollama", Model: "llama3.1"},
		TierMap:                  NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}),
	})
	tools := []models.ToolDefinition{{Name: "read"}, {Name: "grep"}, {Name: "bash"}, {Name: "edit"}}
	d := r.Route(buildPayload("coordinate across many tools", tools), 0)
	if d.Method != models.MethodToolThreshold || d.Provider != "anthropic" {
		t.Errorf("Route(many tools) = %+v", d)
	}
}

func TestRouteComplexityFallsThroughToTierMap(t *testing.T) {
	r := NewRouter(Config{
		DefaultTarget: TierTarget{Provider: "ollama", Model: "llama3.1"},
		TierMap:       NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}),
	})
	content := "```go\nfunc main(){}\n```\n```go\nfunc b(){}\n```\n```go\nfunc c(){}\n```\nanalyze this"
	d := r.Route(buildPayload(content, nil), 0)
	if d.Method != models.MethodComplexity {
		t.Errorf("Route(complex prompt) = %+v", d)
	}
}

func TestRouteAutonomousAgenticForcesComplexTier(t *testing.T) {
	r := NewRouter(Config{
		DefaultTarget: TierTarget{Provider: "ollama", Model: "llama3.1"},
		TierMap:       NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}),
	})
	tools := []models.ToolDefinition{{Name: "bash"}}
	d := r.Route(buildPayload("keep going", tools), 5)
	if tierRank(d.Tier) < tierRank(models.TierComplex) {
		t.Errorf("expected autonomous classification to force at least COMPLEX tier, got %+v", d)
	}
	if d.Agentic != string(ClassAutonomous) {
		t.Errorf("expected Agentic=AUTONOMOUS, got %+v", d)
	}
}

func TestRouteCostOptimizationPicksCheaperCandidate(t *testing.T) {
	prices := NewPriceRegistry("", 0)
	r := NewRouter(Config{
		DefaultTarget:    TierTarget{Provider: "ollama", Model: "llama3.1"},
		TierMap:          NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}),
		CostOptimization: true,
		Prices:           prices,
		CostCandidates: map[models.Tier][]TierTarget{
			models.TierComplex: {
				{Provider: "anthropic", Model: "claude-3-5-sonnet"},
				{Provider: "openai", Model: "gpt-4o-mini"},
			},
		},
	})
	content := "```go\nfunc main(){}\n```\n```go\nfunc b(){}\n```\n```go\nfunc c(){}\n```\nanalyze this"
	d := r.Route(buildPayload(content, nil), 0)
	if d.Method != models.MethodCostOptimized || d.Provider != "openai" {
		t.Errorf("Route(cost optimized) = %+v", d)
	}
}
