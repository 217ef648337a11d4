package routing

import (
	"testing"

	"github.com/lynkr-ai/gateway/pkg/models"
)

func TestTierForScoreBoundaries(t *testing.T) {
	cases := map[float64]models.Tier{
		0:   models.TierSimple,
		25:  models.TierSimple,
		26:  models.TierMedium,
		50:  models.TierMedium,
		51:  models.TierComplex,
		75:  models.TierComplex,
		76:  models.TierReasoning,
		100: models.TierReasoning,
	}
	for score, want := range cases {
		if got := TierForScore(score); got != want {
			t.Errorf("TierForScore(%v) = %v, want %v", score, got, want)
		}
	}
}

func TestThresholdModes(t *testing.T) {
	if Threshold(ThresholdAggressive) != 60 {
		t.Error("aggressive threshold should be 60")
	}
	if Threshold(ThresholdConservative) != 25 {
		t.Error("conservative threshold should be 25")
	}
	if Threshold(ThresholdHeuristic) != 40 {
		t.Error("heuristic threshold should be 40")
	}
}

func TestTierMapResolveFallsBackToLowerTier(t *testing.T) {
	tm := NewTierMap(map[string]string{"TIER_SIMPLE": "ollama:llama3.1"})
	target := tm.Resolve(models.TierComplex, TierTarget{Provider: "default", Model: "default-model"})
	if target.Provider != "ollama" {
		t.Errorf("expected fallback to TIER_SIMPLE's provider, got %+v", target)
	}
}

func TestTierMapResolveUsesDefaultWhenNothingConfigured(t *testing.T) {
	tm := NewTierMap(nil)
	fallback := TierTarget{Provider: "default", Model: "default-model"}
	if got := tm.Resolve(models.TierReasoning, fallback); got != fallback {
		t.Errorf("TierMap.Resolve = %+v, want fallback %+v", got, fallback)
	}
}

func TestNewTierMapParsesProviderModel(t *testing.T) {
	tm := NewTierMap(map[string]string{"TIER_COMPLEX": "anthropic:claude-3-5-sonnet"})
	target := tm.Targets[models.TierComplex]
	if target.Provider != "anthropic" || target.Model != "claude-3-5-sonnet" {
		t.Errorf("NewTierMap parsed = %+v", target)
	}
}
