package routing

import (
	"github.com/lynkr-ai/gateway/pkg/models"
)

// Config configures the smart router's pipeline.
type Config struct {
	ScoringMode          ScoringMode
	ThresholdMode        ThresholdMode
	OllamaMaxToolsForRouting int
	LocalProviderHasTools    bool
	FallbackOnTooManyTools   bool
	TierMap              TierMap
	DefaultTarget        TierTarget
	CostOptimization     bool
	Prices               *PriceRegistry
	// CostCandidates, when CostOptimization is enabled, lists every
	// (provider, model) pair able to serve a given tier; the router picks
	// the cheapest one that can serve the resolved tier.
	CostCandidates map[models.Tier][]TierTarget
}

// Router implements determineProvider(payload) → RoutingDecision.
type Router struct {
	cfg Config
}

// NewRouter builds a Router from cfg, filling in zero-value defaults.
func NewRouter(cfg Config) *Router {
	if cfg.ScoringMode == "" {
		cfg.ScoringMode = ScoringHeuristic
	}
	if cfg.ThresholdMode == "" {
		cfg.ThresholdMode = ThresholdHeuristic
	}
	if cfg.OllamaMaxToolsForRouting <= 0 {
		cfg.OllamaMaxToolsForRouting = 3
	}
	return &Router{cfg: cfg}
}

// Route runs the full pipeline: force patterns, tool-count threshold,
// complexity scoring, agentic boost, tier resolution, and (optionally)
// cost optimisation.
func (r *Router) Route(payload *models.Payload, priorToolResults int) models.RoutingDecision {
	content := lastUserText(payload)
	toolCount := len(payload.Tools)
	threshold := Threshold(r.cfg.ThresholdMode)

	// 1. Force patterns.
	if local, cloud, ok := ForcePatternMatch(content); ok {
		tier := models.TierSimple
		target := r.cfg.DefaultTarget
		reason := "force_local_pattern"
		if cloud {
			tier = models.TierComplex
			target = r.cfg.TierMap.Resolve(tier, r.cfg.DefaultTarget)
			reason = "force_cloud_pattern"
		}
		_ = local
		return models.RoutingDecision{
			Provider: target.Provider, Model: target.Model, Tier: tier,
			Method: models.MethodForcePattern, Reason: reason, Score: 0, Threshold: threshold,
		}
	}

	// 2. Tool-count threshold.
	if toolCount > 0 && toolCount <= r.cfg.OllamaMaxToolsForRouting && r.cfg.LocalProviderHasTools {
		target := r.cfg.DefaultTarget
		return models.RoutingDecision{
			Provider: target.Provider, Model: target.Model, Tier: models.TierSimple,
			Method: models.MethodToolThreshold, Reason: "tool_count_within_local_threshold",
			Score: 0, Threshold: threshold,
		}
	}
	if toolCount > r.cfg.OllamaMaxToolsForRouting && r.cfg.FallbackOnTooManyTools {
		target := r.cfg.TierMap.Resolve(models.TierComplex, r.cfg.DefaultTarget)
		return models.RoutingDecision{
			Provider: target.Provider, Model: target.Model, Tier: models.TierComplex,
			Method: models.MethodToolThreshold, Reason: "tool_count_exceeds_local_threshold",
			Score: 0, Threshold: threshold,
		}
	}

	// 3. Complexity score.
	var score float64
	switch r.cfg.ScoringMode {
	case ScoringWeighted:
		score = ScoreWeighted(DimensionsFromPayload(payload, content, toolCount, priorToolResults))
	default:
		score = ScoreHeuristic(content, toolCount, len(payload.Messages))
	}

	// 4. Agentic boost.
	agentic := ClassifyAgentic(payload, content, priorToolResults)
	tier := TierForScore(score)
	if minTier := agentic.MinimumTier(); tierRank(minTier) > tierRank(tier) {
		tier = minTier
	}
	if agentic.ForcesCloud() && tierRank(tier) < tierRank(models.TierComplex) {
		tier = models.TierComplex
	}

	// 5. Tier map resolution.
	target := r.cfg.TierMap.Resolve(tier, r.cfg.DefaultTarget)
	method := models.MethodComplexity

	// 6. Cost optimisation.
	costOptimized := false
	if r.cfg.CostOptimization && r.cfg.Prices != nil {
		if candidates, ok := r.cfg.CostCandidates[tier]; ok && len(candidates) > 0 {
			if cheapest, found := r.cfg.Prices.CheapestCandidate(candidates); found {
				target = cheapest
				method = models.MethodCostOptimized
				costOptimized = true
			}
		}
	}

	return models.RoutingDecision{
		Provider: target.Provider, Model: target.Model, Tier: tier, Method: method,
		Reason: "complexity_score", Score: score, Threshold: threshold,
		Agentic: string(agentic), CostOptimized: costOptimized,
	}
}

func lastUserText(payload *models.Payload) string {
	for i := len(payload.Messages) - 1; i >= 0; i-- {
		if payload.Messages[i].Role == models.RoleUser {
			if t := payload.Messages[i].Content.String(); t != "" {
				return t
			}
		}
	}
	return ""
}

var tierOrder = map[models.Tier]int{
	models.TierSimple:    0,
	models.TierMedium:    1,
	models.TierComplex:   2,
	models.TierReasoning: 3,
}

func tierRank(t models.Tier) int { return tierOrder[t] }
