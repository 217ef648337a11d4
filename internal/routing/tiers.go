package routing

import "github.com/lynkr-ai/gateway/pkg/models"

// TierRange is an inclusive [Min,Max] score band.
type TierRange struct {
	Min, Max float64
}

// TierRanges is the fixed tier map from the 0-100 complexity score.
var TierRanges = map[models.Tier]TierRange{
	models.TierSimple:    {Min: 0, Max: 25},
	models.TierMedium:    {Min: 26, Max: 50},
	models.TierComplex:   {Min: 51, Max: 75},
	models.TierReasoning: {Min: 76, Max: 100},
}

// TierForScore maps a 0-100 complexity score to its tier.
func TierForScore(score float64) models.Tier {
	switch {
	case score <= TierRanges[models.TierSimple].Max:
		return models.TierSimple
	case score <= TierRanges[models.TierMedium].Max:
		return models.TierMedium
	case score <= TierRanges[models.TierComplex].Max:
		return models.TierComplex
	default:
		return models.TierReasoning
	}
}

// ThresholdMode selects the complexity threshold the router reports with
// each decision.
type ThresholdMode string

const (
	ThresholdAggressive   ThresholdMode = "aggressive"
	ThresholdHeuristic    ThresholdMode = "heuristic"
	ThresholdConservative ThresholdMode = "conservative"
)

// Threshold returns the complexity threshold for the given mode. The router
// copies it into RoutingDecision.Threshold (sent as X-Complexity-Threshold);
// it does not affect tier selection, which uses TierRanges alone.
func Threshold(mode ThresholdMode) float64 {
	switch mode {
	case ThresholdAggressive:
		return 60
	case ThresholdConservative:
		return 25
	default:
		return 40
	}
}

// TierTarget is a resolved (provider, model) pair for a tier.
type TierTarget struct {
	Provider string
	Model    string
}

// TierMap resolves each tier to a (provider, model), sourced from
// TIER_{SIMPLE,MEDIUM,COMPLEX,REASONING}=provider:model environment entries
// (see NewTierMap). Cost optimisation takes its candidates from
// Config.CostCandidates, not from the TierMap.
type TierMap struct {
	Targets map[models.Tier]TierTarget
}

// NewTierMap builds a TierMap from a flat map of env-style entries, e.g.
// {"TIER_SIMPLE": "ollama:llama3.1", "TIER_COMPLEX": "anthropic:claude-3-5-sonnet"}.
func NewTierMap(entries map[string]string) TierMap {
	tm := TierMap{Targets: make(map[models.Tier]TierTarget)}
	keyToTier := map[string]models.Tier{
		"TIER_SIMPLE":    models.TierSimple,
		"TIER_MEDIUM":    models.TierMedium,
		"TIER_COMPLEX":   models.TierComplex,
		"TIER_REASONING": models.TierReasoning,
	}
	for key, tier := range keyToTier {
		raw, ok := entries[key]
		if !ok {
			continue
		}
		provider, model := splitProviderModel(raw)
		tm.Targets[tier] = TierTarget{Provider: provider, Model: model}
	}
	return tm
}

// Resolve returns the target for a tier, falling back to the next lower
// tier's target if this tier was never configured, and finally to a
// caller-supplied default.
func (tm TierMap) Resolve(tier models.Tier, fallback TierTarget) TierTarget {
	order := []models.Tier{models.TierReasoning, models.TierComplex, models.TierMedium, models.TierSimple}
	startIdx := 0
	for i, t := range order {
		if t == tier {
			startIdx = i
			break
		}
	}
	for _, t := range order[startIdx:] {
		if target, ok := tm.Targets[t]; ok {
			return target
		}
	}
	return fallback
}

func splitProviderModel(raw string) (provider, model string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
