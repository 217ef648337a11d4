package routing

import (
	"regexp"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// ScoringMode selects which complexity-scoring algorithm to use.
type ScoringMode string

const (
	ScoringHeuristic ScoringMode = "heuristic"
	ScoringWeighted  ScoringMode = "weighted"
)

var (
	codePattern      = regexp.MustCompile("(?i)\\b(func|class|def|package|import|SELECT|INSERT|UPDATE|DELETE)\\b")
	reasoningPattern = regexp.MustCompile("(?i)\\b(analyze|reason|think through|derive|prove|why|tradeoff)\\b")
	codeFence        = regexp.MustCompile("```")
)

// ScoreHeuristic implements the (a) heuristic complexity scoring: bucketed
// contributions from token count, tool count, task type, code complexity,
// and reasoning cues, plus a small conversation-depth bonus, summing to a
// 0-100 score.
func ScoreHeuristic(content string, toolCount int, conversationDepth int) float64 {
	score := 0.0

	// Token-count bucket (0-20): longer prompts score higher, saturating.
	tokenEstimate := len(content) / 4
	switch {
	case tokenEstimate > 2000:
		score += 20
	case tokenEstimate > 800:
		score += 14
	case tokenEstimate > 300:
		score += 8
	case tokenEstimate > 0:
		score += 3
	}

	// Tool-count bucket (0-20).
	switch {
	case toolCount > 8:
		score += 20
	case toolCount > 3:
		score += 12
	case toolCount > 0:
		score += 6
	}

	// Task-type bucket (0-25): code fences or code keywords indicate a
	// heavier task class.
	if codeFence.MatchString(content) {
		score += 25
	} else if codePattern.MatchString(content) {
		score += 15
	}

	// Code-complexity bucket (0-20): multiple code fences suggest a
	// multi-file or multi-step task.
	if n := strings.Count(content, "```"); n >= 4 {
		score += 20
	} else if n >= 2 {
		score += 10
	}

	// Reasoning bucket (0-15).
	if reasoningPattern.MatchString(content) {
		score += 15
	}

	// Conversation-depth bonus: deeper conversations tend to need more
	// capable models to stay coherent.
	if conversationDepth > 10 {
		score += 8
	} else if conversationDepth > 4 {
		score += 4
	}

	return clampScore(score)
}

// WeightedDimensions holds the 0-1 normalized value of each of the 13
// weighted-scoring dimensions.
type WeightedDimensions struct {
	Tokens              float64
	PromptComplexity    float64
	TechnicalDepth      float64
	DomainSpecificity    float64
	ToolCount           float64
	ToolComplexity      float64
	ToolChainPotential  float64
	MultiStepReasoning  float64
	CodeGeneration      float64
	AnalysisDepth       float64
	ConversationDepth   float64
	PriorToolUsage      float64
	Ambiguity           float64
}

// weightedDimensionWeights sums to 1.0 across the 13 dimensions.
var weightedDimensionWeights = map[string]float64{
	"tokens":             0.10,
	"prompt_complexity":  0.10,
	"technical_depth":    0.10,
	"domain_specificity": 0.06,
	"tool_count":         0.08,
	"tool_complexity":    0.08,
	"tool_chain":         0.08,
	"multi_step":         0.10,
	"code_generation":    0.10,
	"analysis_depth":     0.08,
	"conversation_depth": 0.04,
	"prior_tool_usage":   0.04,
	"ambiguity":          0.04,
}

// ScoreWeighted implements the (b) weighted complexity scoring: 13
// dimensions each normalized to [0,1], combined via fixed weights summing
// to 1.0, and scaled to [0,100].
func ScoreWeighted(d WeightedDimensions) float64 {
	sum := d.Tokens*weightedDimensionWeights["tokens"] +
		d.PromptComplexity*weightedDimensionWeights["prompt_complexity"] +
		d.TechnicalDepth*weightedDimensionWeights["technical_depth"] +
		d.DomainSpecificity*weightedDimensionWeights["domain_specificity"] +
		d.ToolCount*weightedDimensionWeights["tool_count"] +
		d.ToolComplexity*weightedDimensionWeights["tool_complexity"] +
		d.ToolChainPotential*weightedDimensionWeights["tool_chain"] +
		d.MultiStepReasoning*weightedDimensionWeights["multi_step"] +
		d.CodeGeneration*weightedDimensionWeights["code_generation"] +
		d.AnalysisDepth*weightedDimensionWeights["analysis_depth"] +
		d.ConversationDepth*weightedDimensionWeights["conversation_depth"] +
		d.PriorToolUsage*weightedDimensionWeights["prior_tool_usage"] +
		d.Ambiguity*weightedDimensionWeights["ambiguity"]
	return clampScore(sum * 100)
}

// DimensionsFromPayload derives WeightedDimensions from a request payload
// using the same cues ScoreHeuristic uses, normalized to [0,1]. This gives
// callers a working default for the weighted mode without hand-computing
// every dimension.
func DimensionsFromPayload(payload *models.Payload, content string, toolCount, priorToolResults int) WeightedDimensions {
	tokenEstimate := len(content) / 4
	return WeightedDimensions{
		Tokens:             normalize(float64(tokenEstimate), 2000),
		PromptComplexity:   boolToFloat(codeFence.MatchString(content) || reasoningPattern.MatchString(content)),
		TechnicalDepth:     boolToFloat(codePattern.MatchString(content)),
		DomainSpecificity:  normalize(float64(strings.Count(content, "```")), 4),
		ToolCount:          normalize(float64(toolCount), 10),
		ToolComplexity:     normalize(float64(len(payload.Tools)), 10),
		ToolChainPotential: boolToFloat(toolCount > 1),
		MultiStepReasoning: boolToFloat(reasoningPattern.MatchString(content)),
		CodeGeneration:     boolToFloat(codeFence.MatchString(content)),
		AnalysisDepth:      boolToFloat(reasoningPattern.MatchString(content)),
		ConversationDepth:  normalize(float64(len(payload.Messages)), 20),
		PriorToolUsage:     normalize(float64(priorToolResults), 5),
		Ambiguity:          boolToFloat(len(strings.TrimSpace(content)) < 20),
	}
}

func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	n := v / max
	if n > 1 {
		return 1
	}
	if n < 0 {
		return 0
	}
	return n
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clampScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
