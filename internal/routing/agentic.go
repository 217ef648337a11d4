package routing

import (
	"regexp"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// AgenticClass classifies how autonomously a request is expected to behave.
type AgenticClass string

const (
	ClassSingleShot AgenticClass = "SINGLE_SHOT"
	ClassToolChain  AgenticClass = "TOOL_CHAIN"
	ClassIterative  AgenticClass = "ITERATIVE"
	ClassAutonomous AgenticClass = "AUTONOMOUS"
)

// agenticToolNames are tools that imply multi-step autonomous behavior
// (as opposed to read-only lookups).
var agenticToolNames = map[string]bool{
	"task": true, "bash": true, "edit": true, "write": true, "sandbox": true,
}

var agenticContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)step[- ]by[- ]step`),
	regexp.MustCompile(`(?i)iteratively`),
	regexp.MustCompile(`(?i)figure out`),
	regexp.MustCompile(`(?i)multiple files`),
}

// ClassifyAgentic inspects the tools bound to the request, the count of
// tool_result blocks already seen in this conversation, and content
// patterns, to classify the request's agentic class.
func ClassifyAgentic(payload *models.Payload, content string, priorToolResults int) AgenticClass {
	agenticTools := 0
	readOnlyTools := 0
	for _, t := range payload.Tools {
		if agenticToolNames[strings.ToLower(t.Name)] {
			agenticTools++
		} else {
			readOnlyTools++
		}
	}

	patternHits := 0
	for _, p := range agenticContentPatterns {
		if p.MatchString(content) {
			patternHits++
		}
	}

	switch {
	case priorToolResults >= 3 && agenticTools > 0:
		return ClassAutonomous
	case patternHits >= 2 || (patternHits >= 1 && agenticTools > 0):
		return ClassIterative
	case agenticTools > 0 || readOnlyTools > 1:
		return ClassToolChain
	default:
		return ClassSingleShot
	}
}

// MinimumTier maps an agentic class to the lowest tier acceptable for it.
// Autonomous workflows force at least COMPLEX (cloud-capable) tiers.
func (c AgenticClass) MinimumTier() models.Tier {
	switch c {
	case ClassAutonomous:
		return models.TierComplex
	case ClassIterative:
		return models.TierMedium
	case ClassToolChain:
		return models.TierMedium
	default:
		return models.TierSimple
	}
}

// ForcesCloud reports whether this class always routes away from local
// models regardless of score.
func (c AgenticClass) ForcesCloud() bool {
	return c == ClassAutonomous
}
