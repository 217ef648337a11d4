// Package routing implements the smart router (C6): it classifies a
// request's complexity, decides which provider/model tier should serve it,
// and exposes the decision as both a models.RoutingDecision and a set of
// HTTP response headers.
package routing

import "regexp"

var forceLocalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup)\s*[!.]*\s*$`),
	regexp.MustCompile(`(?i)^\s*(yes|no|yep|nope|sure|ok|okay)\s*[!.]*\s*$`),
	regexp.MustCompile(`(?i)^\s*(what can you do|help|menu|options)\s*[?]*\s*$`),
}

var forceCloudPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)security\s+audit`),
	regexp.MustCompile(`(?i)architecture\s+review`),
	regexp.MustCompile(`(?i)full\s+refactor`),
}

// ForcePatternMatch classifies text against the force-local/force-cloud
// pattern sets. ok is false when neither set matches.
func ForcePatternMatch(text string) (local bool, cloud bool, ok bool) {
	for _, p := range forceLocalPatterns {
		if p.MatchString(text) {
			return true, false, true
		}
	}
	for _, p := range forceCloudPatterns {
		if p.MatchString(text) {
			return false, true, true
		}
	}
	return false, false, false
}
