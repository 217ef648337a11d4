package policy

import (
	"regexp"
	"strings"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// DefaultMaxResultChars caps a tool result's content before it is persisted
// or echoed back to a provider, independent of the executor's own
// truncation cap (this one applies secret redaction first).
const DefaultMaxResultChars = 64 * 1024

// builtinSecretPatterns catches common credential shapes that tool output
// (file reads, command output, API responses) might echo back verbatim.
var builtinSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{20,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[\w\-.]+`),
	regexp.MustCompile(`(?i)(aws|amazon).*?(key|secret|token)\s*[:=]\s*['"]?[\w/+=]{20,}['"]?`),
	regexp.MustCompile(`(?i)(password|passwd|secret|token)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

const redactionText = "[REDACTED]"

// SanitizeToolResultContent redacts detected secrets from content and
// truncates it to maxChars (DefaultMaxResultChars if maxChars <= 0).
func SanitizeToolResultContent(content string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxResultChars
	}
	for _, re := range builtinSecretPatterns {
		content = re.ReplaceAllString(content, redactionText)
	}
	if len(content) > maxChars {
		content = content[:maxChars] + "...[truncated]"
	}
	return content
}

// DetectSecrets reports which builtin pattern families matched content,
// for logging or audit purposes rather than redaction itself.
func DetectSecrets(content string) []string {
	if content == "" {
		return nil
	}
	names := []string{"api_key", "bearer_token", "aws_credential", "generic_secret", "private_key"}
	var matches []string
	for i, re := range builtinSecretPatterns {
		if re.MatchString(content) {
			matches = append(matches, names[i])
		}
	}
	return matches
}

// ForbiddenBlockRule filters or rewrites a content block the response
// sanitiser shouldn't let through verbatim (e.g. a tool_use block naming a
// denied tool that slipped past execution-time policy, or thinking blocks a
// deployment wants stripped before the client sees them).
type ForbiddenBlockRule struct {
	// Kinds, if non-empty, restricts this rule to blocks of those kinds.
	Kinds []models.BlockKind
	// DeniedToolNames drops tool_use/tool_result blocks referencing these
	// tool names entirely instead of passing them through.
	DeniedToolNames []string
}

// SanitizeContent applies rules to blocks, dropping any block a rule
// matches and redacting secrets out of every surviving text block. Order is
// preserved for everything that survives.
func SanitizeContent(blocks []models.ContentBlock, rules []ForbiddenBlockRule) []models.ContentBlock {
	if len(blocks) == 0 {
		return blocks
	}
	out := make([]models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if blockForbidden(b, rules) {
			continue
		}
		if b.Kind == models.BlockText {
			b.Text = SanitizeToolResultContent(b.Text, 0)
		}
		out = append(out, b)
	}
	return out
}

func blockForbidden(b models.ContentBlock, rules []ForbiddenBlockRule) bool {
	for _, rule := range rules {
		if len(rule.Kinds) > 0 && !kindMatches(rule.Kinds, b.Kind) {
			continue
		}
		if len(rule.DeniedToolNames) > 0 {
			name := b.Name
			if b.Kind == models.BlockToolResult {
				// tool_result blocks don't carry the tool name directly;
				// callers needing name-based filtering on results should
				// pass the name in via a Kinds-only rule keyed elsewhere.
				continue
			}
			if !contains(namesLower(rule.DeniedToolNames), strings.ToLower(name)) {
				continue
			}
			return true
		}
		if len(rule.Kinds) > 0 {
			return true
		}
	}
	return false
}

func kindMatches(kinds []models.BlockKind, kind models.BlockKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func namesLower(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(n)
	}
	return out
}
