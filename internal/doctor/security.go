// Package doctor implements the preflight checks behind `gatewayd doctor`:
// security hazards in the loaded config and a check that each configured
// provider's credentials resolve (the provider's model API is not called).
package doctor

import (
	"net"
	"strings"

	"github.com/lynkr-ai/gateway/internal/config"
)

// SecuritySeverity classifies a finding's urgency.
type SecuritySeverity string

const (
	SeverityInfo     SecuritySeverity = "info"
	SeverityWarning  SecuritySeverity = "warning"
	SeverityCritical SecuritySeverity = "critical"
)

// SecurityFinding is one hazard surfaced by AuditSecurity.
type SecurityFinding struct {
	Severity SecuritySeverity
	Message  string
}

// SecurityAudit aggregates the findings from one AuditSecurity pass.
type SecurityAudit struct {
	Findings []SecurityFinding
}

// AuditSecurity inspects cfg for common deployment hazards: a publicly
// reachable listener with no auth configured, and providers with neither a
// static API key nor an OAuth2 client-credentials grant set.
func AuditSecurity(cfg *config.Config) SecurityAudit {
	audit := SecurityAudit{}
	if cfg == nil {
		return audit
	}

	if isPublicBind(cfg.Server.Host) && !authEnabled(cfg) {
		audit.Findings = append(audit.Findings, SecurityFinding{
			Severity: SeverityCritical,
			Message:  "server.host is publicly reachable without auth (set auth.secret or auth.static_keys)",
		})
	}

	for name, pc := range cfg.LLM.Providers {
		if pc.APIKey == "" && pc.OAuth2.ClientID == "" && strings.ToLower(name) != "ollama" {
			audit.Findings = append(audit.Findings, SecurityFinding{
				Severity: SeverityWarning,
				Message:  "provider \"" + name + "\" has no api_key or oauth2 client credentials configured",
			})
		}
	}

	if cfg.Auth.Secret != "" && len(cfg.Auth.Secret) < 16 {
		audit.Findings = append(audit.Findings, SecurityFinding{
			Severity: SeverityWarning,
			Message:  "auth.secret is shorter than 16 bytes; HMAC signing keys should be longer",
		})
	}

	return audit
}

func isPublicBind(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return true
	}
	if strings.EqualFold(trimmed, "localhost") {
		return false
	}
	if ip := net.ParseIP(trimmed); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func authEnabled(cfg *config.Config) bool {
	if strings.TrimSpace(cfg.Auth.Secret) != "" {
		return true
	}
	return len(cfg.Auth.StaticKeys) > 0
}
