package doctor

import "testing"

import "github.com/lynkr-ai/gateway/internal/config"

func TestAuditSecurityFlagsPublicBindWithoutAuth(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0"}}
	audit := AuditSecurity(cfg)

	found := false
	for _, f := range audit.Findings {
		if f.Severity == SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a critical finding for public bind without auth")
	}
}

func TestAuditSecurityAllowsLoopbackWithoutAuth(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "localhost"}}
	audit := AuditSecurity(cfg)
	for _, f := range audit.Findings {
		if f.Severity == SeverityCritical {
			t.Errorf("unexpected critical finding on loopback bind: %s", f.Message)
		}
	}
}

func TestAuditSecurityAllowsPublicBindWithAuth(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0"},
		Auth:   config.AuthConfig{Secret: "a-sixteen-byte-secret!!"},
	}
	audit := AuditSecurity(cfg)
	for _, f := range audit.Findings {
		if f.Severity == SeverityCritical {
			t.Errorf("unexpected critical finding with auth configured: %s", f.Message)
		}
	}
}

func TestAuditSecurityFlagsProviderMissingCredentials(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost"},
		LLM: config.LLMConfig{
			Providers: map[string]config.LLMProviderConfig{
				"anthropic": {},
			},
		},
	}
	audit := AuditSecurity(cfg)

	found := false
	for _, f := range audit.Findings {
		if f.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning finding for provider with no credentials")
	}
}

func TestAuditSecurityIgnoresOllamaMissingCredentials(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost"},
		LLM: config.LLMConfig{
			Providers: map[string]config.LLMProviderConfig{
				"ollama": {},
			},
		},
	}
	audit := AuditSecurity(cfg)
	if len(audit.Findings) != 0 {
		t.Errorf("expected no findings for a keyless ollama provider, got %v", audit.Findings)
	}
}
