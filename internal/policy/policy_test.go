package policy

import "testing"

func TestEvaluateDenyWinsOverAllow(t *testing.T) {
	e := NewEngine()
	cfg := Config{Allow: []string{"bash"}, Deny: []string{"bash"}}

	d := e.Evaluate("bash", 0, cfg)
	if d.Allowed {
		t.Error("deny should win over an explicit allow")
	}
	if d.Code != CodeDenied {
		t.Errorf("Code = %v, want %v", d.Code, CodeDenied)
	}
}

func TestEvaluateAllowList(t *testing.T) {
	e := NewEngine()
	cfg := Config{Allow: []string{"read", "grep"}}

	if d := e.Evaluate("read", 0, cfg); !d.Allowed {
		t.Error("read should be allowed")
	}
	if d := e.Evaluate("bash", 0, cfg); d.Allowed {
		t.Error("bash should not be allowed outside the allow list")
	}
}

func TestEvaluateGroupExpansion(t *testing.T) {
	e := NewEngine()
	cfg := Config{Allow: []string{"group:fs"}}

	if d := e.Evaluate("edit", 0, cfg); !d.Allowed {
		t.Error("edit should be allowed via group:fs expansion")
	}
	if d := e.Evaluate("websearch", 0, cfg); d.Allowed {
		t.Error("websearch should not be allowed, it isn't in group:fs")
	}
}

func TestEvaluateProfileDefaults(t *testing.T) {
	e := NewEngine()
	cfg := Config{Profile: ProfileCoding}

	if d := e.Evaluate("bash", 0, cfg); !d.Allowed {
		t.Error("bash should be allowed under the coding profile")
	}
	if d := e.Evaluate("send_message", 0, cfg); d.Allowed {
		t.Error("send_message should not be allowed under the coding profile")
	}
}

func TestEvaluateProfileFullAllowsEverythingNotDenied(t *testing.T) {
	e := NewEngine()
	cfg := Config{Profile: ProfileFull, Deny: []string{"bash"}}

	if d := e.Evaluate("anything", 0, cfg); !d.Allowed {
		t.Error("full profile should allow an arbitrary tool")
	}
	if d := e.Evaluate("bash", 0, cfg); d.Allowed {
		t.Error("full profile should still honor the deny list")
	}
}

func TestEvaluateMaxToolCallsPerRequest(t *testing.T) {
	e := NewEngine()
	cfg := Config{Profile: ProfileFull, MaxToolCallsPerRequest: 3}

	d := e.Evaluate("read", 3, cfg)
	if d.Allowed {
		t.Error("expected denial once the per-request cap is reached")
	}
	if d.Code != CodeCallCapped {
		t.Errorf("Code = %v, want %v", d.Code, CodeCallCapped)
	}
}

func TestEvaluateDefaultOpenWithNoPolicyConfigured(t *testing.T) {
	e := NewEngine()
	if d := e.Evaluate("anything", 0, Config{}); !d.Allowed {
		t.Error("with no profile and no allow list configured, default should be open")
	}
}

func TestAddGroupIsUsableInAllowList(t *testing.T) {
	e := NewEngine()
	e.AddGroup("group:custom", []string{"cowsay"})
	cfg := Config{Allow: []string{"group:custom"}}

	if d := e.Evaluate("cowsay", 0, cfg); !d.Allowed {
		t.Error("custom group should expand into the allow list")
	}
}
