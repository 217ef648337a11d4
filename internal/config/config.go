// Package config loads the gateway's YAML configuration file, expanding
// ${VAR} references against the process environment before parsing (the
// same env-expand-then-decode idiom used across the rest of this codebase).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lynkr-ai/gateway/internal/policy"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Session SessionConfig `yaml:"session"`
	Policy  PolicyConfig  `yaml:"policy"`
	Routing RoutingConfig `yaml:"routing"`
	Cache   CacheConfig   `yaml:"cache"`
	Janitor JanitorConfig `yaml:"janitor"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
	Auth    AuthConfig    `yaml:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// LLMConfig configures the provider set and the default routing target.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures one named provider client.
type LLMProviderConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	DefaultModel string        `yaml:"default_model"`
	Region       string        `yaml:"region"`  // bedrock, vertex
	Project      string        `yaml:"project"` // vertex
	Timeout      time.Duration `yaml:"timeout"`

	// OAuth2 configures client-credentials token resolution for providers
	// fronted by an OAuth2-protected gateway of their own, used in place of
	// APIKey when set (ClientID non-empty is the trigger).
	OAuth2 OAuth2Config `yaml:"oauth2"`
}

// OAuth2Config describes an OAuth2 client-credentials grant used to mint the
// bearer token sent to a provider in place of a static API key.
type OAuth2Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	SQLitePath     string        `yaml:"sqlite_path"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	MaxEphemeralAge time.Duration `yaml:"max_ephemeral_age"`
}

// PolicyConfig configures the tool policy engine (C4).
type PolicyConfig struct {
	Profile                policy.Profile  `yaml:"profile"`
	Allow                  []string        `yaml:"allow"`
	Deny                   []string        `yaml:"deny"`
	MaxToolCallsPerRequest int             `yaml:"max_tool_calls_per_request"`
	RateLimit              RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures the per-caller token bucket gating the HTTP
// boundary's conversational routes. A zero RequestsPerSecond disables
// rate limiting entirely.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RoutingConfig configures the router (C6). TierMap entries use the
// "provider:model" shorthand NewTierMap parses, keyed by tier name
// ("simple", "medium", "complex", "reasoning").
type RoutingConfig struct {
	ScoringMode              string            `yaml:"scoring_mode"`
	ThresholdMode            string            `yaml:"threshold_mode"`
	OllamaMaxToolsForRouting int               `yaml:"ollama_max_tools_for_routing"`
	LocalProviderHasTools    bool              `yaml:"local_provider_has_tools"`
	FallbackOnTooManyTools   bool              `yaml:"fallback_on_too_many_tools"`
	DefaultProvider          string            `yaml:"default_provider"`
	DefaultModel             string            `yaml:"default_model"`
	TierMap                  map[string]string `yaml:"tier_map"`
	CostOptimization         bool              `yaml:"cost_optimization"`
}

// CacheConfig configures the prompt cache (C7).
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// JanitorConfig configures the cron-based prune/sweep jobs.
type JanitorConfig struct {
	Enabled            bool   `yaml:"enabled"`
	PruneSchedule      string `yaml:"prune_schedule"`
	SessionMaxAgeHours int    `yaml:"session_max_age_hours"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// AuditConfig selects which audit sink(s) persist tool-call and policy
// decisions.
type AuditConfig struct {
	Sink     string `yaml:"sink"` // "sqlite", "log", or "both"
	DBPath   string `yaml:"db_path"`
}

// AuthConfig gates the HTTP boundary. A blank Secret disables authentication
// entirely (every request passes), matching the teacher's auth service's
// own Enabled()-gates-on-secret-presence convention.
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	StaticKeys []string      `yaml:"static_keys"`
}

// Load reads path, expands ${VAR} references against the environment, and
// decodes the result as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}
	if cfg.Session.SQLitePath == "" {
		cfg.Session.SQLitePath = "gateway.db"
	}
	if cfg.Policy.Profile == "" {
		cfg.Policy.Profile = policy.ProfileDefaults
	}
	if cfg.Policy.MaxToolCallsPerRequest == 0 {
		cfg.Policy.MaxToolCallsPerRequest = 12
	}
	if cfg.Policy.RateLimit.Burst == 0 {
		cfg.Policy.RateLimit.Burst = 5
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 256
	}
	if cfg.Janitor.PruneSchedule == "" {
		cfg.Janitor.PruneSchedule = "@every 10m"
	}
	if cfg.Janitor.SessionMaxAgeHours == 0 {
		cfg.Janitor.SessionMaxAgeHours = 24
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Audit.Sink == "" {
		cfg.Audit.Sink = "sqlite"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
}
