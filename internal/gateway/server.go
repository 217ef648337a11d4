// Package gateway wires the gateway's independently-testable packages
// (providers, bridge, agentloop, routing, policy, cache, sessions,
// progress, tools) into one running HTTP server, the way the teacher's
// own internal/gateway composes channels/runtime/sessions behind a single
// Server struct.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lynkr-ai/gateway/internal/agentloop"
	"github.com/lynkr-ai/gateway/internal/audit"
	"github.com/lynkr-ai/gateway/internal/cache"
	"github.com/lynkr-ai/gateway/internal/config"
	agentcontext "github.com/lynkr-ai/gateway/internal/context"
	"github.com/lynkr-ai/gateway/internal/httpapi"
	"github.com/lynkr-ai/gateway/internal/janitor"
	"github.com/lynkr-ai/gateway/internal/observability"
	"github.com/lynkr-ai/gateway/internal/policy"
	"github.com/lynkr-ai/gateway/internal/progress"
	"github.com/lynkr-ai/gateway/internal/routing"
	"github.com/lynkr-ai/gateway/internal/sessions"
	"github.com/lynkr-ai/gateway/internal/tools"
)

// Server is the composition root: one HTTP listener serving the agent loop
// over /v1/messages, backed by every collaborator package.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	registry   *clientRegistry
	deps       agentloop.Deps
	router     *routing.Router
	sessionMgr *sessions.Manager
	policyCfg  policy.Config

	obsLogger      *observability.Logger
	metrics        *observability.Metrics
	tracer         *observability.Tracer
	tracerShutdown func(context.Context) error
	auditLog       *audit.Logger
	janitor        *janitor.Janitor
	auth           *httpapi.Service
	rateLimiter    *policy.RateLimiter

	httpServer   *http.Server
	httpListener net.Listener

	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New builds a Server from cfg. Provider client construction errors are
// logged and skipped rather than fatal, so the gateway still starts with a
// reduced provider set (mirrors buildProvider's per-fallback tolerance in
// the teacher's runtime wiring).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, errs := buildClientRegistry(ctx, cfg.LLM)
	for _, e := range errs {
		logger.Warn("provider client unavailable", "error", e)
	}

	obsLogger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	metrics := observability.NewMetrics()
	usageLogger := observability.NewUsageLogger(buildZapLogger(cfg.Logging.Level))
	tracer, tracerShutdown := observability.NewTracer(observability.TraceConfig{ServiceName: "gateway"})

	auditCfg := audit.DefaultConfig()
	auditCfg.Enabled = true
	auditCfg.Sink = audit.Sink(cfg.Audit.Sink)
	auditCfg.DBPath = cfg.Audit.DBPath
	auditLog, err := audit.NewLogger(auditCfg)
	if err != nil {
		return nil, fmt.Errorf("build audit logger: %w", err)
	}

	promptCache, err := cache.NewPromptCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("build prompt cache: %w", err)
	}

	var appendLog sessions.AppendLog
	if cfg.Session.SQLitePath != "" {
		sqliteLog, err := sessions.NewSQLiteLog(cfg.Session.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open session log: %w", err)
		}
		appendLog = sqliteLog
	}
	store := sessions.NewMemoryStore()
	locker := sessions.NewLocker(cfg.Session.LockTTL)
	sessionMgr := sessions.NewManager(store, locker, appendLog)

	toolRegistry := tools.NewRegistry()
	executor := tools.NewExecutor(toolRegistry, tools.Config{})

	policyEngine := policy.NewEngine()
	policyCfg := policy.Config{
		Profile:                cfg.Policy.Profile,
		Allow:                  cfg.Policy.Allow,
		Deny:                   cfg.Policy.Deny,
		MaxToolCallsPerRequest: cfg.Policy.MaxToolCallsPerRequest,
	}

	shaper := agentcontext.NewShaper(nil, nil)
	bus := progress.NewBus()

	router := routing.NewRouter(buildRoutingConfig(cfg.Routing))

	var rateLimiter *policy.RateLimiter
	var ratePruner janitor.RateLimitPruner
	if cfg.Policy.RateLimit.RequestsPerSecond > 0 {
		rateLimiter = policy.NewRateLimiter(cfg.Policy.RateLimit.RequestsPerSecond, cfg.Policy.RateLimit.Burst)
		ratePruner = rateLimiter
	}

	jan, err := janitor.New(cfg.Janitor, store, appendLog, ratePruner, promptCache, logger)
	if err != nil {
		return nil, fmt.Errorf("build janitor: %w", err)
	}

	authSvc := httpapi.NewService(httpapi.Config{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		TokenTTL:   cfg.Auth.TokenTTL,
		StaticKeys: cfg.Auth.StaticKeys,
	})

	srv := &Server{
		cfg:            cfg,
		logger:         logger,
		registry:       registry,
		router:         router,
		sessionMgr:     sessionMgr,
		policyCfg:      policyCfg,
		obsLogger:      obsLogger,
		metrics:        metrics,
		tracer:         tracer,
		tracerShutdown: tracerShutdown,
		auditLog:       auditLog,
		janitor:        jan,
		auth:           authSvc,
		rateLimiter:    rateLimiter,
	}

	srv.deps = agentloop.Deps{
		Provider:       newProviderAdapter(registry, metrics, usageLogger, auditLog),
		Router:         router,
		Executor:       executor,
		Policy:         policyEngine,
		Sanitizer: sanitizerFunc(func(content string) string {
			return policy.SanitizeToolResultContent(content, policy.DefaultMaxResultChars)
		}),
		Prompt:         promptCache,
		Sessions:       sessionMgr,
		Progress:       progress.NewEmitter(bus, "", ""),
		Shutdown:       agentloop.ShutdownFlagFunc(srv.shuttingDown.Load),
		Audit:          auditSink{logger: auditLog},
		Shaper:         shaper,
		ShaperSettings: agentcontext.DefaultSettings(),
		ToolPolicy:     policyCfg,
	}

	auditLog.LogGatewayStartup(ctx, "")

	return srv, nil
}

func buildRoutingConfig(rc config.RoutingConfig) routing.Config {
	tierMap := routing.NewTierMap(rc.TierMap)
	return routing.Config{
		ScoringMode:              routing.ScoringMode(rc.ScoringMode),
		ThresholdMode:            routing.ThresholdMode(rc.ThresholdMode),
		OllamaMaxToolsForRouting: rc.OllamaMaxToolsForRouting,
		LocalProviderHasTools:    rc.LocalProviderHasTools,
		FallbackOnTooManyTools:   rc.FallbackOnTooManyTools,
		TierMap:                  tierMap,
		DefaultTarget:            routing.TierTarget{Provider: rc.DefaultProvider, Model: rc.DefaultModel},
		CostOptimization:         rc.CostOptimization,
	}
}

// sanitizerFunc adapts a plain function to agentloop.Sanitizer.
type sanitizerFunc func(string) string

func (f sanitizerFunc) Sanitize(content string) string { return f(content) }

func (s *Server) now() time.Time { return time.Now() }

// buildZapLogger builds the zap logger backing observability.UsageLogger.
// Usage logs are debug-level by design (see UsageLogger), so the zap core
// itself always enables debug and lets UsageLogger's own call sites decide
// what's worth emitting; cfg.Logging.Level governs the primary slog-based
// request logger instead.
func buildZapLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
