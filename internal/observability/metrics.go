package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics centralizes the gateway's Prometheus collectors. Call NewMetrics
// once at startup; every collector registers itself against the default
// registry so it's served by promhttp.Handler() without further wiring.
type Metrics struct {
	// LLMRequestDuration measures provider call latency.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts provider calls by outcome.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// LLMCostUSD accumulates estimated spend.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations by outcome.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution latency.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and type.
	// Labels: component (provider|routing|policy|session), error_type
	ErrorCounter *prometheus.CounterVec

	// ActiveSessions gauges in-flight sessions.
	ActiveSessions prometheus.Gauge

	// SessionDuration measures session lifetime from creation to eviction.
	SessionDuration prometheus.Histogram

	// HTTPRequestDuration measures handler latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts handled requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// RoutingDecisionCounter counts router outcomes by tier and method.
	// Labels: tier, method (force_pattern|tool_threshold|complexity|cost_optimized)
	RoutingDecisionCounter *prometheus.CounterVec

	// ContextWindowUsed tracks estimated input token usage per request.
	// Labels: provider, model
	ContextWindowUsed *prometheus.HistogramVec

	// SessionLogQueryDuration measures SQLite append-log latency.
	// Labels: operation (append|load|touch), status (success|error)
	SessionLogQueryDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns every collector. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_llm_request_duration_seconds",
				Help:    "Duration of provider requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_llm_requests_total", Help: "Total provider requests by outcome"},
			[]string{"provider", "model", "status"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_llm_tokens_total", Help: "Total tokens consumed"},
			[]string{"provider", "model", "type"},
		),
		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_llm_cost_usd_total", Help: "Estimated provider spend in USD"},
			[]string{"provider", "model"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_tool_executions_total", Help: "Total tool executions by outcome"},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_errors_total", Help: "Total errors by component and type"},
			[]string{"component", "error_type"},
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{Name: "gateway_active_sessions", Help: "Current number of tracked sessions"},
		),
		SessionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_session_duration_seconds",
				Help:    "Session lifetime in seconds, creation to eviction",
				Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800},
			},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_http_requests_total", Help: "Total HTTP requests handled"},
			[]string{"method", "path", "status_code"},
		),
		RoutingDecisionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "gateway_routing_decisions_total", Help: "Routing decisions by tier and method"},
			[]string{"tier", "method"},
		),
		ContextWindowUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_context_window_tokens",
				Help:    "Estimated input tokens per request",
				Buckets: []float64{1000, 4000, 8000, 16000, 32000, 64000, 128000},
			},
			[]string{"provider", "model"},
		),
		SessionLogQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_session_log_duration_seconds",
				Help:    "Duration of session append-log operations",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordLLMRequest records latency, outcome, and token usage for one
// provider call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records outcome and latency for one tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a component/type pair.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordRoutingDecision records one router outcome.
func (m *Metrics) RecordRoutingDecision(tier, method string) {
	m.RoutingDecisionCounter.WithLabelValues(tier, method).Inc()
}

// RecordLLMCost accumulates estimated spend for one provider call.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordContextWindow records estimated input tokens for one request.
func (m *Metrics) RecordContextWindow(provider, model string, tokensUsed int) {
	m.ContextWindowUsed.WithLabelValues(provider, model).Observe(float64(tokensUsed))
}

// RecordHTTPRequest records latency and status for one handled request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordSessionLogOperation records latency and outcome for one append-log
// call against the session store's durable backend.
func (m *Metrics) RecordSessionLogOperation(operation, status string, durationSeconds float64) {
	m.SessionLogQueryDuration.WithLabelValues(operation, status).Observe(durationSeconds)
}
