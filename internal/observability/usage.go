package observability

import (
	"go.uber.org/zap"
)

// UsageLogger records per-call token accounting at debug level, separately
// from the request-scoped Logger: token counts are high-volume and
// provider-call-shaped rather than request-shaped, so they get their own
// structured sink instead of crowding the request log.
type UsageLogger struct {
	logger *zap.Logger
}

// NewUsageLogger builds a UsageLogger. A nil base logger falls back to
// zap.NewNop, so callers that don't care about usage logs can omit one
// without a nil check at every call site.
func NewUsageLogger(base *zap.Logger) *UsageLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &UsageLogger{logger: base.Named("usage")}
}

// RecordTokens logs the input/output token split for one provider call.
func (u *UsageLogger) RecordTokens(provider, model string, inputTokens, outputTokens int64) {
	u.logger.Debug("token usage",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int64("input_tokens", inputTokens),
		zap.Int64("output_tokens", outputTokens),
		zap.Int64("total_tokens", inputTokens+outputTokens),
	)
}

// RecordCost logs an estimated USD cost for one provider call, alongside
// the token counts that produced it.
func (u *UsageLogger) RecordCost(provider, model string, inputTokens, outputTokens int64, costUSD float64) {
	u.logger.Debug("estimated cost",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int64("input_tokens", inputTokens),
		zap.Int64("output_tokens", outputTokens),
		zap.Float64("cost_usd", costUSD),
	)
}

// Sync flushes buffered log entries; call during graceful shutdown.
func (u *UsageLogger) Sync() error {
	return u.logger.Sync()
}
