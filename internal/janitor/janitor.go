// Package janitor runs the gateway's periodic housekeeping: pruning expired
// sessions from the in-memory store and (when configured) the persisted
// append log, sweeping stale prompt-cache entries, and dropping idle
// rate-limit buckets. It is scheduled with robfig/cron, the same parser
// configuration the rest of the gateway's cron-adjacent code uses.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lynkr-ai/gateway/internal/cache"
	"github.com/lynkr-ai/gateway/internal/config"
	"github.com/lynkr-ai/gateway/internal/policy"
	"github.com/lynkr-ai/gateway/internal/sessions"
)

var parser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// RateLimitPruner is the subset of policy.RateLimiter the janitor needs.
type RateLimitPruner interface {
	Prune(maxIdle time.Duration) int
}

// PromptCacheSweeper is the subset of cache.PromptCache the janitor needs.
type PromptCacheSweeper interface {
	Sweep() int
}

// Janitor owns the cron schedule driving periodic cleanup of session state,
// cache entries, and rate-limit buckets.
type Janitor struct {
	cfg    config.JanitorConfig
	logger *slog.Logger

	store       sessions.Store
	appendLog   sessions.AppendLog
	rateLimiter RateLimitPruner
	promptCache PromptCacheSweeper

	cron *cron.Cron
}

// New builds a Janitor from cfg. appendLog, rateLimiter, and promptCache may
// all be nil; a nil collaborator is simply skipped during each run. store
// must not be nil.
func New(cfg config.JanitorConfig, store sessions.Store, appendLog sessions.AppendLog, rateLimiter RateLimitPruner, promptCache PromptCacheSweeper, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := parser.Parse(cfg.PruneSchedule); err != nil {
		return nil, err
	}

	j := &Janitor{
		cfg:         cfg,
		logger:      logger.With("component", "janitor"),
		store:       store,
		appendLog:   appendLog,
		rateLimiter: rateLimiter,
		promptCache: promptCache,
		cron:        cron.New(cron.WithParser(parser)),
	}
	return j, nil
}

// Start registers the prune job and starts the cron scheduler. A disabled
// Janitor (cfg.Enabled == false) starts an empty scheduler, so Stop is
// always safe to call unconditionally.
func (j *Janitor) Start(ctx context.Context) error {
	if !j.cfg.Enabled {
		j.cron.Start()
		return nil
	}
	_, err := j.cron.AddFunc(j.cfg.PruneSchedule, func() { j.RunOnce(ctx) })
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the scheduler and blocks until any in-flight run finishes.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce executes one prune/sweep pass immediately, independent of the
// cron schedule. Used both by the scheduled job and by tests.
func (j *Janitor) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(j.cfg.SessionMaxAgeHours) * time.Hour)

	expired := j.store.PruneExpired(cutoff)
	if expired > 0 {
		j.logger.Info("pruned expired in-memory sessions", "count", expired, "cutoff", cutoff)
	}

	if j.appendLog != nil {
		n, err := j.appendLog.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Warn("prune persisted sessions failed", "error", err)
		} else if n > 0 {
			j.logger.Info("pruned persisted sessions", "count", n, "cutoff", cutoff)
		}
	}

	if j.promptCache != nil {
		if n := j.promptCache.Sweep(); n > 0 {
			j.logger.Info("swept expired prompt cache entries", "count", n)
		}
	}

	if j.rateLimiter != nil {
		maxIdle := time.Duration(j.cfg.SessionMaxAgeHours) * time.Hour
		if n := j.rateLimiter.Prune(maxIdle); n > 0 {
			j.logger.Info("pruned idle rate limit buckets", "count", n)
		}
	}
}

var _ RateLimitPruner = (*policy.RateLimiter)(nil)
var _ PromptCacheSweeper = (*cache.PromptCache)(nil)
