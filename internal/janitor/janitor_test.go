package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/lynkr-ai/gateway/internal/config"
	"github.com/lynkr-ai/gateway/internal/sessions"
	"github.com/lynkr-ai/gateway/pkg/models"
)

type fakeAppendLog struct {
	deleted   int
	deleteErr error
}

func (f *fakeAppendLog) Append(ctx context.Context, sessionID string, t models.Turn) error { return nil }
func (f *fakeAppendLog) Load(ctx context.Context, sessionID string) ([]models.Turn, error) {
	return nil, nil
}
func (f *fakeAppendLog) Touch(ctx context.Context, session *models.Session) error { return nil }
func (f *fakeAppendLog) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return f.deleted, f.deleteErr
}

type fakeRateLimiter struct{ pruned int }

func (f *fakeRateLimiter) Prune(maxIdle time.Duration) int { return f.pruned }

type fakePromptCache struct{ swept int }

func (f *fakePromptCache) Sweep() int { return f.swept }

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New(config.JanitorConfig{PruneSchedule: "not a cron expression"}, sessions.NewMemoryStore(), nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunOncePrunesExpiredSessions(t *testing.T) {
	store := sessions.NewMemoryStore()
	store.GetOrCreate("stale", false)
	store.AppendTurn("stale", models.Turn{Timestamp: time.Now().Add(-48 * time.Hour)})

	store.GetOrCreate("fresh", false)

	j, err := New(config.JanitorConfig{PruneSchedule: "@every 1h", SessionMaxAgeHours: 24}, store, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	j.RunOnce(context.Background())

	if _, ok := store.Get("stale"); ok {
		t.Fatal("expected stale session to be pruned")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatal("expected fresh session to survive prune")
	}
}

func TestRunOnceDelegatesToCollaborators(t *testing.T) {
	store := sessions.NewMemoryStore()
	appendLog := &fakeAppendLog{deleted: 3}
	limiter := &fakeRateLimiter{pruned: 2}
	promptCache := &fakePromptCache{swept: 5}

	j, err := New(config.JanitorConfig{PruneSchedule: "@every 1h", SessionMaxAgeHours: 24}, store, appendLog, limiter, promptCache, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// RunOnce doesn't return counts, so this test only confirms it doesn't
	// panic when every collaborator is wired. Per-collaborator behavior is
	// covered by their own package tests.
	j.RunOnce(context.Background())
}

func TestStartDisabledSkipsJobRegistration(t *testing.T) {
	store := sessions.NewMemoryStore()
	j, err := New(config.JanitorConfig{Enabled: false, PruneSchedule: "@every 1h", SessionMaxAgeHours: 24}, store, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer j.Stop()
}

func TestStartEnabledRunsScheduledJob(t *testing.T) {
	store := sessions.NewMemoryStore()
	store.GetOrCreate("stale", false)
	store.AppendTurn("stale", models.Turn{Timestamp: time.Now().Add(-48 * time.Hour)})

	j, err := New(config.JanitorConfig{Enabled: true, PruneSchedule: "@every 50ms", SessionMaxAgeHours: 24}, store, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer j.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := store.Get("stale"); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected scheduled job to prune the stale session")
}
