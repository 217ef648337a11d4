package sessions

import (
	"context"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// Manager is the canonical entry point the HTTP boundary and agent loop use
// to resolve and mutate sessions: an in-memory Store for speed, a Locker
// enforcing one owner thread per session, and an optional AppendLog for
// non-ephemeral persistence.
type Manager struct {
	store  Store
	locker *Locker
	log    AppendLog
}

// NewManager builds a Manager. log may be nil, in which case non-ephemeral
// sessions are tracked in memory only (no durability across restarts).
func NewManager(store Store, locker *Locker, log AppendLog) *Manager {
	if locker == nil {
		locker = NewLocker(0)
	}
	return &Manager{store: store, locker: locker, log: log}
}

// GetOrCreateSession returns the canonical session object for id, creating
// one (marked ephemeral when id is empty) if it doesn't exist yet.
func (m *Manager) GetOrCreateSession(id string, ephemeral bool) *models.Session {
	return m.store.GetOrCreate(id, ephemeral)
}

// Lock acquires exclusive ownership of a session for the duration of one
// agent-loop invocation.
func (m *Manager) Lock(ctx context.Context, sessionID string) error {
	return m.locker.Lock(ctx, sessionID)
}

// Unlock releases ownership acquired via Lock.
func (m *Manager) Unlock(sessionID string) { m.locker.Unlock(sessionID) }

// AppendTurnToSession updates the session's in-memory history (capped at
// models.MaxInMemoryTurns) and, for non-ephemeral sessions with a
// configured AppendLog, persists the turn. Persistence failure does not
// fail the call: the in-memory append is authoritative for serving the
// current request, and a persistence error is returned for the caller to
// log.
func (m *Manager) AppendTurnToSession(ctx context.Context, session *models.Session, t models.Turn) (*models.Session, error) {
	updated, err := m.store.AppendTurn(session.ID, t)
	if err != nil {
		return nil, err
	}
	if session.Ephemeral || m.log == nil {
		return updated, nil
	}
	if err := m.log.Append(ctx, session.ID, t); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete drops a session from the in-memory registry. Persisted history (if
// any) is left intact; pruning the append log is the janitor's job.
func (m *Manager) Delete(sessionID string) {
	m.store.Delete(sessionID)
	m.locker.Unlock(sessionID)
}
