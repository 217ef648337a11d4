package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// MemoryStore is the in-memory half of the two-tier session store. It is
// safe for concurrent use; callers that need cross-call atomicity over a
// single session (e.g. the agent loop reading then appending) should hold
// the corresponding Locker lock around the sequence.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemoryStore creates an empty in-memory session registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*models.Session{}}
}

func (m *MemoryStore) Get(id string) (*models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return cloneSession(s), true
}

func (m *MemoryStore) GetOrCreate(id string, ephemeral bool) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return cloneSession(s)
	}
	if id == "" {
		id = uuid.NewString()
		ephemeral = true
	}
	now := time.Now()
	s := &models.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Ephemeral: ephemeral,
	}
	m.sessions[id] = s
	return cloneSession(s)
}

func (m *MemoryStore) AppendTurn(id string, t models.Turn) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.AppendTurn(t)
	return cloneSession(s), nil
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) PruneExpired(olderThan time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(olderThan) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func cloneSession(s *models.Session) *models.Session {
	clone := *s
	if s.Metadata != nil {
		clone.Metadata = cloneMetadata(s.Metadata)
	}
	clone.History = append([]models.Turn{}, s.History...)
	return &clone
}

func cloneMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
