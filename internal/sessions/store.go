// Package sessions implements the two-tier session store: a bounded
// in-memory map fronting every request, backed by a pluggable persistent
// append log for non-ephemeral sessions. Ephemeral sessions (server-minted
// because the client sent no id) never touch the persisted log.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/lynkr-ai/gateway/pkg/models"
)

// ErrNotFound is returned when a session id has no in-memory or persisted record.
var ErrNotFound = errors.New("sessions: not found")

// Store is the in-memory session registry every request resolves against.
type Store interface {
	// Get returns the session for id; ok is false when id is not tracked.
	Get(id string) (*models.Session, bool)
	// GetOrCreate returns the existing session for id, or creates and
	// registers a new one (marked ephemeral when ephemeral is true).
	GetOrCreate(id string, ephemeral bool) *models.Session
	// AppendTurn appends t to session id's in-memory history, capping it at
	// models.MaxInMemoryTurns, and returns the updated session.
	AppendTurn(id string, t models.Turn) (*models.Session, error)
	// Delete removes a session from the in-memory registry.
	Delete(id string)
	// Len reports the number of sessions currently tracked in memory.
	Len() int
	// PruneExpired evicts sessions whose UpdatedAt is older than olderThan
	// and returns the number removed. Intended for periodic janitor use.
	PruneExpired(olderThan time.Time) int
}

// AppendLog is the pluggable persisted append-only log for non-ephemeral
// session history. Implementations need not support reads beyond Load —
// the in-memory Store remains authoritative for serving requests.
type AppendLog interface {
	// Append persists one turn for sessionID. Called after every
	// in-memory AppendTurn on a non-ephemeral session.
	Append(ctx context.Context, sessionID string, t models.Turn) error
	// Load returns the persisted history for sessionID, most recent last,
	// used to rehydrate a session that fell out of the in-memory map.
	Load(ctx context.Context, sessionID string) ([]models.Turn, error)
	// Touch updates a session's metadata row (created/updated timestamps)
	// without appending a turn.
	Touch(ctx context.Context, session *models.Session) error
	// DeleteOlderThan removes persisted sessions (and their turns) last
	// updated before cutoff, returning the number of sessions removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
