package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when acquiring a per-session lock times out.
var ErrLockTimeout = errors.New("sessions: lock acquisition timeout")

// DefaultLockTimeout bounds how long a caller waits for another owner to
// release a session before giving up.
const DefaultLockTimeout = 5 * time.Second

const lockPollInterval = 10 * time.Millisecond

type sessionMutex struct {
	mu     sync.Mutex
	locked bool
}

// Locker guarantees one owner thread per session at a time, per the
// single-writer-per-session concurrency rule: concurrent requests on the
// same session id are not required to interleave safely, so callers that
// mutate a session serialize through Lock/Unlock.
type Locker struct {
	locks   sync.Map // map[string]*sessionMutex
	timeout time.Duration
}

// NewLocker creates a Locker with the given default acquire timeout (0 uses
// DefaultLockTimeout).
func NewLocker(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Locker{timeout: timeout}
}

func (l *Locker) getOrCreateMutex(sessionID string) *sessionMutex {
	if m, ok := l.locks.Load(sessionID); ok {
		return m.(*sessionMutex)
	}
	actual, _ := l.locks.LoadOrStore(sessionID, &sessionMutex{})
	return actual.(*sessionMutex)
}

// Lock blocks until the session's lock is acquired, the context is
// cancelled, or the default timeout elapses.
func (l *Locker) Lock(ctx context.Context, sessionID string) error {
	m := l.getOrCreateMutex(sessionID)
	deadline := time.Now().Add(l.timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.mu.Lock()
		if !m.locked {
			m.locked = true
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(lockPollInterval)
	}
}

// Unlock releases sessionID's lock. Safe to call even if not held.
func (l *Locker) Unlock(sessionID string) {
	if m, ok := l.locks.Load(sessionID); ok {
		mu := m.(*sessionMutex)
		mu.mu.Lock()
		mu.locked = false
		mu.mu.Unlock()
	}
}

// TryLock attempts to acquire sessionID's lock without blocking.
func (l *Locker) TryLock(sessionID string) bool {
	m := l.getOrCreateMutex(sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}
