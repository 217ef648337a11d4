package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/lynkr-ai/gateway/pkg/models"
)

// SQLiteLog is the pluggable persisted append log for non-ephemeral
// sessions, backed by a pure-Go SQLite driver so the gateway ships without
// a cgo dependency.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens (creating if absent) a SQLite-backed append log at
// path. Use ":memory:" for a process-local, non-durable log.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessions: open sqlite log: %w", err)
	}
	l := &SQLiteLog{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLog) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			metadata TEXT
		);
		CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT,
			content TEXT NOT NULL,
			metadata TEXT,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);
	`)
	if err != nil {
		return fmt.Errorf("sessions: init sqlite schema: %w", err)
	}
	return nil
}

// Append persists one turn, assigning it the next sequence number for
// sessionID and upserting the session's updated_at timestamp.
func (l *SQLiteLog) Append(ctx context.Context, sessionID string, t models.Turn) error {
	content, err := json.Marshal(t.Content)
	if err != nil {
		return fmt.Errorf("sessions: marshal turn content: %w", err)
	}
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("sessions: marshal turn metadata: %w", err)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessions: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, metadata)
		VALUES (?, ?, ?, '{}')
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, sessionID, t.Timestamp.UnixNano(), t.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("sessions: upsert session row: %w", err)
	}

	var seq int64
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_id = ?`, sessionID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("sessions: next sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, role, type, status, content, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, seq, string(t.Role), string(t.Type), t.Status, string(content), string(metadata), t.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("sessions: insert turn: %w", err)
	}

	return tx.Commit()
}

// Load returns sessionID's persisted turns in append order.
func (l *SQLiteLog) Load(ctx context.Context, sessionID string) ([]models.Turn, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT role, type, status, content, metadata, timestamp
		FROM turns WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sessions: load turns: %w", err)
	}
	defer rows.Close()

	var out []models.Turn
	for rows.Next() {
		var role, typ, status, content, metadata string
		var ts int64
		if err := rows.Scan(&role, &typ, &status, &content, &metadata, &ts); err != nil {
			return nil, fmt.Errorf("sessions: scan turn: %w", err)
		}
		var t models.Turn
		t.Role = models.Role(role)
		t.Type = models.TurnType(typ)
		t.Status = status
		t.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(content), &t.Content); err != nil {
			return nil, fmt.Errorf("sessions: unmarshal turn content: %w", err)
		}
		if metadata != "" && metadata != "null" {
			if err := json.Unmarshal([]byte(metadata), &t.Metadata); err != nil {
				return nil, fmt.Errorf("sessions: unmarshal turn metadata: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Touch upserts a session's metadata row without appending a turn.
func (l *SQLiteLog) Touch(ctx context.Context, session *models.Session) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("sessions: marshal session metadata: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, metadata = excluded.metadata
	`, session.ID, session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(), string(metadata))
	if err != nil {
		return fmt.Errorf("sessions: touch session row: %w", err)
	}
	return nil
}

// DeleteOlderThan removes sessions (and their turns) whose updated_at
// predates cutoff, returning the count of sessions removed.
func (l *SQLiteLog) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sessions: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sessions: delete expired sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM turns WHERE session_id NOT IN (SELECT id FROM sessions)
	`); err != nil {
		return 0, fmt.Errorf("sessions: delete orphaned turns: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sessions: commit prune: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error { return l.db.Close() }
