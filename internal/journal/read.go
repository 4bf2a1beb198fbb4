package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/tally/internal/ir"
)

// ReadSession retrieves a session by ID.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadSession(ctx context.Context, id string) (Session, error) {
	var s Session
	var todosJSON string

	err := j.db.QueryRowContext(ctx, `
		SELECT id, engine_version, schema_version, todos
		FROM sessions
		WHERE id = ?
	`, id).Scan(&s.ID, &s.EngineVersion, &s.SchemaVersion, &todosJSON)
	if err != nil {
		return Session{}, err
	}

	if err := json.Unmarshal([]byte(todosJSON), &s.Todos); err != nil {
		return Session{}, fmt.Errorf("unmarshal todos: %w", err)
	}
	return s, nil
}

// ListSessions returns all session IDs in alphabetical order.
func (j *Journal) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

// ReadEntries returns a session's entries in dispatch order.
// Returns an empty slice (not nil) if the session has none.
func (j *Journal) ReadEntries(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, type, args, counter, state_hash
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (j *Journal) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq int64
	err := j.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM entries WHERE session_id = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var argsJSON string
		if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &e.Type, &argsJSON, &e.Counter, &e.StateHash); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		var args ir.IRObject
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("unmarshal args for entry %s: %w", e.ID, err)
		}
		e.Args = args
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
