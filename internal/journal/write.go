package journal

import (
	"context"
	"fmt"

	"github.com/roach88/tally/internal/ir"
)

// WriteSession inserts a session record. Writing the same ID twice is a
// no-op.
func (j *Journal) WriteSession(ctx context.Context, s Session) error {
	todosJSON, err := marshalTodos(s.Todos)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, engine_version, schema_version, todos)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, s.EngineVersion, s.SchemaVersion, todosJSON)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteEntry appends an entry. Entries are content-addressed, so writing
// the same entry twice is a no-op. The session must already exist.
func (j *Journal) WriteEntry(ctx context.Context, e Entry) error {
	argsJSON, err := marshalArgs(e.Args)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO entries (id, session_id, seq, type, args, counter, state_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Session, e.Seq, e.Type, argsJSON, e.Counter, e.StateHash)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func marshalArgs(args ir.IRObject) (string, error) {
	if args == nil {
		args = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

func marshalTodos(todos []int64) (string, error) {
	arr := make(ir.IRArray, len(todos))
	for i, v := range todos {
		arr[i] = ir.IRInt(v)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal todos: %w", err)
	}
	return string(data), nil
}
