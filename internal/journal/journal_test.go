package journal

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/ir"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testSession(id string) Session {
	return Session{ID: id, EngineVersion: ir.EngineVersion, SchemaVersion: ir.SchemaVersion, Todos: []int64{1, 2, 3}}
}

func testEntry(session string, seq int64, typ string, args ir.IRObject, counter int64) Entry {
	return Entry{
		ID:        ir.MustEntryID(session, typ, args, seq),
		Session:   session,
		Seq:       seq,
		Type:      typ,
		Args:      args,
		Counter:   counter,
		StateHash: "hash",
	}
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	var version int
	require.NoError(t, j.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_EmptyPathIsMemory(t *testing.T) {
	j, err := Open("")
	require.NoError(t, err)
	defer j.Close()

	ids, err := j.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	s := testSession("session-1")
	require.NoError(t, j.WriteSession(ctx, s))
	require.NoError(t, j.WriteSession(ctx, s), "second write is a no-op")

	got, err := j.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = j.ReadSession(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestEntries_Ordered(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteSession(ctx, testSession("s1")))

	// Written out of order on purpose.
	e2 := testEntry("s1", 2, "counter/decrement", ir.IRObject{"amount": ir.IRInt(2)}, 3)
	e1 := testEntry("s1", 1, "counter/increment", ir.IRObject{"amount": ir.IRInt(5)}, 5)
	e3 := testEntry("s1", 3, "counter/reset", ir.IRObject{}, 0)
	for _, e := range []Entry{e2, e1, e3} {
		require.NoError(t, j.WriteEntry(ctx, e))
	}

	entries, err := j.ReadEntries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []Entry{e1, e2, e3}, entries)

	last, err := j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestWriteEntry_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteSession(ctx, testSession("s1")))

	e := testEntry("s1", 1, "counter/increment", ir.IRObject{"amount": ir.IRInt(1)}, 1)
	require.NoError(t, j.WriteEntry(ctx, e))
	require.NoError(t, j.WriteEntry(ctx, e))

	entries, err := j.ReadEntries(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteEntry_RequiresSession(t *testing.T) {
	j := openTestJournal(t)

	e := testEntry("ghost", 1, "counter/reset", ir.IRObject{}, 0)
	assert.Error(t, j.WriteEntry(context.Background(), e), "foreign key must reject unknown session")
}

func TestReadEntries_Empty(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.ReadEntries(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	last, err := j.LastSeq(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestListSessions(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, j.WriteSession(ctx, testSession(id)))
	}

	ids, err := j.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryJournalsAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := openTestJournal(t)
	b := openTestJournal(t)

	require.NoError(t, a.WriteSession(ctx, testSession("only-a")))

	ids, err := b.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
