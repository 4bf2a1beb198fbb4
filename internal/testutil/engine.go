package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/journal"
)

// QuietLogs routes the default slog logger to io.Discard for the rest of
// the test.
func QuietLogs(t testing.TB) {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// OpenJournal opens an in-memory journal closed at test cleanup.
func OpenJournal(t testing.TB) *journal.Journal {
	t.Helper()
	j, err := journal.Open(journal.MemoryPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// NewEngine builds an engine with a fixed session token and an in-memory
// journal.
func NewEngine(t testing.TB, todos []int64, session string) (*engine.Engine, *journal.Journal) {
	t.Helper()
	j := OpenJournal(t)
	e := engine.New(todos,
		engine.WithSessionGenerator(NewFixedSession(session)),
		engine.WithRecorder(j),
	)
	return e, j
}
