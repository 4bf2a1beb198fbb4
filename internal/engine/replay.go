package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

// SessionReader is the read side of a journal. Implemented by
// *journal.Journal.
type SessionReader interface {
	ReadSession(ctx context.Context, id string) (journal.Session, error)
	ReadEntries(ctx context.Context, session string) ([]journal.Entry, error)
}

// ReplayResult is the outcome of re-applying a session's entries.
type ReplayResult struct {
	Session string
	Final   state.Root
	Applied int
}

// Replay re-applies entries, in order, to a fresh composite state built
// from todos. Every entry's recorded counter (and state hash, when one was
// recorded) must match what the reducer produces again.
func Replay(todos []int64, entries []journal.Entry) (ReplayResult, error) {
	r := state.New(todos)
	res := ReplayResult{Final: r}

	for _, en := range entries {
		if res.Session == "" {
			res.Session = en.Session
		}

		a, err := counter.Decode(counter.Type(en.Type), en.Args)
		if err != nil {
			return res, fmt.Errorf("replay entry seq=%d: %w", en.Seq, err)
		}

		r = state.Reduce(r, a)
		if got := state.SelectCounter(r); got != en.Counter {
			return res, NewDivergenceError(en.Session, en.Seq, en.Counter, got)
		}
		if en.StateHash != "" {
			if got := r.Hash(); got != en.StateHash {
				return res, &RuntimeError{
					Code:    ErrCodeReplayDiverged,
					Message: "state hash does not match recorded",
					Session: en.Session,
					Seq:     en.Seq,
					Details: map[string]string{
						"recorded": en.StateHash,
						"replayed": got,
					},
				}
			}
		}

		res.Final = r
		res.Applied++
	}

	return res, nil
}

// ReplaySession loads a session and its entries from j and replays them.
func ReplaySession(ctx context.Context, j SessionReader, session string) (ReplayResult, error) {
	s, err := j.ReadSession(ctx, session)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("read session %s: %w", session, err)
	}

	entries, err := j.ReadEntries(ctx, session)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("read entries for %s: %w", session, err)
	}

	res, err := Replay(s.Todos, entries)
	res.Session = session
	return res, err
}
