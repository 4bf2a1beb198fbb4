package cli

import (
	"log/slog"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/journal"
)

// openEngine opens the configured journal and builds an engine recording
// into it. A non-empty session fixes the session token. The caller closes
// the journal.
func openEngine(cfg config.Config, todos []int64, session string) (*engine.Engine, *journal.Journal, error) {
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, nil, &ExitError{
			Code:    ExitCommandError,
			ErrCode: ErrCodeJournal,
			Message: "failed to open journal",
			Err:     err,
		}
	}

	if todos == nil {
		todos = cfg.Todos
	}
	opts := []engine.Option{engine.WithRecorder(j)}
	if session != "" {
		opts = append(opts, engine.WithSessionGenerator(engine.NewFixedGenerator(session)))
	}

	e := engine.New(todos, opts...)
	slog.Debug("engine ready", "session", e.Session(), "journal", cfg.Journal)
	return e, j, nil
}

func closeJournal(j *journal.Journal) {
	if err := j.Close(); err != nil {
		slog.Error("error closing journal", "error", err)
	}
}

func actionError(err error) *ExitError {
	return &ExitError{
		Code:    ExitCommandError,
		ErrCode: ErrCodeAction,
		Message: "invalid action",
		Err:     err,
	}
}
