package cli

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

// replaySession is used when a script does not fix its own session.
const replaySession = "replay-check"

// ReplayOutput reports whether a script is deterministic.
type ReplayOutput struct {
	Deterministic bool     `json:"deterministic"`
	Session       string   `json:"session"`
	Entries       int      `json:"entries"`
	Counter       int64    `json:"counter"`
	StateHash     string   `json:"state_hash"`
	Differences   []string `json:"differences,omitempty"`
}

func (o ReplayOutput) String() string {
	var b strings.Builder
	if o.Deterministic {
		fmt.Fprintf(&b, "deterministic: %d entries, counter %d, hash %s", o.Entries, o.Counter, o.StateHash)
		return b.String()
	}
	b.WriteString("NOT deterministic:")
	for _, d := range o.Differences {
		fmt.Fprintf(&b, "\n  - %s", d)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script>",
		Short: "Check that a script replays to identical journals",
		Long: `Run a script twice with the same session on separate in-memory
journals, then compare the journals entry by entry. Finally rebuild the
state from the journal and check it matches the live engine.

Exit codes:
  0 - Replay is deterministic
  1 - Journals or rebuilt state differ
  2 - Command error (bad script, invalid config)

Example:
  tally replay ./examples/demo.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts, args[0])
		},
	}
}

func runReplay(cmd *cobra.Command, opts *RootOptions, path string) error {
	f := opts.formatter(cmd)

	script, err := LoadScript(path)
	if err != nil {
		return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeScript, Message: "failed to load script", Err: err})
	}
	actions, err := script.Build()
	if err != nil {
		return f.Fail(actionError(err))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(err)
	}
	cfg.Journal = journal.MemoryPath

	session := script.Session
	if session == "" {
		session = replaySession
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	first, err := recordRun(ctx, cfg, script.Todos, session, actions)
	if err != nil {
		return f.Fail(err)
	}
	second, err := recordRun(ctx, cfg, script.Todos, session, actions)
	if err != nil {
		return f.Fail(err)
	}

	out := ReplayOutput{
		Session:   session,
		Entries:   len(first.entries),
		Counter:   state.SelectCounter(first.final),
		StateHash: first.final.Hash(),
	}
	out.Differences = append(out.Differences, first.diffs...)
	out.Differences = append(out.Differences, compareEntries(first.entries, second.entries)...)
	out.Deterministic = len(out.Differences) == 0

	if !out.Deterministic {
		if opts.Format == "json" {
			_ = f.Error(ErrCodeNotRepeated, "replay is not deterministic", out)
		} else {
			_ = f.Success(out)
		}
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeNotRepeated, Message: "replay is not deterministic"}
	}
	return f.Success(out)
}

type recordedRun struct {
	entries []journal.Entry
	final   state.Root
	diffs   []string
}

// recordRun applies actions on a fresh engine, then checks its journal:
// the last journaled seq must be the engine's, and replaying the session
// from the journal must rebuild the live state.
func recordRun(ctx context.Context, cfg config.Config, todos []int64, session string, actions []counter.Action) (recordedRun, error) {
	e, j, err := openEngine(cfg, todos, session)
	if err != nil {
		return recordedRun{}, err
	}
	defer closeJournal(j)

	for i, a := range actions {
		if _, err := e.Process(ctx, a); err != nil {
			return recordedRun{}, WrapExitError(ExitFailure, fmt.Sprintf("action %d failed", i), err)
		}
	}

	journalErr := func(err error) error {
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeJournal, Message: "failed to read journal", Err: err}
	}

	entries, err := j.ReadEntries(ctx, session)
	if err != nil {
		return recordedRun{}, journalErr(err)
	}
	run := recordedRun{entries: entries, final: e.State()}

	last, err := j.LastSeq(ctx, session)
	if err != nil {
		return recordedRun{}, journalErr(err)
	}
	if seq := e.Snapshot().Seq; last != seq {
		run.diffs = append(run.diffs, fmt.Sprintf("journal ends at seq %d, engine at seq %d", last, seq))
	}

	rebuilt, err := engine.ReplaySession(ctx, j, session)
	switch {
	case engine.IsReplayDiverged(err):
		run.diffs = append(run.diffs, fmt.Sprintf("rebuild from journal: %v", err))
	case err != nil:
		return recordedRun{}, journalErr(err)
	case rebuilt.Final.Hash() != run.final.Hash():
		run.diffs = append(run.diffs,
			fmt.Sprintf("rebuilt state hash %s, live state hash %s", rebuilt.Final.Hash(), run.final.Hash()))
	}

	return run, nil
}

func compareEntries(a, b []journal.Entry) []string {
	var diffs []string
	if len(a) != len(b) {
		diffs = append(diffs, fmt.Sprintf("entry count %d vs %d", len(a), len(b)))
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if !reflect.DeepEqual(a[i], b[i]) {
			diffs = append(diffs, fmt.Sprintf("seq %d: %s/%s vs %s/%s", a[i].Seq, a[i].Type, a[i].ID, b[i].Type, b[i].ID))
		}
	}
	return diffs
}
