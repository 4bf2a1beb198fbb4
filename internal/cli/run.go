package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ShowJournal bool
}

// RunOutput is the result of running a script.
type RunOutput struct {
	State   StateView       `json:"state"`
	Entries []journal.Entry `json:"entries,omitempty"`
}

func (o RunOutput) String() string {
	var b strings.Builder
	b.WriteString(o.State.String())
	if len(o.Entries) > 0 {
		b.WriteString("\njournal:")
		for _, e := range o.Entries {
			fmt.Fprintf(&b, "\n  [%d] %s %v -> %d", e.Seq, e.Type, ir.ToAny(e.Args), e.Counter)
		}
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script of actions through the engine loop",
		Long: `Start the single-writer loop, dispatch every action of a YAML
script in order, then stop the loop and print the final state.

Example:
  tally run ./examples/demo.yaml
  tally run ./examples/demo.yaml --journal --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.ShowJournal, "journal", false, "print the journal entries")

	return cmd
}

func runScript(cmd *cobra.Command, opts *RunOptions, path string) error {
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

	e, j, err := openEngine(cfg, script.Todos, script.Session)
	if err != nil {
		return f.Fail(err)
	}
	defer closeJournal(j)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	slog.Info("running script", "path", path, "session", e.Session(), "actions", len(actions))

	for i, a := range actions {
		next, err := e.Dispatch(ctx, a)
		if err != nil {
			cancel()
			<-done
			return f.Fail(WrapExitError(ExitFailure, fmt.Sprintf("action %d failed", i), err))
		}
		f.VerboseLog("[%d] %s %v -> %d", i, a.Type(), ir.ToAny(a.Args()), next.Counter)
	}

	e.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(WrapExitError(ExitFailure, "engine error", err))
	}

	out := RunOutput{State: newStateView(e.Session(), e.Snapshot())}
	if opts.ShowJournal {
		entries, err := j.ReadEntries(ctx, e.Session())
		if err != nil {
			return f.Fail(&ExitError{Code: ExitFailure, ErrCode: ErrCodeJournal, Message: "failed to read journal", Err: err})
		}
		out.Entries = entries
	}

	return f.Success(out)
}
