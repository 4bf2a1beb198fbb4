package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/ir"
)

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <action> [amount] ...",
		Short: "Dispatch actions to a fresh counter and print the result",
		Long: `Dispatch a sequence of actions to a new counter, starting from 0.

Increment and decrement take an integer amount; reset takes none.

Example:
  tally dispatch inc 5 dec 2
  tally dispatch increment 3 reset --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd, rootOpts, args)
		},
	}
}

func runDispatch(cmd *cobra.Command, opts *RootOptions, tokens []string) error {
	f := opts.formatter(cmd)

	actions, err := ParseActions(tokens)
	if err != nil {
		return f.Fail(actionError(err))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(err)
	}

	e, j, err := openEngine(cfg, nil, "")
	if err != nil {
		return f.Fail(err)
	}
	defer closeJournal(j)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, a := range actions {
		next, err := e.Process(ctx, a)
		if err != nil {
			return f.Fail(WrapExitError(ExitFailure, "dispatch failed", err))
		}
		f.VerboseLog("%s %v -> %d", a.Type(), ir.ToAny(a.Args()), next.Counter)
	}

	return f.Success(newStateView(e.Session(), e.Snapshot()))
}
