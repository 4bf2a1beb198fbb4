package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string
}

// TestOutput is the text rendering of a suite result.
type TestOutput struct {
	*harness.SuiteResult
}

func (o TestOutput) String() string {
	var b strings.Builder
	for _, s := range o.Scenarios {
		switch {
		case s.GoldenUpdated:
			fmt.Fprintf(&b, "UPDATE %s\n", s.Name)
		case s.Pass:
			fmt.Fprintf(&b, "PASS   %s\n", s.Name)
		default:
			fmt.Fprintf(&b, "FAIL   %s\n", s.Name)
			for _, e := range s.Errors {
				fmt.Fprintf(&b, "       %s\n", strings.ReplaceAll(strings.TrimSpace(e), "\n", "\n       "))
			}
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total", o.Passed, o.Failed, o.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files and compare golden traces",
		Long: `Run every YAML scenario under a directory. Each scenario dispatches
its setup and flow steps on a fresh engine, then checks its assertions and
its golden trace in <dir>/golden/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (directory missing, bad filter)

Example:
  tally test ./testdata/scenarios
  tally test ./testdata/scenarios --filter 'reset*'
  tally test ./testdata/scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob matched against scenario names")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(dir); err != nil {
		return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeNotFound, Message: "scenarios directory not found", Err: err})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := harness.RunSuite(ctx, dir, harness.SuiteOptions{Filter: opts.Filter, Update: opts.Update})
	if err != nil {
		return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeScanError, Message: "failed to scan scenarios", Err: err})
	}
	if result.Total == 0 {
		return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeNoFiles, Message: fmt.Sprintf("no scenarios found in %s", dir)})
	}

	if result.Failed > 0 {
		if opts.Format == "json" {
			_ = f.Error(ErrCodeTestFailed, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total), result)
		} else {
			_ = f.Success(TestOutput{result})
		}
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeTestFailed, Message: "scenarios failed"}
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(TestOutput{result})
}
