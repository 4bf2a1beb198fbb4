package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
	"github.com/roach88/tally/internal/testutil"
)

// Harness is the scenario execution context.
type Harness struct {
	journal *journal.Journal
	engine  *engine.Engine
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh engine with an in-memory journal. Actions
// go through Engine.Process, so the trace is exactly what the engine
// journaled.
//
// Execution flow:
//  1. Open an in-memory journal and build the engine
//  2. Dispatch setup steps
//  3. Dispatch flow steps, checking expect clauses
//  4. Read the trace back from the journal
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	j, err := journal.Open(journal.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	// Unset todos take the default; an explicit [] stays empty.
	eng := engine.New(scenario.Todos,
		engine.WithSessionGenerator(testutil.NewFixedSession(scenario.Session)),
		engine.WithRecorder(j),
	)

	h := &Harness{
		journal: j,
		engine:  eng,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	result.Session = eng.Session()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	trace, err := h.readTrace(ctx)
	if err != nil {
		return nil, err
	}
	result.Trace = trace

	final := eng.State()
	result.FinalCounter = state.SelectCounter(final)
	result.FinalTodos = state.SelectTodos(final)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep) error {
	for i, step := range setup {
		a, err := BuildAction(step.Action, step.Args)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}

		next, err := h.engine.Process(ctx, a)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}

		h.logger.Info("setup step completed",
			"step", i,
			"action", a.Type(),
			"counter", next.Counter,
		)
	}
	return nil
}

func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		a, err := BuildAction(step.Dispatch, step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		next, err := h.engine.Process(ctx, a)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		if step.Expect != nil {
			if step.Expect.Counter != nil && *step.Expect.Counter != state.SelectCounter(next.Root) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected counter %d, got %d",
					i, a.Type(), *step.Expect.Counter, state.SelectCounter(next.Root)))
			}
			if step.Expect.Todos != nil && !slices.Equal(step.Expect.Todos, next.Todos) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected todos %v, got %v",
					i, a.Type(), step.Expect.Todos, next.Todos))
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", a.Type(),
			"counter", next.Counter,
		)
	}
	return nil
}

func (h *Harness) readTrace(ctx context.Context) ([]TraceEvent, error) {
	entries, err := h.journal.ReadEntries(ctx, h.engine.Session())
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	trace := make([]TraceEvent, len(entries))
	for i, e := range entries {
		trace[i] = TraceEvent{
			Seq:     e.Seq,
			Type:    e.Type,
			Args:    e.Args,
			Counter: e.Counter,
		}
	}
	return trace, nil
}
