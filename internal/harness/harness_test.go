package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/testutil"
)

func int64p(v int64) *int64 { return &v }

func TestRun_ExecutesThroughEngine(t *testing.T) {
	testutil.QuietLogs(t)

	scenario := &Scenario{
		Name:        "run",
		Description: "d",
		Session:     "fixed-session",
		Setup: []ActionStep{
			{Action: "increment", Args: map[string]interface{}{"amount": 10}},
		},
		Flow: []FlowStep{
			{Dispatch: "decrement", Args: map[string]interface{}{"amount": 4}, Expect: &ExpectClause{Counter: int64p(6)}},
			{Dispatch: "reset", Expect: &ExpectClause{Counter: int64p(0)}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Counter: int64p(0)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fixed-session", result.Session)
	assert.Equal(t, int64(0), result.FinalCounter)
	assert.Equal(t, []int64{1, 2, 3}, result.FinalTodos)

	assert.Equal(t, []TraceEvent{
		{Seq: 1, Type: "counter/increment", Args: ir.IRObject{"amount": ir.IRInt(10)}, Counter: 10},
		{Seq: 2, Type: "counter/decrement", Args: ir.IRObject{"amount": ir.IRInt(4)}, Counter: 6},
		{Seq: 3, Type: "counter/reset", Args: ir.IRObject{}, Counter: 0},
	}, result.Trace)
}

func TestRun_ExpectMismatch(t *testing.T) {
	testutil.QuietLogs(t)

	scenario := &Scenario{
		Name:        "mismatch",
		Description: "d",
		Flow: []FlowStep{
			{Dispatch: "increment", Args: map[string]interface{}{"amount": 1}, Expect: &ExpectClause{Counter: int64p(2)}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Counter: int64p(1)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected counter 2, got 1")
	assert.Equal(t, testutil.DefaultSession, result.Session)
}

func TestRun_CustomTodos(t *testing.T) {
	testutil.QuietLogs(t)

	scenario := &Scenario{
		Name:        "todos",
		Description: "d",
		Todos:       []int64{42},
		Flow: []FlowStep{
			{Dispatch: "reset", Expect: &ExpectClause{Todos: []int64{42}}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Todos: []int64{42}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_EmptyTodos(t *testing.T) {
	testutil.QuietLogs(t)

	scenario, err := ParseScenario([]byte(`name: no_placeholders
description: an explicit empty list is kept
todos: []
flow:
  - dispatch: inc
    args: { amount: 2 }
    expect:
      todos: []
assertions:
  - type: final_state
    counter: 2
    todos: []
`))
	require.NoError(t, err)
	require.NotNil(t, scenario.Todos)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.FinalTodos)

	scenario.Todos = nil
	result, err = Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass, "unset todos fall back to the default list")
	assert.Equal(t, []int64{1, 2, 3}, result.FinalTodos)
}

func TestRun_Deterministic(t *testing.T) {
	testutil.QuietLogs(t)

	scenario, err := LoadScenario("../../testdata/scenarios/increment_then_decrement.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a := NewTraceSnapshot(scenario.Name, first)
	b := NewTraceSnapshot(scenario.Name, second)
	aBytes, err := a.Bytes()
	require.NoError(t, err)
	bBytes, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(aBytes), string(bBytes))
}
