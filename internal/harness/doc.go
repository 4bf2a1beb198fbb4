// Package harness runs counter scenarios against a real engine.
//
// The harness loads a scenario, dispatches its actions through an engine
// backed by an in-memory journal, and checks the outcome against per-step
// expectations, trace assertions and, optionally, a golden trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: increment_from_zero
//	description: "Increment from the initial state"
//	session: test-session-001
//	todos: [1, 2, 3]
//	setup:
//	  - action: increment
//	    args: { amount: 5 }
//	flow:
//	  - dispatch: decrement
//	    args: { amount: 2 }
//	    expect:
//	      counter: 3
//	assertions:
//	  - type: trace_count
//	    action: counter/increment
//	    count: 1
//	  - type: final_state
//	    counter: 3
//
// Action names accept the full wire type ("counter/increment") or the
// short form ("increment", "inc").
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: the final counter and/or todos equal the given values
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with:
//   - a fixed session token (scenario.session, or testutil.DefaultSession)
//   - a logical clock starting at 0
//   - an isolated in-memory SQLite journal
//
// The trace is read back from the journal, so identical scenarios produce
// byte-identical golden snapshots.
package harness
