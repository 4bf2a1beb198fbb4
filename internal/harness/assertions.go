package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %d\n", event.Seq, event.Type, ir.ToAny(event.Args), event.Counter)
		}
	}

	return buf.String()
}

// normalizeAction maps short action names to wire types. Unknown names are
// returned unchanged so they simply fail to match.
func normalizeAction(name string) string {
	if t, err := counter.ParseType(name); err == nil {
		return string(t)
	}
	return name
}

// assertTraceContains checks if the trace contains an action matching the
// given type and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	action := normalizeAction(assertion.Action)
	for _, event := range trace {
		if event.Type == action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions first appear in the given order.
// Intervening actions are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Type]; !seen {
			positions[event.Type] = i + 1
		}
	}

	actions := make([]string, len(assertion.Actions))
	for i, a := range assertion.Actions {
		actions[i] = normalizeAction(a)
	}

	for _, action := range actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(actions); i++ {
		prev, curr := actions[i-1], actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	action := normalizeAction(assertion.Action)
	count := 0
	for _, event := range trace {
		if event.Type == action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares the final snapshot with the assertion's
// counter and todos.
func assertFinalState(result *Result, assertion Assertion) error {
	if assertion.Counter != nil && *assertion.Counter != result.FinalCounter {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("counter = %d", *assertion.Counter),
			Actual:   fmt.Sprintf("counter = %d", result.FinalCounter),
			Trace:    result.Trace,
		}
	}
	if assertion.Todos != nil && !slices.Equal(assertion.Todos, result.FinalTodos) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("todos = %v", assertion.Todos),
			Actual:   fmt.Sprintf("todos = %v", result.FinalTodos),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchArgs checks if actual contains all expected args. Extra keys in
// actual are ignored.
func matchArgs(actual ir.IRObject, expected map[string]interface{}) bool {
	if len(expected) == 0 {
		return true
	}

	want, err := convertArgs(expected)
	if err != nil {
		return false
	}

	for key, wantVal := range want {
		gotVal, ok := actual[key]
		if !ok {
			return false
		}
		wantJSON, err1 := ir.MarshalCanonical(wantVal)
		gotJSON, err2 := ir.MarshalCanonical(gotVal)
		if err1 != nil || err2 != nil || string(wantJSON) != string(gotJSON) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
