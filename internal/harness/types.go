package harness

import "github.com/roach88/tally/internal/ir"

// TraceEvent is one journaled transition.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Type    string      `json:"type"`
	Args    ir.IRObject `json:"args"`
	Counter int64       `json:"counter"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Session is the token the scenario ran under.
	Session string `json:"session"`

	// Trace contains every transition in dispatch order, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalCounter and FinalTodos describe the last published snapshot.
	FinalCounter int64   `json:"final_counter"`
	FinalTodos   []int64 `json:"final_todos"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
