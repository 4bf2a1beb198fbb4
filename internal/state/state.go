// Package state is the root aggregator. It combines the counter with the
// placeholder todos collection into one read-only composite snapshot.
package state

import (
	"slices"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/ir"
)

// DefaultTodos is the placeholder collection used when none is configured.
var DefaultTodos = []int64{1, 2, 3}

// Root is the composite application state.
//
// Todos is never mutated after construction; Reduce shares it between
// snapshots. Callers that need to modify it must Clone first.
type Root struct {
	Todos   []int64       `json:"todos"`
	Counter counter.State `json:"counter"`
}

// New returns the initial composite state over a copy of todos.
func New(todos []int64) Root {
	if todos == nil {
		todos = DefaultTodos
	}
	return Root{
		Todos:   slices.Clone(todos),
		Counter: counter.Initial,
	}
}

// Reduce is the root reducer. The counter slice is delegated to
// counter.Reduce and todos are carried over untouched.
func Reduce(r Root, a counter.Action) Root {
	return Root{
		Todos:   r.Todos,
		Counter: counter.Reduce(r.Counter, a),
	}
}

// SelectCounter is the read interface used by presentation layers.
func SelectCounter(r Root) int64 {
	return int64(r.Counter)
}

// SelectTodos returns a copy of the placeholder collection.
func SelectTodos(r Root) []int64 {
	return slices.Clone(r.Todos)
}

// Clone returns a deep copy of r.
func (r Root) Clone() Root {
	return Root{Todos: slices.Clone(r.Todos), Counter: r.Counter}
}

// Object returns the snapshot as an IR object.
func (r Root) Object() ir.IRObject {
	todos := make(ir.IRArray, len(r.Todos))
	for i, v := range r.Todos {
		todos[i] = ir.IRInt(v)
	}
	return ir.IRObject{
		"todos":   todos,
		"counter": ir.IRInt(r.Counter),
	}
}

// Hash returns the content hash of the canonical snapshot.
func (r Root) Hash() string {
	// Object only produces ints and arrays, which always encode.
	h, err := ir.StateHash(r.Object())
	if err != nil {
		panic(err)
	}
	return h
}
