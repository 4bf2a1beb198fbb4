// Package engine is the owned state container: it holds the composite
// state, applies dispatched actions one at a time and publishes each new
// snapshot.
//
// There is no package-level store. Callers construct an Engine and pass
// it to whatever needs to dispatch or read.
//
// # Single Writer
//
// Every transition is applied by exactly one goroutine, so operation N's
// result is always operation N+1's starting state. Two ways to drive it:
//
//   - Process: the caller is the writer. Used by the CLI and the scenario
//     harness, which own their engine outright.
//   - Run: a dedicated loop drains a FIFO queue fed by Enqueue and
//     Dispatch from any goroutine. Used by the HTTP adapter.
//
// The two are exclusive: Process fails while Run is active.
//
// # Snapshots
//
// The current state is an immutable state.Root swapped atomically after
// each transition. State may be called from any goroutine without
// locking. Subscribers are invoked on the writer goroutine, in
// subscription order, after the swap.
//
// # Logical Clock
//
// Each applied action is stamped with the next value from Clock. Seq
// numbers are never derived from wall time, so replaying the same actions
// yields the same journal.
package engine
