// Package journal records every dispatched action in an SQLite log.
//
// The journal is a development aid in the spirit of a store's action
// history: it lets tooling list what was dispatched, in which order, and
// what the counter was afterwards. It opens at ":memory:" by default, so
// nothing outlives the process and a restart always begins from a fresh
// counter.
//
// # Ordering
//
// Entries are stamped with the engine's logical clock. Every query orders
// by seq ASC, id COLLATE BINARY ASC so reads are identical across runs.
//
// # Database Configuration
//
//   - WAL mode when backed by a file
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package journal
