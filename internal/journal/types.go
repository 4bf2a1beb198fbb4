package journal

import "github.com/roach88/tally/internal/ir"

// Session describes one engine instance.
type Session struct {
	ID            string  `json:"id"`
	EngineVersion string  `json:"engine_version"`
	SchemaVersion string  `json:"schema_version"`
	Todos         []int64 `json:"todos"`
}

// Entry is one dispatched action and the counter value it produced.
type Entry struct {
	ID        string      `json:"id"` // ir.EntryID of (session, type, args, seq)
	Session   string      `json:"session"`
	Seq       int64       `json:"seq"` // Logical clock
	Type      string      `json:"type"`
	Args      ir.IRObject `json:"args"`
	Counter   int64       `json:"counter"`
	StateHash string      `json:"state_hash"`
}
