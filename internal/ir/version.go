package ir

const (
	// SchemaVersion is the version of the journal entry layout.
	SchemaVersion = "1"

	// EngineVersion is the tally engine version recorded with each session.
	EngineVersion = "0.1.0"
)
