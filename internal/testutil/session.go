package testutil

// FixedSession generates the same session token every time.
//
// Unlike engine.FixedGenerator, which hands out tokens in sequence, this
// generator never runs out, so a scenario can build as many engines as it
// likes and every journal carries the same token.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedSession struct {
	token string
}

// DefaultSession is used when a scenario does not name one.
const DefaultSession = "test-session-default"

// NewFixedSession creates a generator that always returns token.
// If token is empty, Generate returns DefaultSession.
func NewFixedSession(token string) *FixedSession {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSession{token: token}
}

// Generate returns the fixed token. Implements engine.SessionGenerator.
func (g *FixedSession) Generate() string {
	return g.token
}
