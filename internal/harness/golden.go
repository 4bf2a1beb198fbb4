package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tally/internal/ir"
)

// TraceSnapshot captures everything a golden file compares.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Session      string       `json:"session"`
	Trace        []TraceEvent `json:"trace"`
	FinalCounter int64        `json:"final_counter"`
	FinalTodos   []int64      `json:"final_todos"`
}

// NewTraceSnapshot builds the snapshot for a finished scenario.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Session:      result.Session,
		Trace:        result.Trace,
		FinalCounter: result.FinalCounter,
		FinalTodos:   result.FinalTodos,
	}
}

// toCanonicalMap converts the snapshot into values ir.MarshalCanonical
// accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		args := event.Args
		if args == nil {
			args = ir.IRObject{}
		}
		traceList[i] = map[string]any{
			"seq":     event.Seq,
			"type":    event.Type,
			"args":    args,
			"counter": event.Counter,
		}
	}

	todos := make([]any, len(s.FinalTodos))
	for i, v := range s.FinalTodos {
		todos[i] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session":       s.Session,
		"trace":         traceList,
		"final": map[string]any{
			"counter": s.FinalCounter,
			"todos":   todos,
		},
	}
}

// Bytes returns the canonical JSON form of the snapshot.
func (s *TraceSnapshot) Bytes() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. opts are applied after the
// defaults, so goldie.WithFixtureDir overrides the directory.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	return result, AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	data, err := snapshot.Bytes()
	if err != nil {
		return err
	}

	all := append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)
	g := goldie.New(t, all...)
	g.Assert(t, scenarioName, data)

	return nil
}
