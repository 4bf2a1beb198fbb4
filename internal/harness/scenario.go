package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/ir"
)

// Scenario defines a counter test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is an optional fixed session token for deterministic traces.
	Session string `yaml:"session,omitempty"`

	// Todos overrides the placeholder collection. Unset means the default;
	// an explicit [] means no placeholders.
	Todos []int64 `yaml:"todos,omitempty"`

	// Setup contains actions dispatched before the main flow, without
	// expectations.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the dispatches under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup dispatch.
type ActionStep struct {
	// Action is the action type, full or short form.
	Action string `yaml:"action"`

	// Args holds the action arguments. Reset takes none.
	Args map[string]interface{} `yaml:"args,omitempty"`
}

// FlowStep is a dispatch with an optional expectation.
type FlowStep struct {
	// Dispatch is the action type, full or short form.
	Dispatch string `yaml:"dispatch"`

	// Args holds the action arguments.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect, if set, is checked against the snapshot the dispatch produced.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the snapshot a flow step must produce. Unset
// fields are not checked.
type ExpectClause struct {
	Counter *int64  `yaml:"counter,omitempty"`
	Todos   []int64 `yaml:"todos,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset by trace_contains.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Count is used by trace_count.
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order for trace_order.
	Actions []string `yaml:"actions,omitempty"`

	// Counter and Todos are compared by final_state.
	Counter *int64  `yaml:"counter,omitempty"`
	Todos   []int64 `yaml:"todos,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or names actions that cannot be built.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// BuildAction turns a scenario step into a counter action.
func BuildAction(name string, args map[string]interface{}) (counter.Action, error) {
	t, err := counter.ParseType(name)
	if err != nil {
		return nil, err
	}
	obj, err := convertArgs(args)
	if err != nil {
		return nil, err
	}
	return counter.Decode(t, obj)
}

func convertArgs(args map[string]interface{}) (ir.IRObject, error) {
	if args == nil {
		return ir.IRObject{}, nil
	}
	v, err := ir.FromAny(args)
	if err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	return v.(ir.IRObject), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if _, err := BuildAction(step.Action, step.Args); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if step.Dispatch == "" {
			return fmt.Errorf("flow[%d]: dispatch is required", i)
		}
		if _, err := BuildAction(step.Dispatch, step.Args); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Counter == nil && step.Expect.Todos == nil {
			return fmt.Errorf("flow[%d].expect: counter or todos is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Counter == nil && a.Todos == nil {
			return fmt.Errorf("assertions[%d]: counter or todos is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
