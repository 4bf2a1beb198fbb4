package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/harness"
)

// Script is a list of actions for `run` and `replay`.
//
//	session: demo
//	todos: [1, 2, 3]
//	actions:
//	  - type: increment
//	    amount: 5
//	  - type: reset
type Script struct {
	// Session fixes the session token. Empty means a fresh UUIDv7.
	Session string `yaml:"session,omitempty"`

	// Todos overrides the configured placeholder collection.
	Todos []int64 `yaml:"todos,omitempty"`

	Actions []ScriptStep `yaml:"actions"`
}

// ScriptStep is one action of a script.
type ScriptStep struct {
	Type   string `yaml:"type"`
	Amount *int64 `yaml:"amount,omitempty"`
}

// LoadScript reads a script file. Unknown fields are rejected.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Actions) == 0 {
		return nil, fmt.Errorf("script %s: actions list is required and must be non-empty", path)
	}
	return &s, nil
}

// Build turns the script steps into actions.
func (s *Script) Build() ([]counter.Action, error) {
	actions := make([]counter.Action, 0, len(s.Actions))
	for i, step := range s.Actions {
		var args map[string]interface{}
		if step.Amount != nil {
			args = map[string]interface{}{"amount": *step.Amount}
		}
		a, err := harness.BuildAction(step.Type, args)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// ParseActions reads command-line tokens such as `inc 5 dec 2 reset`.
// Increment and decrement consume the following token as their amount.
func ParseActions(tokens []string) ([]counter.Action, error) {
	var actions []counter.Action
	for i := 0; i < len(tokens); i++ {
		t, err := counter.ParseType(tokens[i])
		if err != nil {
			return nil, err
		}
		if t == counter.TypeReset {
			actions = append(actions, counter.ResetAction())
			continue
		}

		if i+1 >= len(tokens) {
			return nil, fmt.Errorf("%s: missing amount: %w", tokens[i], counter.ErrInvalidAmount)
		}
		i++
		amount, err := strconv.ParseInt(tokens[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", t, tokens[i], counter.ErrInvalidAmount)
		}
		if t == counter.TypeIncrement {
			actions = append(actions, counter.Inc(amount))
		} else {
			actions = append(actions, counter.Dec(amount))
		}
	}
	return actions, nil
}
