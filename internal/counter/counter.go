// Package counter is the counter state machine: one int64 and three
// transitions applied by a pure reducer.
//
// The counter starts at 0, has no bounds other than int64 and may go
// negative. Overflow wraps with Go's two's-complement int64 arithmetic.
package counter

import (
	"errors"
	"fmt"

	"github.com/roach88/tally/internal/ir"
)

// State is the counter value.
type State int64

// Initial is the value a counter starts at and returns to on Reset.
const Initial State = 0

// Type names an action kind on the wire and in the journal.
type Type string

const (
	TypeIncrement Type = "counter/increment"
	TypeDecrement Type = "counter/decrement"
	TypeReset     Type = "counter/reset"
)

// Action is a sealed tagged variant: Increment, Decrement or Reset.
type Action interface {
	// Type returns the action's wire name.
	Type() Type
	// Args returns the action payload as an IR object.
	Args() ir.IRObject

	action()
}

// Increment adds Amount to the counter.
type Increment struct {
	Amount int64
}

func (Increment) Type() Type { return TypeIncrement }

func (a Increment) Args() ir.IRObject {
	return ir.IRObject{"amount": ir.IRInt(a.Amount)}
}

func (Increment) action() {}

// Decrement subtracts Amount from the counter.
type Decrement struct {
	Amount int64
}

func (Decrement) Type() Type { return TypeDecrement }

func (a Decrement) Args() ir.IRObject {
	return ir.IRObject{"amount": ir.IRInt(a.Amount)}
}

func (Decrement) action() {}

// Reset returns the counter to Initial.
type Reset struct{}

func (Reset) Type() Type { return TypeReset }

func (Reset) Args() ir.IRObject { return ir.IRObject{} }

func (Reset) action() {}

// Inc returns an Increment action.
func Inc(amount int64) Action { return Increment{Amount: amount} }

// Dec returns a Decrement action.
func Dec(amount int64) Action { return Decrement{Amount: amount} }

// ResetAction returns a Reset action.
func ResetAction() Action { return Reset{} }

// Reduce applies one action to s and returns the next state.
// It has no side effects. A nil action leaves s unchanged.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case Increment:
		return s + State(act.Amount)
	case Decrement:
		return s - State(act.Amount)
	case Reset:
		return Initial
	default:
		return s
	}
}

// Apply folds actions over s in order.
func Apply(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

var (
	// ErrUnknownAction is returned by Decode for an unrecognised type.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrInvalidAmount is returned by Decode when amount is missing or
	// not an integer.
	ErrInvalidAmount = errors.New("amount must be an integer")
)

// Decode rebuilds an action from its wire form.
func Decode(t Type, args ir.IRObject) (Action, error) {
	switch t {
	case TypeIncrement, TypeDecrement:
		amount, ok := args.Int("amount")
		if !ok {
			return nil, fmt.Errorf("%s: %w", t, ErrInvalidAmount)
		}
		if t == TypeIncrement {
			return Increment{Amount: amount}, nil
		}
		return Decrement{Amount: amount}, nil
	case TypeReset:
		return Reset{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownAction)
	}
}

// ParseType accepts a full wire name or its short form ("increment").
func ParseType(name string) (Type, error) {
	switch Type(name) {
	case TypeIncrement, "increment", "inc":
		return TypeIncrement, nil
	case TypeDecrement, "decrement", "dec":
		return TypeDecrement, nil
	case TypeReset, "reset":
		return TypeReset, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownAction)
	}
}
