package counter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/ir"
)

var samples = []int64{0, 1, -1, 7, -42, 1 << 40, math.MaxInt32}

func TestReduce_Increment(t *testing.T) {
	for _, s := range samples {
		for _, a := range samples {
			assert.Equal(t, State(s+a), Reduce(State(s), Inc(a)), "increment(%d) on %d", a, s)
		}
	}
}

func TestReduce_Decrement(t *testing.T) {
	for _, s := range samples {
		for _, a := range samples {
			assert.Equal(t, State(s-a), Reduce(State(s), Dec(a)), "decrement(%d) on %d", a, s)
		}
	}
}

func TestReduce_Reset(t *testing.T) {
	for _, s := range samples {
		assert.Equal(t, Initial, Reduce(State(s), ResetAction()))
	}
}

func TestReduce_InverseLaw(t *testing.T) {
	for _, s := range samples {
		for _, a := range samples {
			assert.Equal(t, State(s), Apply(State(s), Inc(a), Dec(a)))
			assert.Equal(t, State(s), Apply(State(s), Dec(a), Inc(a)))
		}
	}
}

func TestReduce_NilActionIsIdentity(t *testing.T) {
	assert.Equal(t, State(5), Reduce(5, nil))
}

func TestReduce_Overflow(t *testing.T) {
	// Wrapping is Go's int64 semantics.
	assert.Equal(t, State(math.MinInt64), Reduce(math.MaxInt64, Inc(1)))
	assert.Equal(t, State(math.MaxInt64), Reduce(math.MinInt64, Dec(1)))
}

func TestApply_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		start   State
		actions []Action
		want    State
	}{
		{"three increments", 0, []Action{Inc(1), Inc(1), Inc(1)}, 3},
		{"increment then decrement", 0, []Action{Inc(5), Dec(2)}, 3},
		{"reset from three", 3, []Action{ResetAction()}, 0},
		{"decrement below zero", 0, []Action{Dec(4)}, -4},
		{"empty sequence", 9, nil, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.start, tt.actions...))
		})
	}
}

func TestApply_SequenceDeterminism(t *testing.T) {
	seq := []Action{Inc(10), Dec(3), ResetAction(), Dec(8), Inc(2), Inc(-5)}

	first := Apply(Initial, seq...)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Apply(Initial, seq...))
	}
	assert.Equal(t, State(-11), first)
}

func TestActionWireForm(t *testing.T) {
	tests := []struct {
		action Action
		typ    Type
		args   ir.IRObject
	}{
		{Inc(3), TypeIncrement, ir.IRObject{"amount": ir.IRInt(3)}},
		{Dec(-2), TypeDecrement, ir.IRObject{"amount": ir.IRInt(-2)}},
		{ResetAction(), TypeReset, ir.IRObject{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.action.Type())
			assert.Equal(t, tt.args, tt.action.Args())

			decoded, err := Decode(tt.action.Type(), tt.action.Args())
			require.NoError(t, err)
			assert.Equal(t, tt.action, decoded)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("counter/multiply", ir.IRObject{})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Decode(TypeIncrement, ir.IRObject{})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Decode(TypeDecrement, ir.IRObject{"amount": ir.IRString("2")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseType(t *testing.T) {
	for input, want := range map[string]Type{
		"increment":         TypeIncrement,
		"inc":               TypeIncrement,
		"counter/decrement": TypeDecrement,
		"dec":               TypeDecrement,
		"reset":             TypeReset,
	} {
		got, err := ParseType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("Increment")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
