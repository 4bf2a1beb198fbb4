package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error raised by the engine itself. Transitions never
// fail; these cover misuse of the container and replay mismatches.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Session identifies the engine instance.
	Session string

	// Seq is the logical clock position involved, if any.
	Seq int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStopped: the engine no longer accepts actions.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeInvalidAction: a nil action was dispatched.
	ErrCodeInvalidAction RuntimeErrorCode = "INVALID_ACTION"

	// ErrCodeWriterActive: Process was called while Run owns the state.
	ErrCodeWriterActive RuntimeErrorCode = "WRITER_ACTIVE"

	// ErrCodeReplayDiverged: re-applying a journal produced a different
	// counter than was recorded.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Session != "" && e.Seq > 0:
		return fmt.Sprintf("%s: %s (session=%s, seq=%d)", e.Code, e.Message, e.Session, e.Seq)
	case e.Session != "":
		return fmt.Sprintf("%s: %s (session=%s)", e.Code, e.Message, e.Session)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsStoppedError reports whether err is (or wraps) an ErrCodeStopped error.
func IsStoppedError(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

// IsReplayDiverged reports whether err is (or wraps) an ErrCodeReplayDiverged error.
func IsReplayDiverged(err error) bool {
	return hasCode(err, ErrCodeReplayDiverged)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newStoppedError(session string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStopped,
		Message: "engine is stopped",
		Session: session,
	}
}

func newInvalidActionError(session string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidAction,
		Message: "action must not be nil",
		Session: session,
	}
}

func newWriterActiveError(session string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeWriterActive,
		Message: "Process called while Run loop is active; use Dispatch",
		Session: session,
	}
}

// NewDivergenceError creates a RuntimeError for a replay mismatch.
func NewDivergenceError(session string, seq, want, got int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReplayDiverged,
		Message: fmt.Sprintf("counter %d does not match recorded %d", got, want),
		Session: session,
		Seq:     seq,
		Details: map[string]string{
			"recorded": fmt.Sprintf("%d", want),
			"replayed": fmt.Sprintf("%d", got),
		},
	}
}
