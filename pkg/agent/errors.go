package agent

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrConfiguration = errors.New("invalid agent configuration")
	ErrDuplicateName = errors.New("duplicated agent name")
	ErrNotFound      = errors.New("agent not found")
	ErrIllegalState  = errors.New("illegal agent state")
	ErrStopTimeout   = errors.New("agent did not stop in time")
	ErrUnsupported   = errors.New("unsupported operation")
)

// StateError is returned when an operation is not allowed in the current
// state of an agent. It never comes with a state change.
type StateError struct {
	Agent  string
	Op     string
	State  State
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s agent %s: %s (state %s)", e.Op, e.Agent, e.Reason, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrIllegalState
}

type StopTimeoutError struct {
	Agent   string
	Elapsed time.Duration
}

func (e *StopTimeoutError) Error() string {
	return fmt.Sprintf("agent %s still running %s after stop was requested", e.Agent, e.Elapsed.Round(time.Millisecond))
}

func (e *StopTimeoutError) Unwrap() error {
	return ErrStopTimeout
}

// TaskError wraps a failure raised by a task body. It is recorded on the
// agent and never propagated to callers of the manager.
type TaskError struct {
	Agent string
	Err   error
	Panic any
}

func (e *TaskError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("task of agent %s panicked: %v", e.Agent, e.Panic)
	}
	return fmt.Sprintf("task of agent %s failed: %s", e.Agent, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

var errorKinds = []struct {
	kind string
	err  error
}{
	{"configuration", ErrConfiguration},
	{"duplicate_name", ErrDuplicateName},
	{"not_found", ErrNotFound},
	{"illegal_state", ErrIllegalState},
	{"stop_timeout", ErrStopTimeout},
	{"unsupported", ErrUnsupported},
}

// ErrorKind names the error class of err, or returns "internal" for errors
// outside the agent taxonomy.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// KindError rebuilds an error of the named class, e.g. on the client side of
// the management API.
func KindError(kind string, message string) error {
	for _, k := range errorKinds {
		if k.kind == kind {
			return &remoteError{kind: k.err, message: message}
		}
	}
	return errors.New(message)
}

type remoteError struct {
	kind    error
	message string
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.kind }
