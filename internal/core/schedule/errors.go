package schedule

import (
	"errors"
	"fmt"

	"github.com/l1jgo/tickrun/internal/core/system"
)

var (
	ErrPoolClosed       = errors.New("schedule: thread pool closed")
	ErrAliasedExclusive = errors.New("schedule: exclusive system sent to a worker")
	ErrStalled          = errors.New("schedule: dispatcher stalled")
)

// StructuralError reports a reference to an unknown schedule, phase or
// system.
type StructuralError struct {
	Kind  string
	Label string
	Err   error
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("schedule: unknown %s %s", e.Kind, e.Label)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

// RuntimeError wraps the error returned by a system's Run.
type RuntimeError struct {
	System string
	ID     system.ID
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("system %s failed: %v", e.System, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// PanicError carries a recovered panic from a system or from the dispatcher
// itself (System is empty in that case).
type PanicError struct {
	System string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	if e.System == "" {
		return fmt.Sprintf("scheduler coordinator panicked: %v", e.Value)
	}
	return fmt.Sprintf("system %s panicked: %v", e.System, e.Value)
}

// MisuseError reports an API contract violation, such as a system touching
// data it did not declare.
type MisuseError struct {
	System string
	Err    error
}

func (e *MisuseError) Error() string {
	if e.System == "" {
		return fmt.Sprintf("schedule: misuse: %v", e.Err)
	}
	return fmt.Sprintf("schedule: misuse by system %s: %v", e.System, e.Err)
}

func (e *MisuseError) Unwrap() error { return e.Err }
