package xyzbank

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeoutExceeded is matched by every error returned when a wait
	// condition did not become true within the configured bound.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrPreconditionViolation is matched by errors signalling a defect in
	// the calling sequence, such as consuming a dialog that was never awaited.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrNoSuchElement reports that a locator matched nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement reports that a handle no longer refers to a node in the
	// current document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrNoDialog reports that no JavaScript dialog is open.
	ErrNoDialog = errors.New("no such alert")
)

// TimeoutError is returned by a wait that never saw its condition hold.
type TimeoutError struct {
	// Condition names what was awaited, e.g. "visible".
	Condition string
	// Target names the element or object the condition was evaluated on.
	Target string
	// Timeout is the bound that elapsed.
	Timeout time.Duration
	// Last is the transient error of the final poll, if it had one.
	Last error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s to be %s", e.Timeout, e.Target, e.Condition)
	if e.Last != nil {
		msg += ": last error: " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// Is makes errors.Is(err, ErrTimeoutExceeded) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeoutExceeded
}

// PreconditionError is returned when an operation is invoked in a state it
// does not support.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Reason)
}

// Is makes errors.Is(err, ErrPreconditionViolation) true.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionViolation
}

// IsTransient reports whether err only means "the element is not there
// yet": a missing or stale element. Waits keep polling on transient errors.
// A timeout is never transient, even when its last cause was.
func IsTransient(err error) bool {
	if errors.Is(err, ErrTimeoutExceeded) {
		return false
	}
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}
