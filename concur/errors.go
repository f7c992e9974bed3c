package concur

import (
	"errors"
	"fmt"
)

// InvalidArgument reports a synchronous validation failure, such as a
// negative permit count or a negative initial barrier count. Message is
// always of the form "<n> < 0" per the stable error text in spec §6.
type InvalidArgument struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *InvalidArgument) Error() string {
	if e.Message == "" {
		return "invalid argument"
	}
	return e.Message
}

// Unwrap returns the underlying cause, for [errors.Is] and [errors.As].
func (e *InvalidArgument) Unwrap() error { return e.Cause }

// Is reports whether target is also an *InvalidArgument, regardless of
// message or cause.
func (e *InvalidArgument) Is(target error) bool {
	var t *InvalidArgument
	return errors.As(target, &t)
}

// NegativeArgument constructs the stable "<n> < 0" InvalidArgument used
// by the semaphore and barrier constructors/methods whenever a caller
// supplies a negative count.
func NegativeArgument(n int64) *InvalidArgument {
	return &InvalidArgument{Message: fmt.Sprintf("%d < 0", n)}
}

// InvalidState reports an operation attempted on a handle or object that
// is no longer in a state that permits it — releasing an already
// released lock handle, upgrading from a read lock that was already
// released, and so on.
type InvalidState struct {
	Message string
	Cause   error
}

func (e *InvalidState) Error() string {
	if e.Message == "" {
		return "invalid state"
	}
	return e.Message
}

func (e *InvalidState) Unwrap() error { return e.Cause }

func (e *InvalidState) Is(target error) bool {
	var t *InvalidState
	return errors.As(target, &t)
}

// TimedOut reports that a timed acquisition's deadline passed before it
// could be satisfied. Message is always "Timeout expired" per spec §6.
type TimedOut struct {
	Cause error
}

func (e *TimedOut) Error() string { return "Timeout expired" }

func (e *TimedOut) Unwrap() error { return e.Cause }

func (e *TimedOut) Is(target error) bool {
	var t *TimedOut
	return errors.As(target, &t)
}

// ErrTimedOut is a shared, zero-value TimedOut usable with errors.Is
// where no cause needs to be attached.
var ErrTimedOut = &TimedOut{}

// UserComputationFailed wraps a failure returned by a user-supplied
// compute/merge function (or the completion it returned) in
// ConcurrentKeyedMap. The map's backing entry is left unchanged when
// this error is produced.
type UserComputationFailed struct {
	Key   any
	Cause error
}

func (e *UserComputationFailed) Error() string {
	if e.Cause == nil {
		return "user computation failed"
	}
	return fmt.Sprintf("user computation failed: %v", e.Cause)
}

func (e *UserComputationFailed) Unwrap() error { return e.Cause }

func (e *UserComputationFailed) Is(target error) bool {
	var t *UserComputationFailed
	return errors.As(target, &t)
}
