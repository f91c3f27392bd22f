package procassert

import (
	"errors"
	"fmt"
)

// Class groups assertion errors by what the caller should do about them.
type Class int

const (
	// ClassUnknown is any error not produced by this package.
	ClassUnknown Class = iota
	// ClassMismatch means the process behaved differently than expected.
	ClassMismatch
	// ClassStreamRead means the output could not be read or decoded.
	ClassStreamRead
	// ClassPrecondition means the package was misused.
	ClassPrecondition
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassMismatch:
		return "mismatch"
	case ClassStreamRead:
		return "stream-read"
	case ClassPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

var (
	ErrMismatch     = errors.New("assertion mismatch")
	ErrStreamRead   = errors.New("stream read failure")
	ErrPrecondition = errors.New("precondition violated")

	// ErrNotTerminated is returned when an exit code is requested from a
	// process that is still running.
	ErrNotTerminated = fmt.Errorf("%w: process has not terminated", ErrPrecondition)
	// ErrNoExpectedText is returned when a stream is compared on a scope that
	// was not opened with Printed.
	ErrNoExpectedText = fmt.Errorf("%w: no expected text", ErrPrecondition)
)

// MismatchError describes an assertion that did not hold. Exactly one of the
// stream or exit code fields is meaningful, depending on Stream.
type MismatchError struct {
	// Stream is empty for exit code assertions.
	Stream   Stream
	Expected string
	Actual   string

	ExpectedCode int
	ActualCode   int
	// Negated is set for "did not exit with" assertions.
	Negated bool
}

func (e *MismatchError) Error() string {
	switch {
	case e.Stream != "":
		return fmt.Sprintf("expected process %s to be %q, but was %q", e.Stream, e.Expected, e.Actual)
	case e.Negated:
		return fmt.Sprintf("did not expect process to exit with [%d], but was [%d]", e.ExpectedCode, e.ActualCode)
	default:
		return fmt.Sprintf("expected process to exit with [%d], but was [%d]", e.ExpectedCode, e.ActualCode)
	}
}

// Is makes every MismatchError match ErrMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// StreamReadError wraps a failure to read or decode a process stream.
type StreamReadError struct {
	Stream Stream
	Err    error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("reading process %s: %v", e.Stream, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// Is makes every StreamReadError match ErrStreamRead.
func (e *StreamReadError) Is(target error) bool {
	return target == ErrStreamRead
}

// Classify reports the Class of err.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrPrecondition):
		return ClassPrecondition
	case errors.Is(err, ErrStreamRead):
		return ClassStreamRead
	case errors.Is(err, ErrMismatch):
		return ClassMismatch
	default:
		return ClassUnknown
	}
}
