package procassert

import (
	"fmt"

	"procassert/pkg/rules"
)

func exitCode(proc Process) (int, error) {
	if proc == nil {
		return 0, fmt.Errorf("%w: nil process", ErrPrecondition)
	}
	if !proc.Exited() {
		return 0, ErrNotTerminated
	}
	return proc.ExitCode(), nil
}

// ExitedWith checks that proc terminated with code.
func ExitedWith(proc Process, code int) error {
	actual, err := exitCode(proc)
	if err != nil {
		return err
	}
	if actual != code {
		return &MismatchError{ExpectedCode: code, ActualCode: actual}
	}
	return nil
}

// DidNotExitWith checks that proc terminated with any code other than code.
func DidNotExitWith(proc Process, code int) error {
	actual, err := exitCode(proc)
	if err != nil {
		return err
	}
	if actual == code {
		return &MismatchError{ExpectedCode: code, ActualCode: actual, Negated: true}
	}
	return nil
}

// Succeeded checks that proc exited with ExitSuccess.
func Succeeded(proc Process) error {
	return ExitedWith(proc, ExitSuccess)
}

// Failed checks that proc exited with anything but ExitSuccess.
func Failed(proc Process) error {
	return DidNotExitWith(proc, ExitSuccess)
}

// Printed drains stream through the rule chain ending at node and compares the
// kept, rewritten text with expected. Comparison is literal.
func Printed(node *rules.Node, proc Process, stream Stream, expected string) error {
	if node == nil || proc == nil {
		return fmt.Errorf("%w: nil rule node or process", ErrPrecondition)
	}
	r, err := reader(proc, stream)
	if err != nil {
		return err
	}
	actual, err := node.Apply(r)
	if err != nil {
		return &StreamReadError{Stream: stream, Err: err}
	}
	if actual != expected {
		return &MismatchError{Stream: stream, Expected: expected, Actual: actual}
	}
	return nil
}
