package procassert

import (
	"fmt"
	"io"
)

// ExitSuccess is the exit code of a process that completed successfully.
const ExitSuccess = 0

// Stream names one of the two output streams of a process.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Process is a child process whose output is being asserted on. It is
// borrowed for the duration of an assertion and never started, waited on or
// killed by this package.
//
// Stdout and Stderr are independent streams. Draining one to the end while the
// process is still writing a large amount to the other can deadlock on the
// pipe buffer; use a Process whose streams are already buffered (see
// pkg/runner) when both are large.
type Process interface {
	// Exited reports whether the process has terminated.
	Exited() bool
	// ExitCode is valid only once Exited returns true.
	ExitCode() int
	Stdout() io.Reader
	Stderr() io.Reader
}

func reader(proc Process, stream Stream) (io.Reader, error) {
	switch stream {
	case Stdout:
		return proc.Stdout(), nil
	case Stderr:
		return proc.Stderr(), nil
	default:
		return nil, fmt.Errorf("%w: unknown stream %q", ErrPrecondition, stream)
	}
}
