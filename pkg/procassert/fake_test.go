package procassert

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

type fakeProcess struct {
	exited bool
	code   int
	stdout io.Reader
	stderr io.Reader
}

func (p *fakeProcess) Exited() bool      { return p.exited }
func (p *fakeProcess) ExitCode() int     { return p.code }
func (p *fakeProcess) Stdout() io.Reader { return p.stdout }
func (p *fakeProcess) Stderr() io.Reader { return p.stderr }

func exitedProcess(code int, stdout, stderr string) *fakeProcess {
	return &fakeProcess{
		exited: true,
		code:   code,
		stdout: bytes.NewBufferString(stdout),
		stderr: bytes.NewBufferString(stderr),
	}
}

// fatalTB records the first Fatalf and stops the calling function by
// panicking, which runFatal recovers.
type fatalTB struct {
	testing.TB
	messages []string
}

type fatalSignal struct{}

func (f *fatalTB) Helper() {}

func (f *fatalTB) Fatalf(format string, args ...any) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
	panic(fatalSignal{})
}

// runFatal runs fn against a fatalTB and returns the failure message, or ""
// when fn finished without failing.
func runFatal(t *testing.T, fn func(tb testing.TB)) (msg string) {
	t.Helper()
	tb := &fatalTB{TB: t}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(fatalSignal); !ok {
				panic(r)
			}
			msg = tb.messages[0]
		}
	}()
	fn(tb)
	return ""
}
