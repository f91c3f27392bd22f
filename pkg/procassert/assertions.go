package procassert

import (
	"testing"

	"procassert/pkg/rules"
)

// Assertions is a fluent handle for asserting on a finished Process from a
// test. Every failed assertion ends the test through t.Fatalf.
//
// The root handle returned by That holds rules that apply to every stream
// comparison. Printed opens a scope with its own rules and the text to expect;
// ToStdout and ToStderr close that scope and hand back its parent, so one root
// can check both streams:
//
//	procassert.That(t, proc).
//		Succeeded().
//		Excluding("^DEBUG").
//		Printed("hello\n").
//			ToStdout().
//		Printed("").
//			ToStderr()
type Assertions struct {
	t      testing.TB
	proc   Process
	node   *rules.Node
	parent *Assertions

	expected    string
	hasExpected bool
}

// That returns a root Assertions for proc.
func That(t testing.TB, proc Process) *Assertions {
	t.Helper()
	if proc == nil {
		t.Fatalf("procassert: %v: nil process", ErrPrecondition)
	}
	return &Assertions{t: t, proc: proc, node: rules.New()}
}

// Rules exposes the rule node of this scope.
func (a *Assertions) Rules() *rules.Node {
	return a.node
}

func (a *Assertions) check(err error) {
	a.t.Helper()
	if err != nil {
		a.t.Fatalf("procassert: %v", err)
	}
}

// ExitedWith asserts that the process exited with code.
func (a *Assertions) ExitedWith(code int) *Assertions {
	a.t.Helper()
	a.check(ExitedWith(a.proc, code))
	return a
}

// DidNotExitWith asserts that the process exited with a code other than code.
func (a *Assertions) DidNotExitWith(code int) *Assertions {
	a.t.Helper()
	a.check(DidNotExitWith(a.proc, code))
	return a
}

// Succeeded asserts that the process exited with ExitSuccess.
func (a *Assertions) Succeeded() *Assertions {
	a.t.Helper()
	return a.ExitedWith(ExitSuccess)
}

// Failed asserts that the process did not exit with ExitSuccess.
func (a *Assertions) Failed() *Assertions {
	a.t.Helper()
	return a.DidNotExitWith(ExitSuccess)
}

// Excluding ignores lines matching the regular expression pattern.
func (a *Assertions) Excluding(pattern string) *Assertions {
	a.node.Excluding(pattern)
	return a
}

// ExcludingFunc ignores lines for which p returns true.
func (a *Assertions) ExcludingFunc(p rules.Predicate) *Assertions {
	a.node.Exclude(p)
	return a
}

// Including keeps only lines matching pattern or another inclusion of this
// scope.
func (a *Assertions) Including(pattern string) *Assertions {
	a.node.Including(pattern)
	return a
}

// IncludingFunc keeps only lines for which p, or another inclusion of this
// scope, returns true.
func (a *Assertions) IncludingFunc(p rules.Predicate) *Assertions {
	a.node.Include(p)
	return a
}

// Replacing rewrites every match of pattern with replacement.
func (a *Assertions) Replacing(pattern, replacement string) *Assertions {
	a.node.Replacing(pattern, replacement)
	return a
}

// Stripping removes every match of pattern.
func (a *Assertions) Stripping(pattern string) *Assertions {
	a.node.Stripping(pattern)
	return a
}

// StrippingANSI removes terminal color sequences.
func (a *Assertions) StrippingANSI() *Assertions {
	a.node.StrippingANSI()
	return a
}

// Trim removes leading and trailing whitespace from every line.
func (a *Assertions) Trim() *Assertions {
	a.node.Trim()
	return a
}

// Printed opens a scope expecting text. The scope inherits every rule of a
// and its ancestors; rules added to it do not affect a.
func (a *Assertions) Printed(text string) *Assertions {
	return &Assertions{
		t:           a.t,
		proc:        a.proc,
		node:        a.node.Child(),
		parent:      a,
		expected:    text,
		hasExpected: true,
	}
}

// ToStdout asserts that the filtered standard output equals the expected
// text and returns the parent scope.
func (a *Assertions) ToStdout() *Assertions {
	a.t.Helper()
	return a.to(Stdout)
}

// ToStderr asserts that the filtered standard error equals the expected text
// and returns the parent scope.
func (a *Assertions) ToStderr() *Assertions {
	a.t.Helper()
	return a.to(Stderr)
}

func (a *Assertions) to(stream Stream) *Assertions {
	a.t.Helper()
	if !a.hasExpected || a.parent == nil {
		a.t.Fatalf("procassert: %s: %v; call Printed first", stream, ErrNoExpectedText)
		return a
	}
	a.check(Printed(a.node, a.proc, stream, a.expected))
	return a.parent
}
