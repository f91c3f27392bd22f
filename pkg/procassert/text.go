package procassert

import "testing"

// TextAssertions checks captured text, such as the contents of a buffer a
// command wrote to.
type TextAssertions struct {
	t      testing.TB
	actual string
}

// Text returns assertions on actual.
func Text(t testing.TB, actual string) *TextAssertions {
	return &TextAssertions{t: t, actual: actual}
}

// IsEmpty asserts that the text has no content.
func (a *TextAssertions) IsEmpty() *TextAssertions {
	a.t.Helper()
	if a.actual != "" {
		a.t.Fatalf("procassert: expected text to be empty, but has length [%d] and contains %q",
			len(a.actual), a.actual)
	}
	return a
}

// IsEqualTo asserts that the text equals expected.
func (a *TextAssertions) IsEqualTo(expected string) *TextAssertions {
	a.t.Helper()
	if a.actual != expected {
		a.t.Fatalf("procassert: expected text to be %q, but was %q", expected, a.actual)
	}
	return a
}
