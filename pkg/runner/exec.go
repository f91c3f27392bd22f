package runner

import "testing"

// Exec runs c for a test and fails it if the command cannot be run. The run
// is canceled when the test ends.
func Exec(t testing.TB, c Command) *Result {
	t.Helper()
	res, err := Run(t.Context(), c)
	if err != nil {
		t.Fatalf("runner: %s: %v", c, err)
	}
	return res
}
