// Package procassert asserts on the exit status and output of finished child
// processes.
//
// Output is compared line by line after filtering. Lines are assembled as a
// terminal shows them (see package lines): a carriage return discards the
// line so far and a line feed ends it. Each line is then passed through a
// chain of rules (see package rules). Lines the chain keeps are rewritten and
// concatenated, and the result must equal the expected text exactly.
//
// # Scopes
//
// Rules live in scopes. The root scope created by [That] applies to every
// comparison made from it. [Assertions.Printed] opens a child scope carrying
// the expected text; its rules apply after the parent's and only to that one
// comparison. [Assertions.ToStdout] and [Assertions.ToStderr] return the
// parent, so a single chain can check both streams:
//
//	procassert.That(t, proc).
//		Excluding("IGNORE").
//		Replacing("quo", "foo").
//		Printed("quux").
//			Including("foo").
//			Excluding("quo").
//			Replacing("bar", "quux").
//			Stripping("foo").
//			Trim().
//			ToStdout()
//
// A parent's rejection of a line is final. Within a scope an exclusion beats
// an inclusion, and when a scope has any inclusions a line must match at
// least one of them.
//
// # Errors
//
// The functions [ExitedWith], [DidNotExitWith], [Succeeded], [Failed] and
// [Printed] return errors instead of failing a test. They distinguish a
// [MismatchError] from a [StreamReadError] and from misuse reported as
// [ErrPrecondition]; use [Classify] to tell them apart.
//
// # Concurrency
//
// Nothing here starts, waits on or kills a process. Reading one stream of a
// live process to the end before the other can deadlock once the unread pipe
// fills up. Processes produced by procassert/pkg/runner buffer both
// streams and are safe to check in any order.
package procassert
