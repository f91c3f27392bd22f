// Package rules implements inheritable line filters.
//
// A Node holds three ordered rule lists: exclusions, inclusions and rewrites.
// Nodes form a chain through Child; every node borrows its parent and consults
// it before its own rules, so rules registered on an ancestor always run first
// and an ancestor's rejection cannot be overridden by a descendant.
//
// Rule lists are append-only. A Node is built by one goroutine and then only
// read, so a finished chain may be shared by readers but must not be extended
// concurrently.
package rules

import (
	"io"
	"regexp"
	"strings"

	"procassert/pkg/lines"
)

// trimPattern removes leading and trailing whitespace, including the line feed.
var trimPattern = regexp.MustCompile(`^\s+|\s+$`)

// ansiPattern matches SGR color sequences such as "\x1b[1;31m".
var ansiPattern = regexp.MustCompile(`\x1b\[(?:\d+(?:;\d+)*)?m`)

// Rewrite replaces every match of Pattern with Replacement. Unless Literal is
// set, Replacement may refer to submatches as in regexp.Regexp.Expand.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
	Literal     bool
}

// apply substitutes only when the pattern occurs at least once.
func (rw Rewrite) apply(line string) string {
	if !rw.Pattern.MatchString(line) {
		return line
	}
	if rw.Literal {
		return rw.Pattern.ReplaceAllLiteralString(line, rw.Replacement)
	}
	return rw.Pattern.ReplaceAllString(line, rw.Replacement)
}

// Node is one link in a rule chain.
type Node struct {
	parent     *Node
	depth      int
	exclusions []Predicate
	inclusions []Predicate
	rewrites   []Rewrite
}

// New returns a root node with no rules.
func New() *Node {
	return &Node{}
}

// Child returns a new, empty node whose parent is n.
func (n *Node) Child() *Node {
	return &Node{parent: n, depth: n.depth + 1}
}

// Parent returns the node n was created from, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Depth is the number of Child calls between the root and n.
func (n *Node) Depth() int {
	return n.depth
}

// Exclude rejects every line matching p.
func (n *Node) Exclude(p Predicate) *Node {
	mustPredicate(p)
	n.exclusions = append(n.exclusions, p)
	return n
}

// Include restricts n to lines matching at least one inclusion.
func (n *Node) Include(p Predicate) *Node {
	mustPredicate(p)
	n.inclusions = append(n.inclusions, p)
	return n
}

// Rewrite appends a rewrite rule.
func (n *Node) Rewrite(rw Rewrite) *Node {
	if rw.Pattern == nil {
		panic("rules: nil rewrite pattern")
	}
	n.rewrites = append(n.rewrites, rw)
	return n
}

// Excluding rejects lines matching the regular expression pattern.
func (n *Node) Excluding(pattern string) *Node {
	return n.Exclude(Match(pattern))
}

// Including accepts only lines matching the regular expression pattern, or
// any other inclusion registered on n.
func (n *Node) Including(pattern string) *Node {
	return n.Include(Match(pattern))
}

// Replacing rewrites every match of pattern with replacement. Submatch
// references like $1 are expanded.
func (n *Node) Replacing(pattern, replacement string) *Node {
	return n.Rewrite(Rewrite{Pattern: regexp.MustCompile(pattern), Replacement: replacement})
}

// ReplacingLiteral rewrites every occurrence of old with replacement, both
// taken verbatim.
func (n *Node) ReplacingLiteral(old, replacement string) *Node {
	return n.Rewrite(Rewrite{
		Pattern:     regexp.MustCompile(regexp.QuoteMeta(old)),
		Replacement: replacement,
		Literal:     true,
	})
}

// Stripping removes every match of pattern.
func (n *Node) Stripping(pattern string) *Node {
	return n.Replacing(pattern, "")
}

// StrippingANSI removes terminal color sequences.
func (n *Node) StrippingANSI() *Node {
	return n.Rewrite(Rewrite{Pattern: ansiPattern, Literal: true})
}

// Trim removes leading and trailing whitespace from each line. The trailing
// line feed counts as whitespace.
func (n *Node) Trim() *Node {
	return n.Rewrite(Rewrite{Pattern: trimPattern, Literal: true})
}

// Decide reports whether line is kept by the chain ending at n.
func (n *Node) Decide(line string) bool {
	if n.parent != nil && !n.parent.Decide(line) {
		return false
	}
	for _, exclude := range n.exclusions {
		if exclude(line) {
			return false
		}
	}
	if len(n.inclusions) == 0 {
		return true
	}
	for _, include := range n.inclusions {
		if include(line) {
			return true
		}
	}
	return false
}

// Transform applies the rewrites of every ancestor, root first, and then
// those of n in registration order.
func (n *Node) Transform(line string) string {
	if n.parent != nil {
		line = n.parent.Transform(line)
	}
	for _, rw := range n.rewrites {
		line = rw.apply(line)
	}
	return line
}

// Apply reads r to the end and returns the concatenation of every kept line
// after transformation. The error is non-nil only when r could not be read
// or decoded; the text accumulated up to that point is still returned.
func (n *Node) Apply(r io.Reader) (string, error) {
	var out strings.Builder
	sc := lines.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if n.Decide(line) {
			out.WriteString(n.Transform(line))
		}
	}
	return out.String(), sc.Err()
}
