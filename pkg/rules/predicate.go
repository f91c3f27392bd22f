package rules

import (
	"regexp"
	"strings"
)

// A Predicate reports whether a line matches. Lines passed to a Predicate
// include their trailing line feed, if any.
type Predicate func(line string) bool

// Contains matches lines containing substr.
func Contains(substr string) Predicate {
	return func(line string) bool {
		return strings.Contains(line, substr)
	}
}

// HasPrefix matches lines starting with prefix.
func HasPrefix(prefix string) Predicate {
	return func(line string) bool {
		return strings.HasPrefix(line, prefix)
	}
}

// Match matches lines in which the regular expression finds a match anywhere.
// An invalid pattern panics.
func Match(pattern string) Predicate {
	return MatchRegexp(regexp.MustCompile(pattern))
}

// MatchRegexp is Match for an already compiled expression.
func MatchRegexp(re *regexp.Regexp) Predicate {
	if re == nil {
		panic("rules: nil regexp")
	}
	return re.MatchString
}

// Not inverts p.
func Not(p Predicate) Predicate {
	mustPredicate(p)
	return func(line string) bool {
		return !p(line)
	}
}

// Any matches when at least one of ps matches.
func Any(ps ...Predicate) Predicate {
	for _, p := range ps {
		mustPredicate(p)
	}
	return func(line string) bool {
		for _, p := range ps {
			if p(line) {
				return true
			}
		}
		return false
	}
}

// All matches when every one of ps matches.
func All(ps ...Predicate) Predicate {
	for _, p := range ps {
		mustPredicate(p)
	}
	return func(line string) bool {
		for _, p := range ps {
			if !p(line) {
				return false
			}
		}
		return true
	}
}

func mustPredicate(p Predicate) {
	if p == nil {
		panic("rules: nil predicate")
	}
}
