// Package casefile loads declarative process assertions from YAML.
//
// A case file lists cases; each names a command, the exit status to expect,
// and the text each stream must print after filtering:
//
//	cases:
//	  - name: greeting
//	    shell: echo hello; echo IGNORE me
//	    exit:
//	      success: true
//	    rules:
//	      - exclude: IGNORE
//	    stdout:
//	      expected: "hello\n"
//
// Rules are applied in the order listed. Case-level rules apply to both
// streams; stream-level rules apply after them to that stream only.
package casefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"procassert/pkg/procassert"
	"procassert/pkg/rules"
	"procassert/pkg/runner"
)

// DefaultTimeout bounds a case that sets no timeout of its own.
const DefaultTimeout = time.Minute

// File is the top-level document.
type File struct {
	Cases []*Case `yaml:"cases"`

	path string
}

// Case is one command and its expectations.
type Case struct {
	Name    string        `yaml:"name"`
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Shell   string        `yaml:"shell"`
	Env     []string      `yaml:"env"`
	Dir     string        `yaml:"dir"`
	TTY     bool          `yaml:"tty"`
	Timeout time.Duration `yaml:"timeout"`
	Exit    *Exit         `yaml:"exit"`
	Rules   []Rule        `yaml:"rules"`
	Stdout  *Output       `yaml:"stdout"`
	Stderr  *Output       `yaml:"stderr"`

	base string
}

// Exit constrains the exit status. At most one field may be set.
type Exit struct {
	Code    *int  `yaml:"code"`
	Not     *int  `yaml:"not"`
	Success *bool `yaml:"success"`
}

// Output is the expectation for one stream.
type Output struct {
	Expected     *string `yaml:"expected"`
	ExpectedFile string  `yaml:"expected_file"`
	Rules        []Rule  `yaml:"rules"`
}

// Rule is one filter step. Exactly one action must be set.
type Rule struct {
	Exclude   string  `yaml:"exclude"`
	Include   string  `yaml:"include"`
	Replace   string  `yaml:"replace"`
	With      *string `yaml:"with"`
	Literal   bool    `yaml:"literal"`
	Strip     string  `yaml:"strip"`
	StripANSI bool    `yaml:"strip_ansi"`
	Trim      bool    `yaml:"trim"`
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid case file")

// Load reads and validates the case file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	f, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Parse decodes a case file. Relative paths in it resolve against base.
func Parse(data []byte, base string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("%w: no cases", ErrInvalid)
	}
	seen := map[string]bool{}
	for i, c := range f.Cases {
		if c == nil {
			return nil, fmt.Errorf("%w: case %d is empty", ErrInvalid, i)
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate case name %q", ErrInvalid, c.Name)
		}
		seen[c.Name] = true
		c.base = base
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("%w: case %q: %w", ErrInvalid, c.Name, err)
		}
	}
	return &f, nil
}

// Path returns the file the cases were loaded from.
func (f *File) Path() string {
	return f.path
}

func (c *Case) validate() error {
	switch {
	case c.Command == "" && c.Shell == "":
		return errors.New("one of command or shell is required")
	case c.Command != "" && c.Shell != "":
		return errors.New("command and shell are mutually exclusive")
	case c.Shell != "" && len(c.Args) > 0:
		return errors.New("args cannot be combined with shell")
	case c.Timeout < 0:
		return errors.New("timeout must not be negative")
	}
	if c.Exit != nil {
		set := 0
		for _, ok := range []bool{c.Exit.Code != nil, c.Exit.Not != nil, c.Exit.Success != nil} {
			if ok {
				set++
			}
		}
		if set != 1 {
			return errors.New("exit needs exactly one of code, not or success")
		}
	}
	if _, err := c.Root(); err != nil {
		return err
	}
	for _, o := range []*Output{c.Stdout, c.Stderr} {
		if o == nil {
			continue
		}
		if (o.Expected == nil) == (o.ExpectedFile == "") {
			return errors.New("stream needs exactly one of expected or expected_file")
		}
		if err := addRules(rules.New(), o.Rules); err != nil {
			return err
		}
	}
	return nil
}

// RunCommand returns what to run for c.
func (c *Case) RunCommand() runner.Command {
	var cmd runner.Command
	if c.Shell != "" {
		cmd = runner.Shell(c.Shell)
	} else {
		cmd = runner.Command{Name: c.Command, Args: c.Args}
	}
	cmd.Env = c.Env
	cmd.TTY = c.TTY
	cmd.Dir = c.Dir
	if cmd.Dir != "" && !filepath.IsAbs(cmd.Dir) {
		cmd.Dir = filepath.Join(c.base, cmd.Dir)
	}
	return cmd
}

// Deadline returns the timeout for running c.
func (c *Case) Deadline() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Root builds the case-level rule node.
func (c *Case) Root() (*rules.Node, error) {
	root := rules.New()
	if err := addRules(root, c.Rules); err != nil {
		return nil, err
	}
	return root, nil
}

func addRules(n *rules.Node, steps []Rule) error {
	for i, r := range steps {
		if err := r.add(n); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return nil
}

func (r Rule) add(n *rules.Node) error {
	actions := 0
	for _, ok := range []bool{r.Exclude != "", r.Include != "", r.Replace != "", r.Strip != "", r.StripANSI, r.Trim} {
		if ok {
			actions++
		}
	}
	if actions != 1 {
		return errors.New("needs exactly one of exclude, include, replace, strip, strip_ansi or trim")
	}
	if (r.With != nil) != (r.Replace != "") {
		return errors.New("with belongs to replace")
	}
	if r.Literal && r.Replace == "" {
		return errors.New("literal belongs to replace")
	}

	switch {
	case r.Exclude != "":
		re, err := regexp.Compile(r.Exclude)
		if err != nil {
			return err
		}
		n.Exclude(rules.MatchRegexp(re))
	case r.Include != "":
		re, err := regexp.Compile(r.Include)
		if err != nil {
			return err
		}
		n.Include(rules.MatchRegexp(re))
	case r.Replace != "" && r.Literal:
		n.ReplacingLiteral(r.Replace, *r.With)
	case r.Replace != "":
		re, err := regexp.Compile(r.Replace)
		if err != nil {
			return err
		}
		n.Rewrite(rules.Rewrite{Pattern: re, Replacement: *r.With})
	case r.Strip != "":
		re, err := regexp.Compile(r.Strip)
		if err != nil {
			return err
		}
		n.Rewrite(rules.Rewrite{Pattern: re, Literal: true})
	case r.StripANSI:
		n.StrippingANSI()
	case r.Trim:
		n.Trim()
	}
	return nil
}

func (o *Output) expected(base string) (string, error) {
	if o.Expected != nil {
		return *o.Expected, nil
	}
	path := o.ExpectedFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read expected_file: %w", err)
	}
	return string(data), nil
}

// Verify checks proc against every expectation of c and returns one error
// per failed check, in the order exit, stdout, stderr.
func (c *Case) Verify(proc procassert.Process) []error {
	var errs []error
	if err := c.verifyExit(proc); err != nil {
		errs = append(errs, err)
	}

	root, err := c.Root()
	if err != nil {
		return append(errs, err)
	}
	for _, s := range []struct {
		stream procassert.Stream
		out    *Output
	}{{procassert.Stdout, c.Stdout}, {procassert.Stderr, c.Stderr}} {
		if s.out == nil {
			continue
		}
		if err := c.verifyStream(root, proc, s.stream, s.out); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Case) verifyExit(proc procassert.Process) error {
	switch {
	case c.Exit == nil:
		return nil
	case c.Exit.Code != nil:
		return procassert.ExitedWith(proc, *c.Exit.Code)
	case c.Exit.Not != nil:
		return procassert.DidNotExitWith(proc, *c.Exit.Not)
	case *c.Exit.Success:
		return procassert.Succeeded(proc)
	default:
		return procassert.Failed(proc)
	}
}

func (c *Case) verifyStream(root *rules.Node, proc procassert.Process, stream procassert.Stream, out *Output) error {
	expected, err := out.expected(c.base)
	if err != nil {
		return err
	}
	node := root.Child()
	if err := addRules(node, out.Rules); err != nil {
		return err
	}
	return procassert.Printed(node, proc, stream, expected)
}
