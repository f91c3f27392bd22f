// Package report summarizes case results as markdown and sanitized HTML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"procassert/pkg/procassert"
)

// Result is the outcome of one case.
type Result struct {
	Case     string
	Command  string
	ExitCode int
	Duration time.Duration
	Errors   []error
}

// Passed reports whether every check of the case held.
func (r Result) Passed() bool {
	return len(r.Errors) == 0
}

// Report collects the results of one invocation.
type Report struct {
	Title     string
	Generated time.Time
	Results   []Result
}

// Add appends a result.
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Failed counts the failing results.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if !r.Generated.IsZero() {
		fmt.Fprintf(&b, "Generated %s.\n\n", r.Generated.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "**%d passed, %d failed**\n\n", len(r.Results)-r.Failed(), r.Failed())

	b.WriteString("| Case | Result | Exit | Duration |\n|---|---|---|---|\n")
	for _, res := range r.Results {
		status := "pass"
		if !res.Passed() {
			status = "**FAIL**"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", cell(res.Case), status, res.ExitCode, res.Duration.Round(time.Millisecond))
	}

	for _, res := range r.Results {
		if res.Passed() {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", res.Case)
		fmt.Fprintf(&b, "Command: `%s`\n\n", strings.ReplaceAll(res.Command, "`", "'"))
		for _, err := range res.Errors {
			fmt.Fprintf(&b, "**%s**\n\n", procassert.Classify(err))
			// Indented code blocks cannot be closed early by the content.
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// RenderHTML converts markdown to sanitized HTML.
func RenderHTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.AutoHeadingIDs),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3")
	return string(policy.SanitizeBytes(unsafeHTML))
}

// WriteFiles writes report.md and report.html into dir.
func (r *Report) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	md := r.Markdown()
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write report.md: %w", err)
	}
	page := "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>" +
		bluemonday.StrictPolicy().Sanitize(r.Title) + "</title></head><body>\n" +
		RenderHTML(md) + "</body></html>\n"
	if err := os.WriteFile(filepath.Join(dir, "report.html"), []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write report.html: %w", err)
	}
	return nil
}
