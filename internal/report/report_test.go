package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procassert/pkg/procassert"
)

func sampleReport() *Report {
	r := &Report{Title: "cases.yaml", Generated: time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)}
	r.Add(Result{Case: "ok", Command: "echo ok", Duration: 12 * time.Millisecond})
	r.Add(Result{
		Case:     "broken | case",
		Command:  "sh -c `x`",
		ExitCode: 1,
		Errors: []error{
			&procassert.MismatchError{Stream: procassert.Stdout, Expected: "quux", Actual: "<script>alert(1)</script>\n"},
			errors.New("boom"),
		},
	})
	return r
}

func TestMarkdown(t *testing.T) {
	md := sampleReport().Markdown()

	require.Contains(t, md, "# cases.yaml")
	require.Contains(t, md, "Generated 2025-01-07T12:00:00Z.")
	require.Contains(t, md, "**1 passed, 1 failed**")
	require.Contains(t, md, "| ok | pass | 0 | 12ms |")
	require.Contains(t, md, `| broken \| case | **FAIL** | 1 |`)
	require.Contains(t, md, "Command: `sh -c 'x'`")
	require.Contains(t, md, "**mismatch**")
	require.Contains(t, md, "**unknown**")
	require.Contains(t, md, `    expected process stdout to be "quux"`)
	require.NotContains(t, md, "## ok")
}

func TestRenderHTML_Sanitizes(t *testing.T) {
	html := RenderHTML(sampleReport().Markdown())

	require.Contains(t, html, "<table>")
	require.Contains(t, html, "<pre><code>")
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "&lt;script&gt;")
	require.Contains(t, RenderHTML("<script>alert(1)</script>\n\n# hi"), "<h1")
	require.NotContains(t, RenderHTML("<script>alert(1)</script>\n\n# hi"), "<script")
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, sampleReport().WriteFiles(dir))

	md, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(md), "# cases.yaml"))

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	require.Contains(t, string(html), "<title>cases.yaml</title>")
}

func TestFailed(t *testing.T) {
	r := sampleReport()
	require.Equal(t, 1, r.Failed())
	require.True(t, r.Results[0].Passed())
	require.False(t, r.Results[1].Passed())
}
