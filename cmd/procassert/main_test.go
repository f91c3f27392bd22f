package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"procassert/internal/casefile"
	"procassert/internal/recording"
)

const passingCases = `cases:
  - name: hello
    shell: echo hello; echo IGNORE me; echo warn >&2
    exit: {success: true}
    rules:
      - exclude: IGNORE
    stdout:
      expected: "hello\n"
    stderr:
      expected: "warn\n"
  - name: failure exit
    command: sh
    args: ["-c", "exit 4"]
    exit: {code: 4}
`

const failingCase = `cases:
  - name: wrong output
    shell: echo actual
    stdout:
      expected: "expected\n"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, reportDir, recordDir, runFilter = false, "", "", ""
	recordTTY, recordPath, replayDir, replayCase = false, "", "", ""
	timeout = casefile.DefaultTimeout

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCheck_Passing(t *testing.T) {
	path := writeCases(t, passingCases)
	reports := filepath.Join(t.TempDir(), "reports")

	out, err := execute(t, "check", path, "--report-dir", reports)
	require.NoError(t, err)
	require.Contains(t, out, "PASS hello")
	require.Contains(t, out, "PASS failure exit")
	require.Contains(t, out, "ok: 2 cases passed")

	require.FileExists(t, filepath.Join(reports, "report.md"))
	require.FileExists(t, filepath.Join(reports, "report.html"))
}

func TestCheck_Failing(t *testing.T) {
	path := writeCases(t, failingCase)

	out, err := execute(t, "check", path)
	require.EqualError(t, err, "1 of 1 cases failed")
	require.Contains(t, out, "FAIL wrong output")
	require.Contains(t, out, `mismatch: expected process stdout to be "expected\n", but was "actual\n"`)
}

func TestCheck_RunFilter(t *testing.T) {
	path := writeCases(t, passingCases)

	out, err := execute(t, "check", path, "--run", "^hello$")
	require.NoError(t, err)
	require.Contains(t, out, "PASS hello")
	require.NotContains(t, out, "failure exit")

	_, err = execute(t, "check", path, "--run", "(")
	require.ErrorContains(t, err, "invalid --run expression")
}

func TestCheck_InvalidCaseFile(t *testing.T) {
	path := writeCases(t, "cases: []\n")
	_, err := execute(t, "check", path)
	require.ErrorIs(t, err, casefile.ErrInvalid)
}

func TestRecordAndReplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rec")

	out, err := execute(t, "record", "--dir", dir, "--", "sh", "-c", "echo hello; echo warn >&2; exit 3")
	require.NoError(t, err)
	require.Contains(t, out, "exit 3, 6 bytes stdout, 5 bytes stderr")

	path := writeCases(t, `cases:
  - name: recorded
    shell: unused
    exit: {code: 3}
    stdout: {expected: "hello\n"}
    stderr: {expected: "warn\n"}
`)
	out, err = execute(t, "replay", path, "--recording", dir)
	require.NoError(t, err)
	require.Contains(t, out, "PASS recorded")

	path = writeCases(t, failingCase)
	out, err = execute(t, "replay", path, "--recording", dir)
	require.ErrorContains(t, err, `case "wrong output" failed`)
	require.Contains(t, out, "FAIL wrong output")
}

func TestCheck_RecordDir(t *testing.T) {
	path := writeCases(t, passingCases)
	records := t.TempDir()

	_, err := execute(t, "check", path, "--record-dir", records)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(records, "hello", "output.log"))
	require.FileExists(t, filepath.Join(records, "failure_exit", "exit-status"))
}

func TestReplay_CaseSelection(t *testing.T) {
	path := writeCases(t, passingCases)

	_, err := execute(t, "replay", path, "--recording", t.TempDir())
	require.ErrorContains(t, err, "choose one with --case")

	_, err = execute(t, "replay", path, "--recording", t.TempDir(), "--case", "missing")
	require.ErrorContains(t, err, `no case "missing"`)

	_, err = execute(t, "replay", path)
	require.ErrorContains(t, err, "--recording is required")
}

func TestDirName(t *testing.T) {
	require.Equal(t, "failure_exit", dirName("failure exit"))
	require.Equal(t, "a_b", dirName("a/b"))
	require.Equal(t, "case", dirName("///"))
}

func TestRecordDirs_Unique(t *testing.T) {
	dirs := recordDirs{}
	require.Equal(t, "a_b", dirs.name("a b"))
	require.Equal(t, "a_b-2", dirs.name("a/b"))
	require.Equal(t, "a_b-3", dirs.name("a b"))
	require.Equal(t, "case", dirs.name("///"))
}

func TestCheck_RecordDirCollisions(t *testing.T) {
	first := writeCases(t, `cases:
  - name: a b
    shell: echo first
  - name: a/b
    shell: echo second
`)
	second := writeCases(t, `cases:
  - name: a b
    shell: echo third
`)
	records := t.TempDir()

	_, err := execute(t, "check", first, second, "--record-dir", records)
	require.NoError(t, err)

	for dir, want := range map[string]string{"a_b": "first\n", "a_b-2": "second\n", "a_b-3": "third\n"} {
		rec, err := recording.Load(filepath.Join(records, dir))
		require.NoError(t, err, dir)
		data, err := io.ReadAll(rec.Stdout())
		require.NoError(t, err)
		require.Equal(t, want, string(data), dir)
	}
}
