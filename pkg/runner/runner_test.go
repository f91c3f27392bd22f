package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procassert/internal/recording"
	"procassert/pkg/procassert"
)

func TestRun_CapturesStreamsAndExitCode(t *testing.T) {
	res, err := Run(context.Background(), Shell("echo out; echo err >&2; exit 3"))
	require.NoError(t, err)

	require.True(t, res.Exited())
	require.Equal(t, 3, res.ExitCode())
	require.Equal(t, "out\n", string(res.StdoutBytes()))
	require.Equal(t, "err\n", string(res.StderrBytes()))
	require.Positive(t, res.PID)
	require.False(t, res.EndTime.Before(res.StartTime))
}

func TestRun_ProcassertChain(t *testing.T) {
	res := Exec(t, Shell(`printf 'foo bar\nbaz qux\nfoo quo\nIGNORE foo\n'; printf 'ERROR: Did not expect quo.\n' >&2`))

	procassert.That(t, res).
		Succeeded().
		Excluding("IGNORE").
		Replacing("quo", "foo").
		Printed("quux").
		Including("foo").
		Excluding("quo").
		Replacing("bar", "quux").
		Stripping("foo").
		Trim().
		ToStdout().
		Printed("ERROR: Did not expect foo.\n").
		ToStderr()
}

func TestRun_StreamsAreRereadable(t *testing.T) {
	res := Exec(t, Shell("echo again"))
	for range 2 {
		procassert.That(t, res).Printed("again\n").ToStdout()
	}
}

func TestRun_LargeOutputOnBothStreams(t *testing.T) {
	// Larger than a pipe buffer on both streams.
	res := Exec(t, Shell("i=0; while [ $i -lt 20000 ]; do echo line$i; echo err$i >&2; i=$((i+1)); done"))

	require.Equal(t, 20000, strings.Count(string(res.StdoutBytes()), "\n"))
	require.Equal(t, 20000, strings.Count(string(res.StderrBytes()), "\n"))
	procassert.That(t, res).
		Succeeded().
		Printed("line19999\n").
		Including(`^line19999\n`).
		ToStdout()
}

func TestRun_EnvDirAndStdin(t *testing.T) {
	dir := t.TempDir()
	c := Shell(`echo "$GREETING"; pwd; cat`)
	c.Env = []string{"GREETING=hello"}
	c.Dir = dir
	c.Stdin = strings.NewReader("from stdin\n")

	res := Exec(t, c)
	procassert.That(t, res).
		Succeeded().
		Printed("hello\nfrom stdin\n").
		Excluding("^/").
		ToStdout()
}

func TestRun_Signal(t *testing.T) {
	res, err := Run(context.Background(), Shell("kill -TERM $$"))
	require.NoError(t, err)
	require.Equal(t, -1, res.ExitCode())
	require.Equal(t, "terminated", res.Signal)
	require.NoError(t, procassert.Failed(res))
}

func TestRun_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := Run(ctx, Shell("sleep 10"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	require.Less(t, res.Duration(), 5*time.Second)
}

func TestRun_StartFailure(t *testing.T) {
	_, err := Run(context.Background(), Command{Name: "/nonexistent/binary"})
	require.ErrorContains(t, err, "failed to start command")

	_, err = Run(context.Background(), Command{})
	require.Error(t, err)

	_, err = Run(context.Background(), Command{Name: "cat", TTY: true, Stdin: strings.NewReader("")})
	require.ErrorContains(t, err, "stdin cannot be combined with tty")
}

func TestRun_TTY(t *testing.T) {
	c := Shell(`if [ -t 1 ]; then echo tty; else echo pipe; fi; printf '10%%\r50%%\r100%%\n'; echo err >&2`)
	c.TTY = true

	res := Exec(t, c)
	procassert.That(t, res).
		Succeeded().
		Printed("tty\n100%\n").
		ToStdout().
		Printed("err\n").
		ToStderr()
}

func TestRun_Record(t *testing.T) {
	dir := t.TempDir()
	c := Shell("echo recorded; echo warn >&2; exit 2")
	c.RecordDir = dir

	res := Exec(t, c)
	require.Equal(t, 2, res.ExitCode())

	loaded, err := recording.Load(dir)
	require.NoError(t, err)
	require.Equal(t, res.PID, loaded.PID)
	require.Equal(t, c.String(), loaded.Command)

	procassert.That(t, loaded).
		ExitedWith(2).
		Printed("recorded\n").
		ToStdout().
		Printed("warn\n").
		ToStderr()
}

func TestCommand_String(t *testing.T) {
	require.Equal(t, "sh -c echo hi", Shell("echo hi").String())
	require.Equal(t, "ls", Command{Name: "ls"}.String())
}
