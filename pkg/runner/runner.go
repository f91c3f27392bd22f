// Package runner runs a command to completion and hands back its exit status
// and captured output as a procassert.Process.
//
// Both output streams are drained concurrently while the command runs, so a
// Result can be checked in any order without the pipe deadlock a live process
// would risk. Optionally standard output is attached to a pseudo terminal, for
// programs that only draw progress bars or colors on a TTY, and the run can be
// recorded to a directory for later replay.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"procassert/internal/recording"
	"procassert/pkg/procassert"
)

// waitDelay bounds how long Wait keeps draining output after the command
// exited or was killed, in case a grandchild still holds a pipe open.
const waitDelay = 2 * time.Second

// Command describes what to run.
type Command struct {
	Name string
	Args []string
	// Env entries are added to the current environment.
	Env []string
	Dir string
	// Stdin is fed to the command; nil means no input. It cannot be combined
	// with TTY.
	Stdin io.Reader
	// TTY attaches standard output to a pseudo terminal in raw mode, so line
	// feeds are not translated to CRLF.
	TTY bool
	// Cols and Rows size the terminal when TTY is set.
	Cols, Rows uint16
	// RecordDir, when set, receives a recording of the run.
	RecordDir string
}

// Shell returns a Command running line with sh -c.
func Shell(line string) Command {
	return Command{Name: "sh", Args: []string{"-c", line}}
}

// String renders the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is a finished run. It implements procassert.Process.
type Result struct {
	Command   Command
	PID       int
	Code      int
	Signal    string
	StartTime time.Time
	EndTime   time.Time

	stdout []byte
	stderr []byte
}

var _ procassert.Process = (*Result)(nil)

// Exited is always true for a Result.
func (r *Result) Exited() bool { return true }

// ExitCode returns the exit code, or -1 if the command was killed by a signal.
func (r *Result) ExitCode() int { return r.Code }

// Stdout returns a fresh reader over the captured standard output.
func (r *Result) Stdout() io.Reader { return bytes.NewReader(r.stdout) }

// Stderr returns a fresh reader over the captured standard error.
func (r *Result) Stderr() io.Reader { return bytes.NewReader(r.stderr) }

// StdoutBytes returns the raw captured standard output.
func (r *Result) StdoutBytes() []byte { return r.stdout }

// StderrBytes returns the raw captured standard error.
func (r *Result) StderrBytes() []byte { return r.stderr }

// Duration is the wall time between start and exit.
func (r *Result) Duration() time.Duration { return r.EndTime.Sub(r.StartTime) }

// Run starts c and waits for it to exit. A non-zero exit is not an error; the
// returned error is non-nil only when the command could not be started, its
// output could not be captured or recorded, or ctx ended the run. In the last
// case the partial Result is returned as well.
func Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, errors.New("runner: empty command")
	}
	if c.TTY && c.Stdin != nil {
		return nil, errors.New("runner: stdin cannot be combined with tty")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	var stdoutW, stderrW io.Writer = &stdout, &stderr

	var rec *recording.Recorder
	if c.RecordDir != "" {
		var err error
		rec, err = recording.Create(c.RecordDir, c.String())
		if err != nil {
			return nil, err
		}
		stdoutW = io.MultiWriter(stdoutW, rec.Stream(procassert.Stdout))
		stderrW = io.MultiWriter(stderrW, rec.Stream(procassert.Stderr))
	}
	cmd.Stderr = stderrW

	var ptmx *os.File
	var ptyDone chan error
	if c.TTY {
		var tty *os.File
		var err error
		ptmx, tty, err = openRawPTY(c.Cols, c.Rows)
		if err != nil {
			abort(rec)
			return nil, err
		}
		defer func() { _ = ptmx.Close() }()
		cmd.Stdin = tty
		cmd.Stdout = tty
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}

		err = cmd.Start()
		_ = tty.Close()
		if err != nil {
			abort(rec)
			return nil, fmt.Errorf("failed to start command: %w", err)
		}
		ptyDone = make(chan error, 1)
		go func() { ptyDone <- copyPTY(stdoutW, ptmx) }()
	} else {
		cmd.Stdout = stdoutW
		if err := cmd.Start(); err != nil {
			abort(rec)
			return nil, fmt.Errorf("failed to start command: %w", err)
		}
	}

	res := &Result{Command: c, PID: cmd.Process.Pid, StartTime: time.Now()}
	slog.Debug("Started command", "command", c.String(), "pid", res.PID, "tty", c.TTY)
	if rec != nil {
		if err := rec.Started(res.PID, res.StartTime); err != nil {
			slog.Error("Failed to record process start", "error", err, "dir", rec.Dir())
		}
	}

	waitErr := cmd.Wait()
	if ptyDone != nil {
		if err := <-ptyDone; err != nil && waitErr == nil {
			waitErr = fmt.Errorf("failed to read pty: %w", err)
		}
	}
	res.EndTime = time.Now()
	res.stdout = stdout.Bytes()
	res.stderr = stderr.Bytes()

	var runErr error
	if state := cmd.ProcessState; state != nil {
		res.Code = state.ExitCode()
		if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Signal = status.Signal().String()
		}
	} else {
		res.Code = -1
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		runErr = waitErr
	}
	if ctx.Err() != nil {
		runErr = fmt.Errorf("command %q: %w", c.String(), ctx.Err())
	}

	slog.Debug("Command finished", "command", c.String(), "pid", res.PID, "exit_code", res.Code,
		"signal", res.Signal, "duration", res.Duration())

	if rec != nil {
		if err := rec.Finished(res.Code, res.Signal, res.EndTime); err != nil && runErr == nil {
			runErr = err
		}
	}
	return res, runErr
}

// openRawPTY opens a pseudo terminal whose slave side does no output
// processing, so the bytes the child writes arrive unchanged.
func openRawPTY(cols, rows uint16) (ptmx, tty *os.File, err error) {
	ptmx, tty, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, nil, fmt.Errorf("failed to set pty raw mode: %w", err)
	}
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: rows, Cols: cols})
	return ptmx, tty, nil
}

// copyPTY copies until the slave side is closed by every process, which
// Linux reports as EIO rather than EOF.
func copyPTY(dst io.Writer, ptmx *os.File) error {
	_, err := io.Copy(dst, ptmx)
	if err == nil || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func abort(rec *recording.Recorder) {
	if rec == nil {
		return
	}
	if err := rec.Abort(); err != nil {
		slog.Error("Failed to close recording", "error", err, "dir", rec.Dir())
	}
}
