// Package recording persists a finished (or running) process to a directory
// and loads it back as a procassert.Process.
//
// Layout of a recording directory:
//
//	cmd          command line, for humans
//	pid          process id, written once the process started
//	starttime    RFC 3339 start time
//	output.log   stdout and stderr in outputlog format
//	endtime      RFC 3339 end time, written on exit
//	exit-status  exit code, written on exit
//	signal       name of the terminating signal, if any
//	completed    "true" once all of the above are final
package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"procassert/pkg/outputlog"
	"procassert/pkg/procassert"
)

const (
	cmdFile        = "cmd"
	pidFile        = "pid"
	startTimeFile  = "starttime"
	endTimeFile    = "endtime"
	exitStatusFile = "exit-status"
	signalFile     = "signal"
	completedFile  = "completed"
	// OutputFile is the name of the output log inside a recording.
	OutputFile = "output.log"
)

// ErrIncomplete is returned for a recording whose process is gone but whose
// exit status was never written.
var ErrIncomplete = errors.New("recording incomplete")

// Recording is a process loaded from disk. It implements procassert.Process.
type Recording struct {
	Dir       string
	Command   string
	PID       int
	StartTime time.Time
	EndTime   time.Time
	Completed bool
	Code      int
	Signal    string

	streams outputlog.Streams
}

var _ procassert.Process = (*Recording)(nil)

// Exited reports whether the recorded process finished.
func (r *Recording) Exited() bool { return r.Completed }

// ExitCode returns the recorded exit code.
func (r *Recording) ExitCode() int { return r.Code }

// Stdout returns the recorded standard output.
func (r *Recording) Stdout() io.Reader { return r.streams.Reader(string(procassert.Stdout)) }

// Stderr returns the recorded standard error.
func (r *Recording) Stderr() io.Reader { return r.streams.Reader(string(procassert.Stderr)) }

// Load reads the recording in dir. A recording of a process that is still
// running loads fine but reports Exited() == false.
func Load(dir string) (*Recording, error) {
	cmd, err := os.ReadFile(filepath.Join(dir, cmdFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read cmd file: %w", err)
	}
	rec := &Recording{Dir: dir, Command: string(cmd)}

	if s, ok := readTrimmed(dir, startTimeFile); ok {
		if rec.StartTime, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return nil, fmt.Errorf("failed to parse starttime: %w", err)
		}
	}
	if s, ok := readTrimmed(dir, pidFile); ok {
		if rec.PID, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("failed to parse pid: %w", err)
		}
	}

	if s, ok := readTrimmed(dir, completedFile); ok && s == "true" {
		rec.Completed = true
		status, ok := readTrimmed(dir, exitStatusFile)
		if !ok {
			return nil, fmt.Errorf("%w: completed without exit-status", ErrIncomplete)
		}
		if rec.Code, err = strconv.Atoi(status); err != nil {
			return nil, fmt.Errorf("failed to parse exit-status: %w", err)
		}
		rec.Signal, _ = readTrimmed(dir, signalFile)
		if s, ok := readTrimmed(dir, endTimeFile); ok {
			if rec.EndTime, err = time.Parse(time.RFC3339Nano, s); err != nil {
				return nil, fmt.Errorf("failed to parse endtime: %w", err)
			}
		}
	} else if !alive(rec.PID) {
		return nil, fmt.Errorf("%w: process %d is not running and has no exit-status", ErrIncomplete, rec.PID)
	}

	f, err := os.Open(filepath.Join(dir, OutputFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", OutputFile, err)
	}
	defer func() { _ = f.Close() }()

	rec.streams, err = outputlog.ReadStreams(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", OutputFile, err)
	}
	return rec, nil
}

// alive reports whether pid refers to a running, non-zombie process.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

func readTrimmed(dir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(data))
	return s, s != ""
}
