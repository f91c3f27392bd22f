package recording

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"procassert/pkg/outputlog"
	"procassert/pkg/procassert"
)

// Recorder writes a recording while a process runs.
type Recorder struct {
	dir string
	out *os.File
	log *outputlog.Writer
}

// Create prepares dir, which may already exist, for a new recording of
// command.
func Create(dir, command string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}
	for _, name := range []string{pidFile, endTimeFile, exitStatusFile, signalFile, completedFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to clear %s: %w", name, err)
		}
	}
	if err := writeFile(dir, cmdFile, command); err != nil {
		return nil, err
	}

	out, err := os.OpenFile(filepath.Join(dir, OutputFile), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", OutputFile, err)
	}
	return &Recorder{dir: dir, out: out, log: outputlog.NewWriter(out)}, nil
}

// Dir returns the recording directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Stream returns a writer recording into the named stream of output.log.
func (r *Recorder) Stream(stream procassert.Stream) io.Writer {
	return r.log.Stream(string(stream))
}

// Started records the pid and start time.
func (r *Recorder) Started(pid int, at time.Time) error {
	if err := writeFile(r.dir, startTimeFile, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return writeFile(r.dir, pidFile, strconv.Itoa(pid))
}

// Finished flushes the output log and records the exit. Stream writers must
// not be used afterwards.
func (r *Recorder) Finished(code int, signal string, at time.Time) error {
	logErr := r.log.Close()
	closeErr := r.out.Close()
	if logErr != nil {
		return logErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", OutputFile, closeErr)
	}

	if err := writeFile(r.dir, endTimeFile, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	if err := writeFile(r.dir, exitStatusFile, strconv.Itoa(code)); err != nil {
		return err
	}
	if signal != "" {
		if err := writeFile(r.dir, signalFile, signal); err != nil {
			return err
		}
	}
	return writeFile(r.dir, completedFile, "true")
}

// Abort flushes the output log without marking the recording completed.
func (r *Recorder) Abort() error {
	logErr := r.log.Close()
	closeErr := r.out.Close()
	if logErr != nil {
		return logErr
	}
	return closeErr
}

func writeFile(dir, name, content string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s file: %w", name, err)
	}
	return nil
}
