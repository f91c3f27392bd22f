package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"procassert/internal/casefile"
	"procassert/internal/recording"
	"procassert/internal/report"
	"procassert/pkg/procassert"
	"procassert/pkg/runner"
)

var (
	verbose   bool
	reportDir string
	recordDir string
	timeout   time.Duration
	runFilter string

	recordTTY  bool
	recordPath string

	replayDir  string
	replayCase string
)

var rootCmd = &cobra.Command{
	Use:   "procassert",
	Short: "procassert - Assert on the exit status and output of commands",
	Long: `procassert runs commands described in YAML case files and checks their
exit status and filtered standard output and standard error against expected text.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr(), verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check CASEFILE...",
	Short: "Run the cases in one or more case files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := compileFilter(runFilter)
		if err != nil {
			return err
		}
		return check(cmd.Context(), cmd.OutOrStdout(), args, filter)
	},
}

var recordCmd = &cobra.Command{
	Use:   "record --dir DIR -- cmd [args...]",
	Short: "Run a command and record its output and exit status",
	Long: `Run a command to completion and store its output and exit status in DIR.

The recording can later be checked with 'procassert replay'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordPath == "" {
			return errors.New("--dir is required")
		}
		c := runner.Command{Name: args[0], Args: args[1:], TTY: recordTTY, RecordDir: recordPath}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res, err := runner.Run(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s: exit %d, %d bytes stdout, %d bytes stderr\n",
			recordPath, res.ExitCode(), len(res.StdoutBytes()), len(res.StderrBytes()))
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay CASEFILE --recording DIR",
	Short: "Check a recorded run against a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayDir == "" {
			return errors.New("--recording is required")
		}
		return replay(cmd.OutOrStdout(), args[0], replayDir, replayCase)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", envDuration("PROCASSERT_TIMEOUT", casefile.DefaultTimeout),
		"Timeout for commands without their own (default: $PROCASSERT_TIMEOUT or 1m)")

	checkCmd.Flags().StringVar(&reportDir, "report-dir", os.Getenv("PROCASSERT_REPORT_DIR"),
		"Write report.md and report.html to this directory (default: $PROCASSERT_REPORT_DIR)")
	checkCmd.Flags().StringVar(&recordDir, "record-dir", "", "Record every case run into a subdirectory of this directory")
	checkCmd.Flags().StringVar(&runFilter, "run", "", "Only run cases whose name matches this regular expression")

	recordCmd.Flags().StringVarP(&recordPath, "dir", "d", "", "Directory to write the recording to")
	recordCmd.Flags().BoolVar(&recordTTY, "tty", false, "Attach standard output to a pseudo terminal")

	replayCmd.Flags().StringVarP(&replayDir, "recording", "r", "", "Recording directory written by 'procassert record'")
	replayCmd.Flags().StringVar(&replayCase, "case", "", "Name of the case to check (default: the only case in the file)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring invalid %s=%q: %v\n", name, v, err)
		return fallback
	}
	return d
}

func compileFilter(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid --run expression: %w", err)
	}
	return re, nil
}

func check(ctx context.Context, out io.Writer, paths []string, filter *regexp.Regexp) error {
	rep := &report.Report{Title: strings.Join(paths, ", "), Generated: time.Now()}
	dirs := recordDirs{}

	for _, path := range paths {
		f, err := casefile.Load(path)
		if err != nil {
			return err
		}
		for _, c := range f.Cases {
			if filter != nil && !filter.MatchString(c.Name) {
				slog.Debug("Skipping case", "case", c.Name, "file", path)
				continue
			}
			var dir string
			if recordDir != "" {
				dir = filepath.Join(recordDir, dirs.name(c.Name))
			}
			res := runCase(ctx, c, dir)
			printResult(out, res)
			rep.Add(res)
		}
	}

	if reportDir != "" {
		if err := rep.WriteFiles(reportDir); err != nil {
			return err
		}
		slog.Info("Wrote report", "dir", reportDir)
	}

	if failed := rep.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(rep.Results))
	}
	fmt.Fprintf(out, "ok: %d cases passed\n", len(rep.Results))
	return nil
}

func runCase(ctx context.Context, c *casefile.Case, dir string) report.Result {
	cmd := c.RunCommand()
	cmd.RecordDir = dir
	deadline := c.Deadline()
	if c.Timeout == 0 {
		deadline = timeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result := report.Result{Case: c.Name, Command: cmd.String()}
	slog.Debug("Running case", "case", c.Name, "command", cmd.String(), "timeout", deadline)

	res, err := runner.Run(ctx, cmd)
	if res != nil {
		result.ExitCode = res.ExitCode()
		result.Duration = res.Duration()
	}
	if err != nil {
		slog.Error("Failed to run case", "case", c.Name, "error", err)
		result.Errors = append(result.Errors, err)
		return result
	}
	result.Errors = c.Verify(res)
	return result
}

func replay(out io.Writer, path, dir, name string) error {
	f, err := casefile.Load(path)
	if err != nil {
		return err
	}
	c, err := pickCase(f, name)
	if err != nil {
		return err
	}
	rec, err := recording.Load(dir)
	if err != nil {
		return err
	}

	res := report.Result{
		Case:     c.Name,
		Command:  rec.Command,
		ExitCode: rec.ExitCode(),
		Duration: rec.EndTime.Sub(rec.StartTime),
		Errors:   c.Verify(rec),
	}
	printResult(out, res)
	if !res.Passed() {
		return fmt.Errorf("case %q failed against %s", c.Name, dir)
	}
	return nil
}

func pickCase(f *casefile.File, name string) (*casefile.Case, error) {
	if name == "" {
		if len(f.Cases) != 1 {
			return nil, fmt.Errorf("%s has %d cases; choose one with --case", f.Path(), len(f.Cases))
		}
		return f.Cases[0], nil
	}
	for _, c := range f.Cases {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no case %q in %s", name, f.Path())
}

func printResult(out io.Writer, res report.Result) {
	if res.Passed() {
		fmt.Fprintf(out, "PASS %s (%s)\n", res.Case, res.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(out, "FAIL %s (%s)\n", res.Case, res.Duration.Round(time.Millisecond))
	for _, err := range res.Errors {
		fmt.Fprintf(out, "    %s: %v\n", procassert.Classify(err), err)
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// dirName turns a case name into a directory name.
func dirName(name string) string {
	if d := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_."); d != "" {
		return d
	}
	return "case"
}

// recordDirs hands out one directory name per case of a run. Names that
// collide get a numeric suffix.
type recordDirs map[string]bool

func (d recordDirs) name(caseName string) string {
	base := dirName(caseName)
	name := base
	for i := 2; d[name]; i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	d[name] = true
	return name
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
