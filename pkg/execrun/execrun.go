// Package execrun is the Command abstraction the design notes call for:
// every external process the engine shells out to (cp -al, mv, rm -rf, the
// sync tool itself) runs through Run, which reports exit status and
// captured output and can be pointed at a mock in tests instead of exec.
package execrun

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/telemetry"
)

// Options configures a single command invocation.
type Options struct {
	Command string
	Args    []string
	Stdin   string
	Timeout time.Duration
	Retries int
	DryRun  bool
	Logger  *zap.Logger
}

// Result captures what happened when a command ran.
type Result struct {
	Output   string
	ExitCode int
}

const defaultTimeout = 2 * time.Hour // the sync step is the dominant, unbounded wait; give generous headroom

func defaultOptsTimeout(t time.Duration) time.Duration {
	if t <= 0 {
		return defaultTimeout
	}
	return t
}

// Runner executes commands; the default is exec.CommandContext, but tests
// substitute a fake to avoid touching the filesystem or network.
type Runner interface {
	Run(ctx context.Context, opts Options) (*Result, error)
}

// ExecRunner is the production Runner, invoking real child processes.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// Run executes opts.Command with opts.Args, making up to opts.Retries
// attempts in total (at least one) until one succeeds. Shell invocation is never used: arguments are passed
// directly to exec, so exclusion patterns and paths containing shell
// metacharacters cannot be misinterpreted.
func (ExecRunner) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmdline := buildCommandString(opts.Command, opts.Args)
	spanCtx, span := telemetry.Start(ctx, "execrun.Run")
	defer span.End()

	if opts.DryRun {
		logger.Info("dry-run: skipping command", zap.String("command", cmdline))
		return &Result{Output: "", ExitCode: 0}, nil
	}

	timeout := defaultOptsTimeout(opts.Timeout)
	runCtx, cancel := context.WithTimeout(spanCtx, timeout)
	defer cancel()

	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	var buf bytes.Buffer
	exitCode := -1
	for attempt := 1; attempt <= retries; attempt++ {
		buf.Reset()
		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		if opts.Stdin != "" {
			cmd.Stdin = strings.NewReader(opts.Stdin)
		}

		logger.Debug("running command", zap.String("command", cmdline), zap.Int("attempt", attempt))
		err := cmd.Run()
		if err == nil {
			logger.Info("command succeeded", zap.String("command", cmdline))
			return &Result{Output: buf.String(), ExitCode: 0}, nil
		}

		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		logger.Warn("command failed",
			zap.String("command", cmdline),
			zap.Int("attempt", attempt),
			zap.Int("exit_code", exitCode),
			zap.Error(err))
		lastErr = err
	}

	return &Result{Output: buf.String(), ExitCode: exitCode}, cerr.Wrapf(lastErr, "command failed after %d attempt(s): %s", retries, cmdline)
}

func buildCommandString(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}

