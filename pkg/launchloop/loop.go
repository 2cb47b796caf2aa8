// Package launchloop implements the companion daemon that serializes
// backup launches: it polls a trigger directory, claims each trigger with
// an atomic rename, runs the snapshot engine as a child process, and
// files the result into a dated success or error directory.
package launchloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ewildgoose/snapback2/pkg/accounting"
	"github.com/ewildgoose/snapback2/pkg/execrun"
	"github.com/ewildgoose/snapback2/pkg/snaperr"
)

// Config controls where the loop watches and how it invokes the engine.
type Config struct {
	LoopDirectory string
	DoneDir       string
	ErrDir        string
	EnginePath    string
	EngineConfig  string // -c flag forwarded to the engine, if set
	Debug         bool
	PollInterval  time.Duration
	Mail          accounting.MailConfig
}

const defaultLoopDirectory = "/tmp/backups"
const defaultPollInterval = 2 * time.Second

// validTriggerName matches the allowed trigger filename alphabet; anything
// else is treated as spurious.
var validTriggerName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Loop is one running instance of the launch loop.
type Loop struct {
	Config  Config
	Runner  execrun.Runner
	Logger  *zap.Logger
	Metrics *Metrics
	limiter *rate.Limiter
}

func New(cfg Config, runner execrun.Runner, logger *zap.Logger) *Loop {
	if cfg.LoopDirectory == "" {
		cfg.LoopDirectory = defaultLoopDirectory
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Every(cfg.PollInterval)
	return &Loop{Config: cfg, Runner: runner, Logger: logger, limiter: rate.NewLimiter(limit, 1)}
}

// Run polls until ctx is cancelled. The poll cadence is paced by a rate
// limiter rather than a plain sleep so a poll pass that itself took a
// while (many triggers claimed in one pass) doesn't add its own duration
// on top of PollInterval before the next pass starts.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}

		if err := l.pollOnce(ctx); err != nil {
			l.Logger.Error("poll pass failed", zap.Error(err))
		}
	}
}

// pollOnce processes every trigger present in LoopDirectory in
// directory-iteration order, one after another, matching the single-poll
// single-threaded contract.
func (l *Loop) pollOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if l.Metrics != nil {
			l.Metrics.pollDuration.Observe(time.Since(start).Seconds())
		}
	}()

	entries, err := os.ReadDir(l.Config.LoopDirectory)
	if err != nil {
		return cerr.Wrapf(err, "reading loop directory %s", l.Config.LoopDirectory)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".inprocess") || strings.HasSuffix(name, ".done") {
			continue
		}

		if !validTriggerName.MatchString(name) {
			l.handleSpurious(ctx, name)
			continue
		}

		l.launch(ctx, name)
	}
	return nil
}

func (l *Loop) handleSpurious(ctx context.Context, name string) {
	triggerPath := filepath.Join(l.Config.LoopDirectory, name)
	errorsDir := filepath.Join(l.Config.LoopDirectory, "errors")
	if err := os.MkdirAll(errorsDir, 0o755); err != nil {
		l.Logger.Error("creating spurious-trigger errors directory", zap.Error(err))
		return
	}

	dest := filepath.Join(errorsDir, name+"."+timestamp())
	classified := snaperr.NewSpuriousTrigger(name, nil)
	body := classified.Error() + "\n" + classified.Remediation + "\n"
	if err := os.WriteFile(dest, []byte(body), 0o644); err != nil {
		l.Logger.Error("writing spurious trigger record", zap.Error(err))
	}

	if accounting.ShouldEmail(l.Config.Mail, true) {
		if err := accounting.SendRunLog(ctx, l.Runner, l.Config.Mail, "snapback2: spurious trigger rejected", body); err != nil {
			l.Logger.Warn("failed to email admin about spurious trigger", zap.Error(snaperr.NewMailFailure("sending spurious-trigger notice", err)))
		}
	}

	if err := os.Remove(triggerPath); err != nil {
		l.Logger.Error("removing spurious trigger", zap.Error(err))
	}
	l.Logger.Warn("rejected spurious trigger", zap.Error(classified))
	if l.Metrics != nil {
		l.Metrics.triggersSpurious.Inc()
	}
}

func (l *Loop) launch(ctx context.Context, name string) {
	triggerPath := filepath.Join(l.Config.LoopDirectory, name)
	inProcessPath := triggerPath + ".inprocess"

	if err := os.Rename(triggerPath, inProcessPath); err != nil {
		l.Logger.Error("claiming trigger", zap.String("name", name), zap.Error(err))
		return
	}

	args := []string{"-l", inProcessPath, name}
	if l.Config.EngineConfig != "" {
		args = append([]string{"-c", l.Config.EngineConfig}, args...)
	}
	if l.Config.Debug {
		args = append([]string{"-d"}, args...)
	}

	result, err := l.Runner.Run(ctx, execrun.Options{
		Command: l.Config.EnginePath,
		Args:    args,
		Logger:  l.Logger,
	})

	if err := appendToFile(inProcessPath, resultOutput(result)); err != nil {
		l.Logger.Error("appending engine output to in-progress file", zap.Error(err))
	}

	if l.Metrics != nil {
		l.Metrics.triggersLaunched.Inc()
	}

	if err == nil {
		l.fileSuccess(name, inProcessPath)
		return
	}

	if l.Metrics != nil {
		l.Metrics.triggersFailed.Inc()
	}
	l.fileFailure(name, inProcessPath, resultExitCode(result), l.Config.EnginePath+" "+strings.Join(args, " "))
}

func (l *Loop) fileSuccess(name, inProcessPath string) {
	dateDir := filepath.Join(l.Config.DoneDir, time.Now().Format("20060102"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		l.Logger.Error("creating done directory", zap.Error(err))
		return
	}
	dest := filepath.Join(dateDir, name+"."+timestamp())
	if err := os.Rename(inProcessPath, dest); err != nil {
		l.Logger.Error("filing successful run", zap.Error(err))
	}
}

func (l *Loop) fileFailure(name, inProcessPath string, exitCode int, cmdline string) {
	banner := fmt.Sprintf("\n--- engine exited with status %d ---\ncommand: %s\n", exitCode, cmdline)
	if err := appendToFile(inProcessPath, banner); err != nil {
		l.Logger.Error("appending failure banner", zap.Error(err))
	}

	if err := os.MkdirAll(l.Config.ErrDir, 0o755); err != nil {
		l.Logger.Error("creating error directory", zap.Error(err))
		return
	}
	dest := filepath.Join(l.Config.ErrDir, name+"."+timestamp())
	if err := os.Rename(inProcessPath, dest); err != nil {
		l.Logger.Error("filing failed run", zap.Error(err))
	}
}

func appendToFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func resultOutput(r *execrun.Result) string {
	if r == nil {
		return ""
	}
	return r.Output
}

func resultExitCode(r *execrun.Result) int {
	if r == nil {
		return -1
	}
	return r.ExitCode
}

func timestamp() string {
	return time.Now().Format("20060102-150405")
}
