// Package runctx threads a single RunContext value through engine and
// launcher command execution, replacing the scattered process-wide
// variables (active config scope, debug log handle, in-memory run log) the
// original tooling relied on with one explicit value passed down the call
// chain.
package runctx

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/telemetry"
)

// RunContext carries everything a command needs: cancellation, logging,
// tracing, and a free-form attribute bag for the end-of-run summary.
type RunContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Timestamp  time.Time
	Span       trace.Span
	Command    string
	Component  string
	Attributes map[string]string

	// RunID uniquely identifies this invocation, for correlating the run
	// log, the emailed report, and trace spans across one engine or loop
	// process run.
	RunID string

	// RunLog accumulates lines destined for the run transcript/email. New
	// always allocates it; Logf skips it only if a caller sets it to nil.
	RunLog *strings.Builder

	// DryRun records a dry-run request for this run. Nothing reads it:
	// dry-run behavior is switched by snapshot.Engine.DryRun instead.
	DryRun bool

	// ErrorsLogged is set whenever a job-fatal error is recorded, which
	// forces an end-of-run email even if AlwaysEmail is off.
	ErrorsLogged bool

	cancel context.CancelFunc
}

// New builds a RunContext for cmdName, starting an OpenTelemetry span and
// deriving a cancellable context from ctx.
func New(ctx context.Context, baseLogger *zap.Logger, cmdName string) *RunContext {
	cctx, cancel := context.WithCancel(ctx)
	component, _ := resolveCallContext(2)

	spanCtx, span := telemetry.Start(cctx, cmdName)

	log := baseLogger
	if log == nil {
		log = zap.NewNop()
	}

	runID := uuid.NewString()
	span.SetAttributes(attribute.String("run_id", runID))

	return &RunContext{
		Ctx:        spanCtx,
		Log:        log,
		Timestamp:  time.Now(),
		Span:       span,
		Command:    cmdName,
		Component:  component,
		Attributes: make(map[string]string),
		RunLog:     &strings.Builder{},
		RunID:      runID,
		cancel:     cancel,
	}
}

// Logf appends a formatted line to both the zap logger (at info level) and
// the in-memory run transcript, matching the run logger's behavior of
// mirroring every transcript line into the run log.
func (rc *RunContext) Logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	rc.Log.Info(line)
	if rc.RunLog != nil {
		rc.RunLog.WriteString(line)
		rc.RunLog.WriteString("\n")
	}
}

// Logger returns an otelzap logger bound to this context, for call sites
// that want trace correlation on log lines.
func (rc *RunContext) Logger() otelzap.LoggerWithCtx {
	return otelzap.New(rc.Log).Ctx(rc.Ctx)
}

// MarkJobFatal records that a job-fatal error occurred during this run,
// which forces the end-of-run email regardless of AlwaysEmail.
func (rc *RunContext) MarkJobFatal() {
	rc.ErrorsLogged = true
}

// HandlePanic recovers a panic in progress, converts it to an error stored
// through errPtr, and logs it. Call via defer at the top of a command.
func (rc *RunContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		err := fmt.Errorf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r), zap.String("command", rc.Command))
		*errPtr = err
	}
}

// End finalizes the run: it records the outcome on the span, logs the
// duration, and cancels the derived context. Call via defer(&err) at the
// top of a command.
func (rc *RunContext) End(errPtr *error) {
	duration := time.Since(rc.Timestamp)
	success := errPtr == nil || *errPtr == nil

	if rc.Span != nil {
		rc.Span.SetAttributes(
			attribute.Bool("success", success),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		)
		rc.Span.End()
	}

	if success {
		rc.Log.Info("command completed",
			zap.String("command", rc.Command),
			zap.String("run_id", rc.RunID),
			zap.Duration("duration", duration))
	} else {
		rc.Log.Error("command failed",
			zap.String("command", rc.Command),
			zap.String("run_id", rc.RunID),
			zap.Duration("duration", duration),
			zap.Error(*errPtr))
	}

	if rc.cancel != nil {
		rc.cancel()
	}
}

// resolveCallContext inspects the call stack to report which package
// invoked New, for log correlation.
func resolveCallContext(skip int) (component string, ok bool) {
	pc, _, _, found := runtime.Caller(skip)
	if !found {
		return "unknown", false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", false
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name, true
}
