// Package snapshot implements the orchestrator that drives one backup job
// through destination selection, the schedule gate, ring rotation, the
// hard-link clone, the external sync invocation, and tier promotion.
package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/config"
	"github.com/ewildgoose/snapback2/pkg/destination"
	"github.com/ewildgoose/snapback2/pkg/execrun"
	"github.com/ewildgoose/snapback2/pkg/fsops"
	"github.com/ewildgoose/snapback2/pkg/patterns"
	"github.com/ewildgoose/snapback2/pkg/ring"
	"github.com/ewildgoose/snapback2/pkg/schedule"
	"github.com/ewildgoose/snapback2/pkg/snaperr"
)

// SyncConfig names the external sync tool and the options it should always
// receive; job-level excludes are appended per invocation.
type SyncConfig struct {
	Command string
	Opts    []string
}

// Engine runs jobs against a Runner, logging each command through Ops.
type Engine struct {
	Runner execrun.Runner
	Sync   SyncConfig
	Logger *zap.Logger
	Force  bool
	DryRun bool
}

// JobResult carries what a run produced, for accounting and the run log.
type JobResult struct {
	Job         config.Job
	Destination string
	Prefix      string
	SyncOutput  string
}

func (e *Engine) ops() *fsops.Ops {
	return fsops.New(e.Runner, e.Logger, e.DryRun)
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Run executes the full per-job algorithm. A skipped job (schedule gate
// says not due) returns snaperr.ErrSkip; callers use snaperr.IsSkip to
// tell a skip apart from a job-fatal error.
func (e *Engine) Run(ctx context.Context, job config.Job, destStat destination.StatMTime) (*JobResult, error) {
	ops := e.ops()

	dest, err := destination.Select(destination.Policy{Fixed: job.Destination, List: job.DestinationList}, job.Host, job.Directory, job.HourlyDirName, destStat)
	if err != nil {
		return nil, snaperr.NewJobFatal("resolving destination", err)
	}

	prefix := filepath.Join(dest, job.Host, job.Directory)
	executor := patterns.NewExecutor(otelzap.New(e.logger()).Ctx(ctx))
	if err := ensurePrefix(ctx, executor, prefix, job.CreateDir); err != nil {
		return nil, snaperr.NewJobFatal("ensuring destination directory", err)
	}

	hourlyBase := filepath.Join(prefix, job.HourlyDirName)
	slot0 := fsops.SlotPath(hourlyBase, 0)

	prevMTime := mtimeOrZero(slot0)
	calendar := schedule.Calendar(prevMTime, time.Now())

	due := schedule.Proceed(schedule.GateInput{
		Hourlies:   int(job.Retention.Hourlies),
		Slot0MTime: prevMTime,
		Now:        time.Now(),
		MustExceed: job.MustExceed,
		Force:      e.Force,
		AutoTime:   job.AutoTime,
	})
	if !due {
		return nil, snaperr.ErrSkip
	}

	if err := ring.Rotate(ctx, ops, hourlyBase, int(job.Retention.Hourlies), false); err != nil {
		return nil, snaperr.NewJobFatal("rotating hourly ring", err)
	}

	if exists, _ := ops.Exists(slot0); exists {
		if err := ring.Clone(ctx, ops, slot0, fsops.SlotPath(hourlyBase, 1)); err != nil {
			return nil, snaperr.NewJobFatal("cloning hourly.0 to hourly.1", err)
		}
	}

	output, err := e.runSync(ctx, job, slot0)
	if err != nil {
		return nil, snaperr.NewJobFatal("external sync failed", err)
	}

	if err := ops.Touch(ctx, slot0); err != nil {
		return nil, snaperr.NewJobFatal("stamping hourly.0 completion time", err)
	}

	if err := e.promote(ctx, ops, prefix, job, calendar, slot0); err != nil {
		return nil, err
	}

	return &JobResult{Job: job, Destination: dest, Prefix: prefix, SyncOutput: output}, nil
}

func (e *Engine) promote(ctx context.Context, ops *fsops.Ops, prefix string, job config.Job, calendar schedule.CalendarFlags, freshHourly0 string) error {
	tiers := []struct {
		due     bool
		count   uint
		dirName string
	}{
		{calendar.DoDailies, job.Retention.Dailies, job.DailyDirName},
		{calendar.DoWeeklies, job.Retention.Weeklies, job.WeeklyDirName},
		{calendar.DoMonthlies, job.Retention.Monthlies, job.MonthlyDirName},
	}

	for _, tier := range tiers {
		if !tier.due || tier.count == 0 {
			continue
		}
		base := filepath.Join(prefix, tier.dirName)
		if err := ring.Rotate(ctx, ops, base, int(tier.count), true); err != nil {
			return snaperr.NewJobFatal("rotating "+tier.dirName+" ring", err)
		}
		if exists, _ := ops.Exists(freshHourly0); exists {
			if err := ring.Clone(ctx, ops, freshHourly0, fsops.SlotPath(base, 0)); err != nil {
				return snaperr.NewJobFatal("promoting to "+tier.dirName+".0", err)
			}
		}
	}
	return nil
}

func (e *Engine) runSync(ctx context.Context, job config.Job, dest string) (string, error) {
	args := append([]string{}, e.Sync.Opts...)
	for _, pattern := range job.Excludes {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args, job.RemoteSource(), dest)

	result, err := e.Runner.Run(ctx, execrun.Options{
		Command: e.Sync.Command,
		Args:    args,
		DryRun:  e.DryRun,
		Logger:  e.Logger,
	})
	if result == nil {
		return "", err
	}
	return result.Output, err
}

func mtimeOrZero(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
