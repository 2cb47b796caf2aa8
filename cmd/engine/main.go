// Command snapback2-engine runs one backup pass: for every configured
// (host, directory) it resolves a destination, checks whether a new
// hourly snapshot is due, rotates and clones the ring, invokes the
// external sync tool, and promotes into the daily/weekly/monthly tiers
// when the calendar calls for it.
package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/accounting"
	"github.com/ewildgoose/snapback2/pkg/cliflags"
	"github.com/ewildgoose/snapback2/pkg/config"
	"github.com/ewildgoose/snapback2/pkg/destination"
	"github.com/ewildgoose/snapback2/pkg/execrun"
	"github.com/ewildgoose/snapback2/pkg/fsops"
	"github.com/ewildgoose/snapback2/pkg/output"
	"github.com/ewildgoose/snapback2/pkg/runctx"
	"github.com/ewildgoose/snapback2/pkg/snaperr"
	"github.com/ewildgoose/snapback2/pkg/snaplog"
	"github.com/ewildgoose/snapback2/pkg/snapshot"
	"github.com/ewildgoose/snapback2/pkg/telemetry"
)

// jobReport is one job's outcome, emitted as part of the --json run summary.
type jobReport struct {
	Host        string `json:"host"`
	Directory   string `json:"directory"`
	Destination string `json:"destination,omitempty"`
	Skipped     bool   `json:"skipped"`
	Error       string `json:"error,omitempty"`
}

// runSummary is the top-level shape written by --json.
type runSummary struct {
	RunID        string           `json:"run_id"`
	Jobs         []jobReport      `json:"jobs"`
	Charges      map[string]int64 `json:"charges,omitempty"`
	ErrorsLogged bool             `json:"errors_logged"`
}

var settings = viper.New()

func main() {
	root := &cobra.Command{
		Use:          "snapback2-engine [name]",
		Short:        "run one snapshot backup pass",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
	}

	flags := root.Flags()
	cliflags.AddString(settings, flags, "config", "c", "", "configuration file")
	cliflags.AddBool(settings, flags, "debug", "d", false, "enable debug logging")
	cliflags.AddBool(settings, flags, "force", "f", false, "bypass the schedule gate")
	cliflags.AddString(settings, flags, "host-pattern", "p", "", "restrict to matching host block names")
	cliflags.AddString(settings, flags, "dir-pattern", "P", "", "restrict to matching directory paths")
	cliflags.AddString(settings, flags, "run-log", "l", "", "alternate run log path (used by the launch loop)")
	cliflags.AddBool(settings, flags, "json", "j", false, "emit a structured JSON run summary to stdout")
	cliflags.AddBool(settings, flags, "table", "t", false, "emit a tabular run summary to stdout")
	cliflags.SetEnvPrefix(settings, "snapback2")

	if err := telemetry.Init("snapback2-engine", "", os.Getenv("SNAPBACK2_TRACE") != ""); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry init failed, continuing without tracing:", err)
	}

	root.RunE = runctx.Wrap(snaplog.Fallback(), runEngine)

	if err := root.Execute(); err != nil {
		os.Exit(snaperr.ExitCode(err))
	}
}

func runEngine(rc *runctx.RunContext, cmd *cobra.Command, args []string) error {
	var positional string
	if len(args) == 1 {
		positional = args[0]
	}

	path, err := config.Resolve(settings.GetString("config"), positional)
	if err != nil {
		return snaperr.NewConfigFatal("resolving configuration file", err)
	}

	global, err := config.Load(path)
	if err != nil {
		return snaperr.NewConfigFatal("loading configuration file", err)
	}
	if overlay, err := config.LoadOverlay(config.OverlayPath(path)); err == nil {
		overlay.Apply(global)
	} else if !os.IsNotExist(err) {
		return snaperr.NewConfigFatal("loading settings overlay", err)
	}

	hostRe, err := compileFilter(settings.GetString("host-pattern"))
	if err != nil {
		return snaperr.NewConfigFatal("compiling host filter", err)
	}
	dirRe, err := compileFilter(settings.GetString("dir-pattern"))
	if err != nil {
		return snaperr.NewConfigFatal("compiling directory filter", err)
	}

	jobs, err := config.Jobs(global, hostRe, dirRe)
	if err != nil {
		return snaperr.NewConfigFatal("enumerating backup jobs", err)
	}
	if err := config.Validate(jobs); err != nil {
		return snaperr.NewConfigFatal("validating backup jobs", err)
	}

	logFile := settings.GetString("run-log")
	if logFile == "" {
		logFile = global.String("logfile", snaplog.DefaultLogFile)
	}
	debug := settings.GetBool("debug") || global.Bool("debug", false)
	logger, err := snaplog.Config{LogFile: logFile, DebugFile: global.String("debugfile", ""), Debug: debug}.Build()
	if err != nil {
		logger = snaplog.Fallback()
	}
	rc.Log = logger
	rc.Logf("run %s starting against %s", rc.RunID, path)

	runner := execrun.ExecRunner{}
	engine := &snapshot.Engine{
		Runner: runner,
		Sync: snapshot.SyncConfig{
			Command: global.String("rsync", "rsync"),
			Opts:    []string{"-avz", "-e", "ssh", "--delete", "--delete-excluded", "--one-file-system"},
		},
		Logger: logger,
		Force:  settings.GetBool("force"),
	}

	ledger := accounting.NewLedger()
	mailCfg := accounting.MailConfig{
		Program:     global.String("sendmail", ""),
		AdminEmail:  global.String("adminemail", ""),
		AlwaysEmail: global.Bool("alwaysemail", false),
	}

	var jobErrors *multierror.Error
	reports := make([]jobReport, 0, len(jobs))
	for _, job := range jobs {
		clientLine := accounting.ClientLine(job.Host)
		rc.RunLog.WriteString(clientLine)
		rc.RunLog.WriteString("\n")
		ledger.ScanLine(clientLine)

		result, err := engine.Run(rc.Ctx, job, destStat)
		if err != nil {
			if snaperr.IsSkip(err) {
				rc.Logf("job skipped (not due) for %s:%s", job.Host, job.Directory)
				reports = append(reports, jobReport{Host: job.Host, Directory: job.Directory, Skipped: true})
				continue
			}
			jobErrors = multierror.Append(jobErrors, fmt.Errorf("%s:%s: %w", job.Host, job.Directory, err))
			rc.Logf("job failed for %s:%s: %v", job.Host, job.Directory, err)
			logger.Error("job failed", zap.String("host", job.Host), zap.String("directory", job.Directory), zap.Error(err))
			reports = append(reports, jobReport{Host: job.Host, Directory: job.Directory, Error: err.Error()})
			continue
		}

		rc.RunLog.WriteString(result.SyncOutput)
		if !strings.HasSuffix(result.SyncOutput, "\n") {
			rc.RunLog.WriteString("\n")
		}
		ledger.Scan(result.SyncOutput)
		rc.Logf("job completed for %s:%s via %s", job.Host, job.Directory, result.Destination)
		reports = append(reports, jobReport{Host: job.Host, Directory: job.Directory, Destination: result.Destination})
	}

	if chargeFile := global.String("chargefile", ""); chargeFile != "" {
		if err := accounting.AppendChargeFile(chargeFile, ledger.Charges(), time.Now()); err != nil {
			logger.Warn("failed to append charge file", zap.Error(err))
		}
	}

	errorsLogged := jobErrors.ErrorOrNil() != nil
	if errorsLogged {
		rc.MarkJobFatal()
		logger.Error("run completed with job failures", zap.String("run_id", rc.RunID), zap.Error(jobErrors))
	}
	if accounting.ShouldEmail(mailCfg, errorsLogged) {
		subject := fmt.Sprintf("snapback2 run report (%s)", rc.RunID)
		if err := accounting.SendRunLog(context.Background(), runner, mailCfg, subject, rc.RunLog.String()); err != nil {
			logger.Warn("failed to email admin run report", zap.Error(snaperr.NewMailFailure("sending run report", err)))
		}
	}

	if settings.GetBool("json") {
		summary := runSummary{RunID: rc.RunID, Jobs: reports, Charges: ledger.Charges(), ErrorsLogged: errorsLogged}
		if err := output.JSONToStdout(summary); err != nil {
			logger.Warn("failed to write JSON run summary", zap.Error(err))
		}
	}

	if settings.GetBool("table") {
		renderReportTable(reports)
	}

	return nil
}

func renderReportTable(reports []jobReport) {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		status := "completed"
		switch {
		case r.Error != "":
			status = "failed: " + r.Error
		case r.Skipped:
			status = "skipped"
		}
		rows = append(rows, []string{r.Host, r.Directory, r.Destination, status})
	}

	err := output.NewTable().
		WithHeaders("Host", "Directory", "Destination", "Status").
		WithSeparator("=").
		WithBorder(true).
		AddRows(rows).
		Render()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to render table run summary:", err)
	}
}

func compileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func destStat(candidate, host, dir, hourlyDirName string) time.Time {
	slot := fsops.SlotPath(fsops.Join(candidate, host, dir, hourlyDirName), 0)
	info, err := os.Stat(slot)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

var _ destination.StatMTime = destStat
