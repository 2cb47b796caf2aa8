// Command snapback2-loop is the companion daemon that watches a trigger
// directory and launches the snapshot engine once per trigger file,
// serializing launches so at most one engine invocation per trigger runs
// at a time.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/accounting"
	"github.com/ewildgoose/snapback2/pkg/cliflags"
	"github.com/ewildgoose/snapback2/pkg/config"
	"github.com/ewildgoose/snapback2/pkg/execrun"
	"github.com/ewildgoose/snapback2/pkg/launchloop"
	"github.com/ewildgoose/snapback2/pkg/runctx"
	"github.com/ewildgoose/snapback2/pkg/snaperr"
	"github.com/ewildgoose/snapback2/pkg/snaplog"
	"github.com/ewildgoose/snapback2/pkg/telemetry"
)

var settings = viper.New()

func main() {
	root := &cobra.Command{
		Use:          "snapback2-loop",
		Short:        "watch a trigger directory and serialize backup launches",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	flags := root.Flags()
	cliflags.AddString(settings, flags, "config", "c", "", "configuration file")
	cliflags.AddBool(settings, flags, "debug", "d", false, "enable debug logging")
	cliflags.AddString(settings, flags, "loop-directory", "h", "", "trigger directory to watch")
	cliflags.SetEnvPrefix(settings, "snapback2")

	if err := telemetry.Init("snapback2-loop", "", os.Getenv("SNAPBACK2_TRACE") != ""); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry init failed, continuing without tracing:", err)
	}

	root.RunE = runctx.Wrap(snaplog.Fallback(), runLoop)

	if err := root.Execute(); err != nil {
		os.Exit(snaperr.ExitCode(err))
	}
}

func runLoop(rc *runctx.RunContext, cmd *cobra.Command, args []string) error {
	configFile := settings.GetString("config")
	path, err := config.Resolve(configFile, "")
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

	logger, err := snaplog.Config{
		LogFile:   global.String("logfile", snaplog.DefaultLogFile),
		DebugFile: global.String("debugfile", ""),
		Debug:     settings.GetBool("debug") || global.Bool("debug", false),
	}.Build()
	if err != nil {
		logger = snaplog.Fallback()
	}
	rc.Log = logger

	watchConfigReload(path, logger)

	loopDir := settings.GetString("loop-directory")
	if loopDir == "" {
		loopDir = global.String("loopdirectory", "/tmp/backups")
	}

	enginePath := global.String("engine", "snapback2-engine")

	shutdown := launchloop.NewShutdownHandler(logger)
	runCtx := shutdown.Wait(context.Background())

	loop := launchloop.New(launchloop.Config{
		LoopDirectory: loopDir,
		DoneDir:       global.String("donedir", loopDir+"/done"),
		ErrDir:        global.String("errdir", loopDir+"/errors"),
		EnginePath:    enginePath,
		EngineConfig:  configFile,
		Debug:         settings.GetBool("debug"),
		Mail: accounting.MailConfig{
			Program:     global.String("sendmail", ""),
			AdminEmail:  global.String("adminemail", ""),
			AlwaysEmail: global.Bool("alwaysemail", false),
		},
	}, execrun.ExecRunner{}, logger)

	registry := prometheus.NewRegistry()
	loop.Metrics = launchloop.NewMetrics(registry)
	if addr := global.String("metricsaddr", ""); addr != "" {
		go serveMetrics(addr, registry, logger)
	}

	singletonName := global.String("looppidname", "snapback2-loop")
	if others, err := launchloop.OtherInstances(singletonName, logger); err == nil && len(others) > 0 {
		logger.Warn("another instance of the launch loop appears to be running", zap.Strings("pids", others))
	}

	rc.Logf("launch loop run %s starting, watching %s", rc.RunID, loopDir)
	return loop.Run(runCtx)
}

// watchConfigReload logs whenever the resolved configuration file changes
// on disk. The loop and mail settings it feeds take effect on the next
// restart; this only surfaces the change so an operator editing the file
// in place sees confirmation without needing to watch the process log.
func watchConfigReload(path string, logger *zap.Logger) {
	if err := config.Watch(context.Background(), path, logger, func(*config.Scope) {
		logger.Info("configuration file changed on disk, restart the loop to apply it", zap.String("path", path))
	}); err != nil {
		logger.Warn("failed to watch configuration file for changes", zap.Error(err))
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", launchloop.Handler(registry))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server exited", zap.Error(err))
	}
}
