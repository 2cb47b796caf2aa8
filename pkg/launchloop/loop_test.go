package launchloop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/execrun"
)

type fakeEngineRunner struct {
	exitCode int
	fail     bool
	output   string
}

func (f *fakeEngineRunner) Run(context.Context, execrun.Options) (*execrun.Result, error) {
	if f.fail {
		return &execrun.Result{Output: f.output, ExitCode: f.exitCode}, assert.AnError
	}
	return &execrun.Result{Output: f.output, ExitCode: 0}, nil
}

func newTestLoop(t *testing.T, runner execrun.Runner) *Loop {
	dir := t.TempDir()
	cfg := Config{
		LoopDirectory: dir,
		DoneDir:       filepath.Join(dir, "done"),
		ErrDir:        filepath.Join(dir, "errors"),
		EnginePath:    "snapback2-engine",
	}
	loop := New(cfg, runner, zap.NewNop())
	loop.Metrics = NewMetrics(prometheus.NewRegistry())
	return loop
}

func TestPollOnce_LaunchesValidTriggerAndFilesSuccess(t *testing.T) {
	runner := &fakeEngineRunner{output: "client host1\nwrote 10 bytes read 5 bytes\n"}
	loop := newTestLoop(t, runner)

	triggerPath := filepath.Join(loop.Config.LoopDirectory, "nightly-run")
	require.NoError(t, os.WriteFile(triggerPath, nil, 0o644))

	require.NoError(t, loop.pollOnce(context.Background()))

	_, err := os.Stat(triggerPath)
	assert.True(t, os.IsNotExist(err), "trigger should have been claimed and moved")

	entries, err := os.ReadDir(filepath.Join(loop.Config.DoneDir))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	dateEntries, err := os.ReadDir(filepath.Join(loop.Config.DoneDir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, dateEntries, 1)
	assert.True(t, strings.HasPrefix(dateEntries[0].Name(), "nightly-run."))
}

func TestPollOnce_FailedEngineRunIsFiledUnderErrors(t *testing.T) {
	runner := &fakeEngineRunner{fail: true, exitCode: 1, output: "boom"}
	loop := newTestLoop(t, runner)

	triggerPath := filepath.Join(loop.Config.LoopDirectory, "nightly-run")
	require.NoError(t, os.WriteFile(triggerPath, nil, 0o644))

	require.NoError(t, loop.pollOnce(context.Background()))

	entries, err := os.ReadDir(loop.Config.ErrDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(loop.Config.ErrDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
	assert.Contains(t, string(data), "exited with status 1")
}

func TestPollOnce_SpuriousTriggerNameIsRejected(t *testing.T) {
	runner := &fakeEngineRunner{}
	loop := newTestLoop(t, runner)

	triggerPath := filepath.Join(loop.Config.LoopDirectory, "not a valid name!")
	require.NoError(t, os.WriteFile(triggerPath, nil, 0o644))

	require.NoError(t, loop.pollOnce(context.Background()))

	_, err := os.Stat(triggerPath)
	assert.True(t, os.IsNotExist(err), "spurious trigger should have been removed")

	entries, err := os.ReadDir(filepath.Join(loop.Config.LoopDirectory, "errors"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPollOnce_IgnoresInProcessAndDoneSuffixedFiles(t *testing.T) {
	runner := &fakeEngineRunner{}
	loop := newTestLoop(t, runner)

	require.NoError(t, os.WriteFile(filepath.Join(loop.Config.LoopDirectory, "stuck.inprocess"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(loop.Config.LoopDirectory, "old.done"), nil, 0o644))

	require.NoError(t, loop.pollOnce(context.Background()))

	_, err := os.Stat(filepath.Join(loop.Config.LoopDirectory, "stuck.inprocess"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(loop.Config.LoopDirectory, "old.done"))
	assert.NoError(t, err)
}

func TestValidTriggerName(t *testing.T) {
	assert.True(t, validTriggerName.MatchString("host1-backup_job"))
	assert.False(t, validTriggerName.MatchString("has a space"))
	assert.False(t, validTriggerName.MatchString("semi;colon"))
}
