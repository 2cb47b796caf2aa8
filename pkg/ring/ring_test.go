package ring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewildgoose/snapback2/pkg/execrun"
	"github.com/ewildgoose/snapback2/pkg/fsops"
)

// fakeRunner records cp/mv/rm invocations and simulates a filesystem by
// tracking which slot paths exist, so ring logic can be tested without
// touching a real disk.
type fakeRunner struct {
	exists map[string]bool
	calls  []execrun.Options
}

func newFakeRunner(present ...string) *fakeRunner {
	m := map[string]bool{}
	for _, p := range present {
		m[p] = true
	}
	return &fakeRunner{exists: m}
}

func (f *fakeRunner) Run(ctx context.Context, opts execrun.Options) (*execrun.Result, error) {
	f.calls = append(f.calls, opts)
	switch opts.Command {
	case "mv":
		src, dst := opts.Args[0], opts.Args[1]
		f.exists[dst] = f.exists[src]
		delete(f.exists, src)
	case "rm":
		f.exists[opts.Args[len(opts.Args)-1]] = false
	case "cp":
		dst := opts.Args[len(opts.Args)-1]
		f.exists[dst] = true
	}
	return &execrun.Result{}, nil
}

func statFunc(f *fakeRunner) func(string) (bool, error) {
	return func(p string) (bool, error) { return f.exists[p], nil }
}

func newOps(f *fakeRunner) *fsops.Ops {
	ops := fsops.New(f, nil, false)
	ops.Stat = statFunc(f)
	return ops
}

func TestRotate_SingleSlotNoop(t *testing.T) {
	f := newFakeRunner("base")
	ops := newOps(f)
	err := Rotate(context.Background(), ops, "base", 1, false)
	require.NoError(t, err)
	assert.Empty(t, f.calls)
}

func TestRotate_HourlyPreservesSlotZero(t *testing.T) {
	f := newFakeRunner("base.0", "base.1", "base.2")
	ops := newOps(f)

	err := Rotate(context.Background(), ops, "base", 4, false)
	require.NoError(t, err)

	assert.True(t, f.exists["base.0"], "slot 0 preserved in place for hourly rotation")
	assert.True(t, f.exists["base.2"])
	assert.True(t, f.exists["base.3"])
	assert.False(t, f.exists["base.1"], "slot 1 shifted to slot 2")
}

func TestRotate_DailyRotatesSlotZero(t *testing.T) {
	f := newFakeRunner("base.0", "base.1")
	ops := newOps(f)

	err := Rotate(context.Background(), ops, "base", 3, true)
	require.NoError(t, err)

	assert.False(t, f.exists["base.0"])
	assert.True(t, f.exists["base.1"])
	assert.True(t, f.exists["base.2"])
}

func TestRotate_EvictsOldestSlot(t *testing.T) {
	f := newFakeRunner("base.0", "base.1", "base.2", "base.3")
	ops := newOps(f)

	err := Rotate(context.Background(), ops, "base", 4, false)
	require.NoError(t, err)

	require.NotEmpty(t, f.calls)
	assert.Equal(t, "rm", f.calls[0].Command, "oldest slot removed before the shift")
	assert.Equal(t, []string{"-rf", "base.3"}, f.calls[0].Args, "oldest slot removed before the shift")
	assert.False(t, f.exists["base.4"], "no slot beyond the retention count")
}

func TestRotate_MissingSlotsLeaveGapsUnshifted(t *testing.T) {
	f := newFakeRunner("base.0", "base.2")
	ops := newOps(f)

	err := Rotate(context.Background(), ops, "base", 4, false)
	require.NoError(t, err)

	assert.True(t, f.exists["base.3"], "slot 2 shifted to 3")
	assert.False(t, f.exists["base.2"])
	assert.False(t, f.exists["base.1"], "slot 1 was never present, so nothing moves into it")
}
