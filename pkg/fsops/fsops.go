// Package fsops performs the ring's filesystem mutations by shelling out to
// cp -al, mv, and rm -rf through execrun, rather than doing the copying,
// renaming, or removal in-process. The ring only ever changes the *names*
// bound to a given set of inodes or their link counts; letting the
// standard system tools do that keeps the engine's own code free of
// filesystem edge cases those tools have long since learned to handle.
package fsops

import (
	"context"
	"os"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/execrun"
)

// Ops bundles the filesystem mutations the ring rotator needs, all routed
// through a Runner so tests can substitute a fake. Stat defaults to
// os.Stat-backed Exists but can be overridden in tests that fake the
// Runner's view of the filesystem instead of touching a real disk.
type Ops struct {
	Runner execrun.Runner
	Logger *zap.Logger
	DryRun bool
	Stat   func(path string) (bool, error)
}

func New(runner execrun.Runner, logger *zap.Logger, dryRun bool) *Ops {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ops{Runner: runner, Logger: logger, DryRun: dryRun, Stat: Exists}
}

// Exists reports whether path is present, consulting ops.Stat so callers
// that fake the Runner's filesystem view in tests see consistent results.
func (o *Ops) Exists(path string) (bool, error) {
	if o.Stat != nil {
		return o.Stat(path)
	}
	return Exists(path)
}

func (o *Ops) run(ctx context.Context, cmd string, args ...string) error {
	_, err := o.Runner.Run(ctx, execrun.Options{
		Command: cmd,
		Args:    args,
		DryRun:  o.DryRun,
		Logger:  o.Logger,
	})
	return err
}

// Clone hard-link-copies src onto dst using cp -al: every regular file in
// src ends up as a new directory entry in dst sharing the same inode, so
// the clone costs no additional data blocks. dst must not already exist.
func (o *Ops) Clone(ctx context.Context, src, dst string) error {
	if err := o.run(ctx, "cp", "-al", src, dst); err != nil {
		return cerr.Wrapf(err, "cloning %s to %s", src, dst)
	}
	return nil
}

// Rename moves oldPath to newPath within the same filesystem (a ring slot
// renumbering), via mv so cross-device fallbacks and atomicity guarantees
// match what an administrator running the equivalent command by hand would
// get.
func (o *Ops) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := o.run(ctx, "mv", oldPath, newPath); err != nil {
		return cerr.Wrapf(err, "renaming %s to %s", oldPath, newPath)
	}
	return nil
}

// Remove deletes path and everything under it via rm -rf. Used to evict
// the oldest slot in a ring before the other slots are shifted down.
func (o *Ops) Remove(ctx context.Context, path string) error {
	if err := o.run(ctx, "rm", "-rf", path); err != nil {
		return cerr.Wrapf(err, "removing %s", path)
	}
	return nil
}

// Exists reports whether path is present. This one check is done in-process
// because it is read-only bookkeeping, not a mutation the design note asks
// to externalize.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, cerr.Wrapf(err, "stat %s", path)
}

// Touch updates path's mtime to now without altering its contents, used by
// the hourly tier to mark the slot that now represents "this hour" even
// when the underlying clone is byte-for-byte identical to the previous
// slot.
func (o *Ops) Touch(ctx context.Context, path string) error {
	if err := o.run(ctx, "touch", path); err != nil {
		return cerr.Wrapf(err, "touching %s", path)
	}
	return nil
}
