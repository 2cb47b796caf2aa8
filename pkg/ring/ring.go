// Package ring implements the rotation algorithm that ages the numbered
// slots of a snapshot tier: base.0, base.1, ..., base.{max-1}.
package ring

import (
	"context"

	cerr "github.com/cockroachdb/errors"

	"github.com/ewildgoose/snapback2/pkg/fsops"
)

// Rotate ages the slots of the ring rooted at base. max is the tier's
// retention count (number of slots). rotateAll controls whether slot 0
// itself is shifted to slot 1: false for hourly (slot 0 is preserved in
// place, to be cloned and then overwritten by sync), true for
// daily/weekly/monthly (slot 0 is rotated out to make room for a fresh
// promotion clone).
//
// Failure of any rename or remove is fatal for the job that called Rotate.
func Rotate(ctx context.Context, ops *fsops.Ops, base string, max int, rotateAll bool) error {
	if max == 1 && !rotateAll {
		return nil
	}

	oldest := fsops.SlotPath(base, max-1)
	exists, err := ops.Exists(oldest)
	if err != nil {
		return cerr.Wrapf(err, "checking oldest slot %s", oldest)
	}
	if exists {
		if err := ops.Remove(ctx, oldest); err != nil {
			return cerr.Wrapf(err, "removing oldest slot %s", oldest)
		}
	}

	smallest := 1
	if rotateAll {
		smallest = 0
	}

	for i := max - 2; i >= smallest; i-- {
		src := fsops.SlotPath(base, i)
		exists, err := ops.Exists(src)
		if err != nil {
			return cerr.Wrapf(err, "checking slot %s", src)
		}
		if !exists {
			continue
		}
		dst := fsops.SlotPath(base, i+1)
		if err := ops.Rename(ctx, src, dst); err != nil {
			return cerr.Wrapf(err, "rotating slot %s to %s", src, dst)
		}
	}
	return nil
}

// Clone hard-link-copies src (a slot path) onto dst (another slot path),
// used both for the hourly.0 -> hourly.1 promotion before sync and for
// daily/weekly/monthly.0 promotions from the just-completed hourly.0.
func Clone(ctx context.Context, ops *fsops.Ops, src, dst string) error {
	exists, err := ops.Exists(src)
	if err != nil {
		return cerr.Wrapf(err, "checking clone source %s", src)
	}
	if !exists {
		return nil
	}
	if err := ops.Clone(ctx, src, dst); err != nil {
		return cerr.Wrapf(err, "cloning %s to %s", src, dst)
	}
	return nil
}
