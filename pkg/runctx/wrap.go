package runctx

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewildgoose/snapback2/pkg/snaperr"
)

// Wrap adapts a RunContext-aware RunE function into a plain cobra RunE,
// building a RunContext, recovering panics, and ensuring End always runs.
func Wrap(logger *zap.Logger, fn func(rc *RunContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := New(context.Background(), logger, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil {
			if _, ok := snaperr.AsClassified(err); !ok {
				err = cerr.WithStack(err)
			}
		}
		return err
	}
}
