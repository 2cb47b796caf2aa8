package snapshot

import (
	"context"
	"os"

	cerr "github.com/cockroachdb/errors"

	"github.com/ewildgoose/snapback2/pkg/patterns"
)

// ensurePrefixOp drives the destination prefix directory through the
// Assess/Intervene/Evaluate lifecycle: assess whether it already exists,
// intervene by creating it if the job allows, evaluate that it really is
// there and really is a directory before the rest of the job proceeds.
type ensurePrefixOp struct {
	prefix    string
	createDir bool
}

func (o *ensurePrefixOp) Assess(context.Context) (*patterns.AssessmentResult, error) {
	info, err := os.Stat(o.prefix)
	switch {
	case err == nil && info.IsDir():
		return &patterns.AssessmentResult{CanProceed: true, Reason: "destination prefix already exists"}, nil
	case err == nil:
		return nil, cerr.Newf("%s exists and is not a directory", o.prefix)
	case !os.IsNotExist(err):
		return nil, cerr.Wrapf(err, "statting %s", o.prefix)
	case !o.createDir:
		return &patterns.AssessmentResult{CanProceed: false, Reason: o.prefix + " does not exist and CreateDir is disabled"}, nil
	default:
		return &patterns.AssessmentResult{CanProceed: true, Reason: "destination prefix missing, will be created"}, nil
	}
}

func (o *ensurePrefixOp) Intervene(context.Context, *patterns.AssessmentResult) (*patterns.InterventionResult, error) {
	if err := os.MkdirAll(o.prefix, 0o755); err != nil {
		return nil, cerr.Wrapf(err, "creating %s", o.prefix)
	}
	return &patterns.InterventionResult{
		Success: true,
		Message: "ensured destination prefix directory",
		Changes: []patterns.Change{{Type: "mkdir", Description: o.prefix}},
	}, nil
}

func (o *ensurePrefixOp) Evaluate(context.Context, *patterns.InterventionResult) (*patterns.EvaluationResult, error) {
	info, err := os.Stat(o.prefix)
	if err != nil || !info.IsDir() {
		return &patterns.EvaluationResult{Success: false, Message: o.prefix + " is still not a usable directory", NeedsRollback: true}, nil
	}
	return &patterns.EvaluationResult{Success: true, Message: "destination prefix ready"}, nil
}

var _ patterns.Operation = (*ensurePrefixOp)(nil)

// ensurePrefix runs ensurePrefixOp through an Executor and translates its
// outcome into a plain error, the shape the rest of the engine expects.
func ensurePrefix(ctx context.Context, exec *patterns.Executor, prefix string, createDir bool) error {
	result, err := exec.Execute(ctx, &ensurePrefixOp{prefix: prefix, createDir: createDir}, "ensure-destination-prefix")
	if err != nil {
		return err
	}
	if !result.Success {
		return cerr.New(result.Message)
	}
	return nil
}
