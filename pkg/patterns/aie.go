// Package patterns provides the Assess/Intervene/Evaluate operation shape
// the engine uses for its destination-prefix step: an operation first
// assesses whether it can proceed, performs the intervention, then
// evaluates the result before reporting success.
package patterns

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// AssessmentResult reports whether an operation's prerequisites are met.
type AssessmentResult struct {
	CanProceed    bool
	Reason        string
	Prerequisites []string
	Context       map[string]interface{}
}

// Change describes one concrete mutation an intervention performed.
type Change struct {
	Type        string
	Description string
	After       interface{}
}

// InterventionResult reports the outcome of performing an operation.
type InterventionResult struct {
	Success bool
	Message string
	Changes []Change
}

// ValidationResult is one post-condition check performed during Evaluate.
type ValidationResult struct {
	Passed  bool
	Message string
}

// EvaluationResult reports whether an intervention's effects hold up under
// inspection.
type EvaluationResult struct {
	Success       bool
	Message       string
	Validations   []ValidationResult
	NeedsRollback bool
}

// Operation is anything that can be driven through the Assess, Intervene,
// Evaluate lifecycle.
type Operation interface {
	Assess(ctx context.Context) (*AssessmentResult, error)
	Intervene(ctx context.Context, assessment *AssessmentResult) (*InterventionResult, error)
	Evaluate(ctx context.Context, intervention *InterventionResult) (*EvaluationResult, error)
}

// Executor drives an Operation through its full lifecycle and logs each
// phase transition.
type Executor struct {
	logger otelzap.LoggerWithCtx
}

// NewExecutor builds an Executor that logs phase transitions through the
// given logger.
func NewExecutor(logger otelzap.LoggerWithCtx) *Executor {
	return &Executor{logger: logger}
}

// Execute runs op through Assess, Intervene, Evaluate, stopping early if
// Assess refuses to proceed or either phase errors. name identifies the
// operation in log lines.
func (e *Executor) Execute(ctx context.Context, op Operation, name string) (*EvaluationResult, error) {
	assessment, err := op.Assess(ctx)
	if err != nil {
		e.logger.Error("assessment failed", zap.String("operation", name), zap.Error(err))
		return nil, err
	}
	if !assessment.CanProceed {
		e.logger.Info("assessment declined to proceed",
			zap.String("operation", name), zap.String("reason", assessment.Reason))
		return &EvaluationResult{Success: false, Message: assessment.Reason}, nil
	}

	intervention, err := op.Intervene(ctx, assessment)
	if err != nil {
		e.logger.Error("intervention failed", zap.String("operation", name), zap.Error(err))
		return nil, err
	}

	evaluation, err := op.Evaluate(ctx, intervention)
	if err != nil {
		e.logger.Error("evaluation failed", zap.String("operation", name), zap.Error(err))
		return nil, err
	}

	if evaluation.Success {
		e.logger.Info("operation completed", zap.String("operation", name), zap.String("message", evaluation.Message))
	} else {
		e.logger.Warn("operation did not validate", zap.String("operation", name), zap.String("message", evaluation.Message))
	}

	return evaluation, nil
}
