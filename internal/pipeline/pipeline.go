package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/wordcrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the run as left
// by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical errors
	// should be logged and return nil.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finalizer is implemented by steps that must run even after the pipeline
// stopped, such as writing the report of a cancelled crawl.
type Finalizer interface {
	Final() bool
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors
// are recorded in the run, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step rather than during it, because
// steps handle their own timeouts. Once the pipeline has stopped, whether by
// cancellation or by a failed step, only Finalizer steps still run, with a
// context that is no longer cancelled.
//
// Returns the first error encountered. The error is also recorded on run.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	var firstErr error
	stopped := false

	for _, step := range p.steps {
		final := isFinal(step)

		if !stopped {
			if err := ctx.Err(); err != nil {
				p.logger.Warn("pipeline cancelled",
					"step", step.Name(),
					"reason", err,
				)
				stopped = true
				if firstErr == nil {
					firstErr = err
					run.SetError(err)
				}
			}
		}
		if stopped && !final {
			continue
		}

		stepCtx := ctx
		if stopped {
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"start_pages", len(run.StartPages),
		)

		if err := step.Do(stepCtx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)

			if firstErr == nil {
				firstErr = err
				run.SetError(err)
			}
			if !p.continueOnError {
				stopped = true
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name())
		}

		// Track which steps were performed
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func isFinal(step Step) bool {
	f, ok := step.(Finalizer)
	return ok && f.Final()
}
