package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-multiverse/internal/domain"
)

// ExecutionResult is the outcome of one pipeline run: the final payload
// after the last step and the realized ordered list of choices that were
// actually consumed.
type ExecutionResult struct {
	// Data is the output state of the last step.
	Data domain.State

	// Protocol is the realized choice sequence, accumulated per step in
	// execution order.
	Protocol domain.Protocol
}

// Runner executes one fully specified protocol through a design on one
// input. A Runner is stateless and safe for concurrent use; batch
// operations share a single instance across all their dispatched runs.
type Runner struct {
	// tracer emits a span per run for observability.
	tracer trace.Tracer
}

// NewRunner creates a pipeline executor.
func NewRunner() *Runner {
	return &Runner{tracer: otel.Tracer("multiverse-runner")}
}

// Run executes the design on the input under the given protocol.
//
// The protocol is split into per-step sub-lists matching each step's
// declared choice-spec count, in pipeline order. Each step receives the
// previous step's output as its input. Any error aborts the run
// immediately: validation faults surface as *domain.InvalidChoiceError,
// transformation faults are wrapped into *domain.StepRuntimeError tagged
// with the failing step's name and position. There are no retries; a
// single failing step invalidates the whole protocol for this run.
//
// A design with zero steps returns the input unchanged with an empty
// protocol. The context carries the caller-imposed deadline; it is checked
// between steps, never inside a step's pure transformation.
func (r *Runner) Run(
	ctx context.Context,
	design *Design,
	input domain.State,
	protocol domain.Protocol,
) (*ExecutionResult, error) {
	_, span := r.tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("design.name", design.Name()),
			attribute.Int("design.steps", design.Len()),
			attribute.Int("protocol.choices", len(protocol)),
		),
	)
	defer span.End()

	current := input
	realized := make(domain.Protocol, 0, len(protocol))
	offset := 0

	for pos, step := range design.steps {
		select {
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			return nil, ctx.Err()
		default:
		}

		specs := step.Describe().Specs

		// Take this step's sub-list of choices. A protocol too short to
		// cover the step's specs is a validation fault on the first
		// uncovered field.
		if offset+len(specs) > len(protocol) {
			missing := specs[len(protocol)-offset]
			err := domain.NewInvalidChoiceError(step.Name(), missing.Name, "", domain.ErrMissingChoice)
			span.RecordError(err)
			return nil, err
		}
		sub := protocol[offset : offset+len(specs)]
		offset += len(specs)

		next, err := step.Execute(current, sub)
		if err != nil {
			var invalid *domain.InvalidChoiceError
			if errors.As(err, &invalid) {
				if invalid.Step == "" {
					invalid.Step = step.Name()
				}
				span.RecordError(invalid)
				return nil, invalid
			}
			runtimeErr := domain.NewStepRuntimeError(step.Name(), pos, err)
			span.RecordError(runtimeErr)
			return nil, runtimeErr
		}

		current = next
		realized = append(realized, sub...)
	}

	// Choices beyond the declared spec sequence are a validation fault.
	if offset < len(protocol) {
		extra := protocol[offset]
		err := domain.NewInvalidChoiceError("", extra.Name, extra.Value.String(), domain.ErrExtraChoice)
		span.RecordError(err)
		return nil, err
	}

	return &ExecutionResult{Data: current, Protocol: realized}, nil
}
