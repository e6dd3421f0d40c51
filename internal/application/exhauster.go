package application

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

// outcome is the captured result of one dispatched run inside a batch
// operation: either the flattened scalar data fields or a failure marker.
type outcome struct {
	data    map[string]any
	failure string
	failed  bool
}

// Exhauster runs a design once per protocol in its full Cartesian choice
// space against one fixed input, aggregating outcomes into a table. Runs
// are dispatched concurrently; rows are keyed by enumeration index, never
// by arrival order, so two exhaustions of the same design and input
// produce identical tables whenever the steps themselves are
// deterministic.
type Exhauster struct {
	// runner executes individual protocols.
	runner *Runner
	// concurrency caps the number of in-flight runs.
	concurrency int
	// metrics optionally receives batch counters and latencies.
	metrics ports.MetricsCollector
	// tracer emits one span per exhaustion.
	tracer trace.Tracer
}

// NewExhauster creates an exhauster with concurrency defaulting to the
// number of CPUs. Steps are CPU-bound pure functions, so there is nothing
// to gain from oversubscription.
func NewExhauster() *Exhauster {
	return &Exhauster{
		runner:      NewRunner(),
		concurrency: runtime.NumCPU(),
		tracer:      otel.Tracer("multiverse-exhauster"),
	}
}

// SetConcurrencyLimit configures the maximum number of protocols executed
// concurrently. Non-positive values reset to the number of CPUs.
func (e *Exhauster) SetConcurrencyLimit(limit int) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	e.concurrency = limit
}

// SetMetricsCollector attaches an optional collector for batch metrics.
func (e *Exhauster) SetMetricsCollector(mc ports.MetricsCollector) {
	e.metrics = mc
}

// Exhaust enumerates the design's choice space and runs every protocol
// against the fixed input.
//
// Per-protocol outcomes are isolated: a StepRuntimeError is recorded in
// that protocol's row — failure marker in place of data fields — and the
// batch continues. An InvalidChoiceError can only mean the enumerator
// produced a malformed protocol, which is an implementation fault; it
// propagates and halts the batch, as do context cancellation and design
// space errors. Row order follows enumeration order.
func (e *Exhauster) Exhaust(
	ctx context.Context,
	design *Design,
	input domain.State,
) (*domain.Table, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "Exhauster.Exhaust",
		trace.WithAttributes(attribute.String("design.name", design.Name())),
	)
	defer span.End()

	space, err := Enumerate(design)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("space.size", space.Size()))

	labels := map[string]string{"design": design.Name(), "operation": "exhaust"}
	if e.metrics != nil {
		e.metrics.RecordGauge("choice_space_size", float64(space.Size()), labels)
	}

	outcomes := make([]outcome, space.Size())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, protocol := range space.Protocols() {
		g.Go(func() error {
			result, runErr := e.runner.Run(gctx, design, input, protocol)
			captured, fatal := captureOutcome(result, runErr)
			if fatal != nil {
				return fatal
			}
			outcomes[i] = captured
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	builder := domain.NewTableBuilder(space.ChoiceNames())
	failures := 0
	for i := 0; i < space.Size(); i++ {
		fixed := protocolCells(space.At(i))
		if outcomes[i].failed {
			failures++
			builder.AppendFailure(fixed, outcomes[i].failure)
			continue
		}
		builder.AppendRow(fixed, outcomes[i].data)
	}

	span.SetAttributes(attribute.Int("rows.failed", failures))
	if e.metrics != nil {
		e.metrics.RecordCounter("protocols_executed_total", float64(space.Size()), labels)
		e.metrics.RecordCounter("protocol_failures_total", float64(failures), labels)
		e.metrics.RecordLatency("exhaust", time.Since(start), labels)
	}

	return builder.Build(), nil
}

// captureOutcome classifies one run's result for batch aggregation.
// StepRuntimeError is captured into the row; every other error is fatal to
// the batch and returned as-is.
func captureOutcome(result *ExecutionResult, err error) (outcome, error) {
	if err == nil {
		return outcome{data: result.Data.Scalars()}, nil
	}

	var runtimeErr *domain.StepRuntimeError
	if errors.As(err, &runtimeErr) {
		return outcome{failed: true, failure: runtimeErr.Error()}, nil
	}

	return outcome{}, err
}

// protocolCells flattens a protocol into named table cells.
func protocolCells(protocol domain.Protocol) map[string]any {
	cells := make(map[string]any, len(protocol))
	for _, c := range protocol {
		cells[c.Name] = c.Value.Any()
	}
	return cells
}
