package application

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

// ReplicationColumn is the fixed column holding the 1-based replication
// index in power-simulation tables.
const ReplicationColumn = "replication"

// PowerSimulator runs one fixed protocol repeatedly against freshly drawn
// synthetic inputs to estimate the sampling distribution — and hence the
// statistical power — of the resulting estimate. The grid of generator
// parameter combinations is finite and enumerated by the caller; the
// simulator crosses it with the replication count and dispatches every
// cell as an independent concurrent run.
type PowerSimulator struct {
	// runner executes individual protocols.
	runner *Runner
	// concurrency caps the number of in-flight runs.
	concurrency int
	// metrics optionally receives batch counters and latencies.
	metrics ports.MetricsCollector
	// tracer emits one span per simulation.
	tracer trace.Tracer
}

// NewPowerSimulator creates a power simulator with concurrency defaulting
// to the number of CPUs.
func NewPowerSimulator() *PowerSimulator {
	return &PowerSimulator{
		runner:      NewRunner(),
		concurrency: runtime.NumCPU(),
		tracer:      otel.Tracer("multiverse-power"),
	}
}

// SetConcurrencyLimit configures the maximum number of replications
// executed concurrently. Non-positive values reset to the number of CPUs.
func (ps *PowerSimulator) SetConcurrencyLimit(limit int) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	ps.concurrency = limit
}

// SetMetricsCollector attaches an optional collector for batch metrics.
func (ps *PowerSimulator) SetMetricsCollector(mc ports.MetricsCollector) {
	ps.metrics = mc
}

// SimulatePower draws a fresh input for every (parameter combination,
// replication index) pair, runs the design under the one fixed protocol,
// and aggregates outcomes into a table keyed by the parameter columns and
// the replication index.
//
// Fault isolation matches the exhauster: a generator failure or a
// StepRuntimeError on one replication is recorded on that row and does not
// affect sibling replications. An InvalidChoiceError means the caller's
// protocol does not match the design and halts the whole simulation.
// Rows are ordered by grid position, replications fastest.
func (ps *PowerSimulator) SimulatePower(
	ctx context.Context,
	design *Design,
	protocol domain.Protocol,
	generator ports.InputGenerator,
	grid []ports.Params,
	replications int,
) (*domain.Table, error) {
	if generator == nil {
		return nil, fmt.Errorf("input generator must not be nil")
	}
	if replications < 1 {
		return nil, fmt.Errorf("replications must be at least 1, got %d", replications)
	}

	start := time.Now()

	ctx, span := ps.tracer.Start(ctx, "PowerSimulator.SimulatePower",
		trace.WithAttributes(
			attribute.String("design.name", design.Name()),
			attribute.Int("grid.size", len(grid)),
			attribute.Int("replications", replications),
		),
	)
	defer span.End()

	total := len(grid) * replications
	outcomes := make([]outcome, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ps.concurrency)

	for gi, params := range grid {
		for rep := 1; rep <= replications; rep++ {
			idx := gi*replications + (rep - 1)
			g.Go(func() error {
				input, genErr := generator(params)
				if genErr != nil {
					outcomes[idx] = outcome{
						failed:  true,
						failure: fmt.Sprintf("input generation failed: %v", genErr),
					}
					return nil
				}

				result, runErr := ps.runner.Run(gctx, design, input, protocol)
				captured, fatal := captureOutcome(result, runErr)
				if fatal != nil {
					return fatal
				}
				outcomes[idx] = captured
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	builder := domain.NewTableBuilder(append(paramColumns(grid), ReplicationColumn))
	failures := 0
	for gi, params := range grid {
		for rep := 1; rep <= replications; rep++ {
			fixed := make(map[string]any, len(params)+1)
			for k, v := range params {
				fixed[k] = v
			}
			fixed[ReplicationColumn] = rep

			o := outcomes[gi*replications+(rep-1)]
			if o.failed {
				failures++
				builder.AppendFailure(fixed, o.failure)
				continue
			}
			builder.AppendRow(fixed, o.data)
		}
	}

	span.SetAttributes(attribute.Int("rows.failed", failures))
	if ps.metrics != nil {
		labels := map[string]string{"design": design.Name(), "operation": "power"}
		ps.metrics.RecordCounter("protocols_executed_total", float64(total), labels)
		ps.metrics.RecordCounter("protocol_failures_total", float64(failures), labels)
		ps.metrics.RecordLatency("power", time.Since(start), labels)
	}

	return builder.Build(), nil
}

// paramColumns returns the sorted union of parameter names across the grid.
func paramColumns(grid []ports.Params) []string {
	seen := make(map[string]struct{})
	for _, params := range grid {
		for k := range params {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
