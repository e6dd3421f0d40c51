package application

import (
	"fmt"

	"github.com/ahrav/go-multiverse/internal/ports"
)

// FixtureResult is the outcome of one embedded fixture: its name and the
// violation, if any.
type FixtureResult struct {
	// Fixture is the fixture's name.
	Fixture string

	// Err is nil on pass, otherwise a description of the failure.
	Err error
}

// StepReport aggregates the fixture outcomes for one step.
type StepReport struct {
	// Step is the step's name.
	Step string

	// Skipped marks steps that embed no fixtures.
	Skipped bool

	// Results holds one entry per fixture in declaration order.
	Results []FixtureResult
}

// Passed reports whether every fixture of the step passed. A skipped step
// counts as passed; it simply had nothing to verify.
func (r StepReport) Passed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Failures returns the number of failed fixtures.
func (r StepReport) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Harness discovers and runs the unit-test fixtures steps embed alongside
// their transformations. It operates purely through the step contract —
// Describe and Execute — and requires no assembled design, so a step can
// be verified in isolation before it is ever wired into a pipeline.
type Harness struct{}

// NewHarness creates a test harness.
func NewHarness() *Harness { return &Harness{} }

// RunStep executes the embedded fixtures of one step and reports per-
// fixture pass/fail. Steps that do not implement ports.FixtureProvider are
// reported as skipped.
func (h *Harness) RunStep(step ports.Step) StepReport {
	report := StepReport{Step: step.Name()}

	provider, ok := step.(ports.FixtureProvider)
	if !ok {
		report.Skipped = true
		return report
	}

	for _, fx := range provider.Fixtures() {
		report.Results = append(report.Results, FixtureResult{
			Fixture: fx.Name,
			Err:     runFixture(step, fx),
		})
	}
	return report
}

// RunAll executes the embedded fixtures of every step in order.
func (h *Harness) RunAll(steps []ports.Step) []StepReport {
	reports := make([]StepReport, 0, len(steps))
	for _, s := range steps {
		reports = append(reports, h.RunStep(s))
	}
	return reports
}

// runFixture executes one fixture and interprets its expectation.
func runFixture(step ports.Step, fx ports.StepFixture) error {
	output, err := step.Execute(fx.Input, fx.Choices)

	if fx.WantErr {
		if err == nil {
			return fmt.Errorf("expected an error, got none")
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("unexpected error: %w", err)
	}
	if fx.Check != nil {
		if err := fx.Check(output); err != nil {
			return fmt.Errorf("output check failed: %w", err)
		}
	}
	return nil
}
