// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"github.com/ahrav/go-multiverse/internal/domain"
)

// Step is the fundamental building block of an analysis pipeline: a
// stateless transformation unit exposing one or more researcher degrees of
// freedom. A Step has two explicit operations — introspection via Describe
// and execution via Execute — rather than a single overloaded call.
// Steps must be pure functions of (input, choices): no reliance on ambient
// state, no side effects beyond the returned state. That purity is what
// makes enumeration reproducible and batch execution parallelizable.
type Step interface {
	// Name returns the unique identifier for this step.
	// The name tags validation and runtime errors and appears in
	// documentation artifacts.
	Name() string

	// Describe returns the step's schema and documentation surface: its
	// description lines and the ordered choice specifications it declares.
	// Describe must be side-effect-free, fast, and independent of any real
	// data; the enumerator and external documentation tooling both rely on
	// it.
	Describe() domain.Metadata

	// Execute validates the given choices against the step's declared
	// specifications and, on success, applies the transformation to the
	// input state, returning the output state. Validation failures surface
	// as *domain.InvalidChoiceError; faults inside the transformation are
	// returned as ordinary errors and wrapped into StepRuntimeError at the
	// executor boundary. The same (input, choices) pair must always produce
	// the same output.
	Execute(input domain.State, choices []domain.Choice) (domain.State, error)
}

// StepFixture is one embedded unit-test case a step supplies alongside its
// transformation: a fixed deterministic input, a choice binding, and a
// check over the output.
type StepFixture struct {
	// Name identifies the fixture in harness reports.
	Name string

	// Input is the fixed deterministic input state.
	Input domain.State

	// Choices is the choice binding to execute with.
	Choices []domain.Choice

	// WantErr marks fixtures that expect Execute to fail.
	WantErr bool

	// Check inspects the output state and returns a descriptive error on
	// violation. It is ignored when WantErr is set and may be nil when
	// executing without error is the whole assertion.
	Check func(output domain.State) error
}

// FixtureProvider is implemented by steps that embed unit-test fixtures
// for the test harness. The harness exercises fixtures purely through
// Describe and Execute; no full design is required.
type FixtureProvider interface {
	// Fixtures returns the step's embedded test cases.
	Fixtures() []StepFixture
}

// StepFactory creates a step instance from an identifier and a flexible
// configuration map, typically decoded from a design file.
type StepFactory func(id string, config map[string]any) (Step, error)

// StepRegistry resolves step type names to implementations. The hosting
// application builds a registry and passes it into the design loader as an
// ordinary parameter; there is no ambient global step namespace.
type StepRegistry interface {
	// CreateStep instantiates a step of the given type with the given
	// identifier and configuration.
	CreateStep(stepType, id string, config map[string]any) (Step, error)

	// RegisterStepFactory registers a factory for a custom step type.
	RegisterStepFactory(stepType string, factory StepFactory) error

	// SupportedTypes returns all registered step type names.
	SupportedTypes() []string
}
