package domain

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by the typed errors below. Callers match them
// with errors.Is to branch on the reason without parsing messages.
var (
	// ErrWrongKind indicates a choice value whose kind does not match its
	// spec's declared kind.
	ErrWrongKind = errors.New("choice kind mismatch")

	// ErrOutOfDomain indicates a choice value that is not a member of its
	// spec's declared domain.
	ErrOutOfDomain = errors.New("value not in declared domain")

	// ErrMissingChoice indicates a protocol shorter than the declared spec
	// sequence.
	ErrMissingChoice = errors.New("missing choice for spec")

	// ErrExtraChoice indicates a protocol longer than the declared spec
	// sequence.
	ErrExtraChoice = errors.New("extra choice beyond declared specs")

	// ErrNameMismatch indicates a choice whose spec name disagrees with the
	// spec at its position, a sign of protocol misalignment.
	ErrNameMismatch = errors.New("choice name does not match spec at position")

	// ErrEmptyDomain indicates a choice spec with no enumerable values.
	ErrEmptyDomain = errors.New("choice domain is empty")
)

// InvalidChoiceError reports a choice that violates its specification:
// wrong kind, out-of-domain value, or a missing, extra, or misnamed field.
// It is raised synchronously at the offending step and tagged with the step
// and field names.
type InvalidChoiceError struct {
	// Step is the name of the step whose spec was violated. It may be empty
	// when validation runs outside a pipeline.
	Step string

	// Field is the name of the choice spec that failed.
	Field string

	// Value is the rendering of the offending value, when there was one.
	Value string

	// Suggestion optionally names the closest valid domain member for
	// out-of-domain categorical values.
	Suggestion string

	// Err is the sentinel cause (ErrWrongKind, ErrOutOfDomain, ...).
	Err error
}

// Error implements the error interface for InvalidChoiceError.
func (e *InvalidChoiceError) Error() string {
	msg := fmt.Sprintf("invalid choice: field=%s", e.Field)
	if e.Step != "" {
		msg = fmt.Sprintf("invalid choice: step=%s, field=%s", e.Step, e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(", value=%s", e.Value)
	}
	msg += fmt.Sprintf(", err=%v", e.Err)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Unwrap returns the sentinel cause, supporting errors.Is matching.
func (e *InvalidChoiceError) Unwrap() error { return e.Err }

// NewInvalidChoiceError creates an InvalidChoiceError with the given details.
func NewInvalidChoiceError(step, field, value string, err error) *InvalidChoiceError {
	return &InvalidChoiceError{
		Step:  step,
		Field: field,
		Value: value,
		Err:   err,
	}
}

// DesignSpaceError reports a design that cannot be enumerated: a choice spec
// with an empty or malformed domain. It is raised before any protocol is
// produced and halts enumeration and exhaustion with no partial output.
type DesignSpaceError struct {
	// Step is the name of the step whose spec is malformed.
	Step string

	// Field is the name of the offending choice spec.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for DesignSpaceError.
func (e *DesignSpaceError) Error() string {
	return fmt.Sprintf("design space error: step=%s, field=%s, err=%v", e.Step, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DesignSpaceError) Unwrap() error { return e.Err }

// NewDesignSpaceError creates a DesignSpaceError with the given details.
func NewDesignSpaceError(step, field string, err error) *DesignSpaceError {
	return &DesignSpaceError{Step: step, Field: field, Err: err}
}

// StepRuntimeError reports a fault inside a step's transformation itself,
// as opposed to a validation fault. Single runs surface it to the caller;
// batch operations capture it into the failing row and keep going.
type StepRuntimeError struct {
	// Step is the name of the step whose transformation faulted.
	Step string

	// Position is the zero-based index of the step within the design.
	Position int

	// Err is the underlying fault.
	Err error
}

// Error implements the error interface for StepRuntimeError.
func (e *StepRuntimeError) Error() string {
	return fmt.Sprintf("step runtime error: step=%s, position=%d, err=%v", e.Step, e.Position, e.Err)
}

// Unwrap returns the underlying fault.
func (e *StepRuntimeError) Unwrap() error { return e.Err }

// NewStepRuntimeError creates a StepRuntimeError with the given details.
func NewStepRuntimeError(step string, position int, err error) *StepRuntimeError {
	return &StepRuntimeError{Step: step, Position: position, Err: err}
}
