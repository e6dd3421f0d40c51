// Package steps provides the built-in analysis steps that implement the
// ports.Step interface for the multiverse engine: model estimation,
// outlier filtering, and outcome transformation, each exposing its
// researcher degrees of freedom as enumerable choice specifications.
package steps

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Common errors returned by the built-in steps.
var (
	// ErrEmptyStepName is returned when attempting to create a step with an
	// empty name.
	ErrEmptyStepName = errors.New("step name cannot be empty")

	// ErrMissingDataset is returned when a step's input state carries no
	// dataset.
	ErrMissingDataset = errors.New("dataset not found in state")

	// ErrNotEnoughObservations is returned when a dataset is too small to
	// fit the requested model.
	ErrNotEnoughObservations = errors.New("not enough observations")

	// ErrZeroVariance is returned when a computation requires spread in a
	// variable that has none.
	ErrZeroVariance = errors.New("variable has zero variance")

	// ErrAllFiltered is returned when a filtering step would remove every
	// observation.
	ErrAllFiltered = errors.New("filter removed all observations")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
