package application

import (
	"gopkg.in/yaml.v3"
)

// DesignConfig defines the complete YAML specification for an analysis
// design and serves as the configuration entry point for the loader.
// A design file declares an ordered list of steps; each step's type is
// resolved through the step registry and its parameters are validated
// against that type's requirements.
type DesignConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the design including
	// name, tags, and labels for organization and discovery.
	Metadata DesignMetadata `yaml:"metadata" validate:"required"`
	// Steps defines the pipeline in execution order, each step with its
	// own type and configuration.
	Steps []StepConfig `yaml:"steps" validate:"required,min=1,dive"`
}

// DesignMetadata provides descriptive information about a design to
// support organization, discovery, and operational management.
type DesignMetadata struct {
	// Name is the human-readable identifier for this design and labels
	// metrics and error messages produced while running it.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the design's analytical purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping of
	// designs by study or analysis family.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external
	// systems and custom categorization.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// StepConfig defines the specification for a single step within a design.
type StepConfig struct {
	// ID is the unique identifier for this step within the design and must
	// be alphanumeric for safe referencing.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type specifies the step implementation to instantiate, determining
	// the available parameters and declared degrees of freedom.
	Type string `yaml:"type" validate:"required,oneof=estimate_model filter_outliers transform_outcome custom"`
	// Parameters contains type-specific configuration as flexible YAML
	// that will be validated according to the step type's requirements.
	Parameters yaml.Node `yaml:"parameters"`
}
