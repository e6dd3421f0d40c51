package application

import (
	"fmt"
	"sync"

	"github.com/ahrav/go-multiverse/infrastructure/steps"
	"github.com/ahrav/go-multiverse/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.StepRegistry = (*DefaultStepRegistry)(nil)

// DefaultStepRegistry implements the StepRegistry interface, providing a
// factory for creating analysis steps by type name. It comes pre-loaded
// with the built-in step library and supports registering custom step
// factories at runtime. The hosting application passes a registry into the
// design loader as an ordinary parameter; steps are never resolved from an
// ambient namespace.
type DefaultStepRegistry struct {
	// factories maps step type names to their factory functions.
	factories map[string]ports.StepFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultStepRegistry creates a step registry with the built-in step
// types pre-registered: estimate_model, filter_outliers, and
// transform_outcome.
func NewDefaultStepRegistry() *DefaultStepRegistry {
	registry := &DefaultStepRegistry{
		factories: make(map[string]ports.StepFactory),
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers the step types shipped with the
// engine.
func (r *DefaultStepRegistry) registerBuiltinFactories() {
	r.factories["estimate_model"] = steps.NewEstimateModelFromConfig
	r.factories["filter_outliers"] = steps.NewFilterOutliersFromConfig
	r.factories["transform_outcome"] = steps.NewTransformOutcomeFromConfig
}

// CreateStep creates a new step instance of the given type with the given
// identifier and configuration, delegating to the registered factory.
func (r *DefaultStepRegistry) CreateStep(
	stepType string,
	id string,
	config map[string]any,
) (ports.Step, error) {
	r.mu.RLock()
	factory, exists := r.factories[stepType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported step type: %s", stepType)
	}

	if id == "" {
		return nil, fmt.Errorf("step ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	step, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create step %s of type %s: %w", id, stepType, err)
	}

	return step, nil
}

// RegisterStepFactory registers a factory function for a custom step type,
// extending the registry at runtime.
func (r *DefaultStepRegistry) RegisterStepFactory(
	stepType string,
	factory ports.StepFactory,
) error {
	if stepType == "" {
		return fmt.Errorf("step type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[stepType] = factory
	return nil
}

// SupportedTypes returns a list of all registered step types.
// This is useful for validation, documentation, and introspection purposes.
func (r *DefaultStepRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for stepType := range r.factories {
		types = append(types, stepType)
	}
	return types
}
