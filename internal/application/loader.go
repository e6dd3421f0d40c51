package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-multiverse/internal/ports"
)

// DesignLoader provides YAML configuration parsing, validation, and
// caching for analysis designs, transforming declarative design files into
// executable Design values through a step registry.
// Compiled designs are cached by the SHA256 hash of their normalized
// configuration, so reloading an identical file is free.
type DesignLoader struct {
	// validator performs struct field validation and custom validation
	// rules for design configurations and their nested components.
	validator *validator.Validate
	// stepRegistry resolves step type names to implementations.
	stepRegistry ports.StepRegistry
	// cache stores compiled designs indexed by SHA256 hash of the
	// normalized configuration. Designs are immutable once assembled, so
	// sharing cached instances is safe.
	cache map[string]*Design
	// cacheMu provides thread-safe access to the cache map.
	cacheMu sync.RWMutex
	// sf prevents duplicate design compilation when multiple goroutines
	// request the same design simultaneously.
	sf singleflight.Group
}

// NewDesignLoader creates a design loader backed by the given step
// registry, with validation capabilities and an empty cache.
// NewDesignLoader returns an error if validator registration fails.
func NewDesignLoader(stepRegistry ports.StepRegistry) (*DesignLoader, error) {
	if stepRegistry == nil {
		return nil, fmt.Errorf("step registry must not be nil")
	}

	v := validator.New()
	if err := registerDesignValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &DesignLoader{
		validator:    v,
		stepRegistry: stepRegistry,
		cache:        make(map[string]*Design),
	}, nil
}

// load is the common implementation for loading designs from byte data,
// using singleflight to prevent duplicate compilation and SHA256-based
// caching for efficiency.
func (dl *DesignLoader) load(data []byte) (*Design, error) {
	// Parse YAML first to normalize it before hashing.
	config, err := dl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := dl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := dl.sf.Do(hash, func() (any, error) {
		// Check cache inside singleflight to handle the race between the
		// cache check and singleflight group execution.
		if design, ok := dl.getCachedDesign(hash); ok {
			return design, nil
		}

		if err := dl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		design, err := dl.buildDesign(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build design: %w", err)
		}

		dl.cacheDesign(hash, design)
		return design, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Design), nil
}

// LoadFromFile loads and compiles a design from a YAML file, performing
// struct validation, semantic validation, and step parameter validation.
func (dl *DesignLoader) LoadFromFile(path string) (*Design, error) {
	// Clean the path to prevent directory traversal attacks.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return dl.load(data)
}

// LoadFromReader loads and compiles a design from an io.Reader, applying
// the same caching and validation as LoadFromFile.
func (dl *DesignLoader) LoadFromReader(r io.Reader) (*Design, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return dl.load(data)
}

// parseYAML decodes raw bytes into a DesignConfig with strict field
// checking so unknown keys fail loudly instead of being dropped.
func (dl *DesignLoader) parseYAML(data []byte) (*DesignConfig, error) {
	var config DesignConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// calculateConfigHash computes the SHA256 hash of the normalized
// configuration, so formatting-only differences between files do not
// defeat the cache.
func (dl *DesignLoader) calculateConfigHash(config *DesignConfig) (string, error) {
	normalized, err := yaml.Marshal(config)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// validateConfig runs struct tag validation followed by the semantic
// checks struct tags cannot express: unique step IDs and per-type
// parameter validation.
func (dl *DesignLoader) validateConfig(config *DesignConfig) error {
	if err := dl.validator.Struct(config); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(config.Steps))
	for _, step := range config.Steps {
		if _, exists := seen[step.ID]; exists {
			return fmt.Errorf("duplicate step ID: %s", step.ID)
		}
		seen[step.ID] = struct{}{}

		if err := ValidateStepParameters(step.Type, step.Parameters); err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}
	}

	return nil
}

// buildDesign instantiates every configured step through the registry and
// assembles the design in declared order.
func (dl *DesignLoader) buildDesign(config *DesignConfig) (*Design, error) {
	built := make([]ports.Step, 0, len(config.Steps))
	for _, stepCfg := range config.Steps {
		var params map[string]any
		if !stepCfg.Parameters.IsZero() {
			if err := stepCfg.Parameters.Decode(&params); err != nil {
				return nil, fmt.Errorf("step %s: failed to decode parameters: %w", stepCfg.ID, err)
			}
		}

		step, err := dl.stepRegistry.CreateStep(stepCfg.Type, stepCfg.ID, params)
		if err != nil {
			return nil, err
		}
		built = append(built, step)
	}

	return NewDesign(config.Metadata.Name, built...)
}

// getCachedDesign retrieves a compiled design from the cache.
func (dl *DesignLoader) getCachedDesign(hash string) (*Design, bool) {
	dl.cacheMu.RLock()
	defer dl.cacheMu.RUnlock()

	design, ok := dl.cache[hash]
	return design, ok
}

// cacheDesign stores a compiled design in the cache.
func (dl *DesignLoader) cacheDesign(hash string, design *Design) {
	dl.cacheMu.Lock()
	defer dl.cacheMu.Unlock()

	dl.cache[hash] = design
}
