package application

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ValidateStepParameters validates the parameters for a specific step
// type, ensuring required fields are present and values meet domain
// constraints before a step is ever instantiated. It supports the
// built-in estimate_model, filter_outliers, and transform_outcome types
// plus custom steps, which carry flexible parameters.
// ValidateStepParameters returns an error if parameter decoding fails or
// if any validation rule is violated.
func ValidateStepParameters(stepType string, params yaml.Node) error {
	var paramMap map[string]any
	if !params.IsZero() {
		if err := params.Decode(&paramMap); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	switch stepType {
	case "estimate_model":
		return validateEstimateModelParams(paramMap)
	case "filter_outliers":
		return validateFilterOutliersParams(paramMap)
	case "transform_outcome":
		return validateTransformOutcomeParams(paramMap)
	case "custom":
		// Custom steps have flexible validation.
		return nil
	default:
		return fmt.Errorf("unknown step type: %s", stepType)
	}
}

// validateEstimateModelParams validates parameters for the OLS estimation
// step: optional column names must be non-empty strings and the optional
// confidence level must lie strictly inside (0.5, 1).
func validateEstimateModelParams(params map[string]any) error {
	for _, field := range []string{"outcome", "predictor", "confounder"} {
		if raw, ok := params[field]; ok {
			name, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%s must be a string", field)
			}
			if name == "" {
				return fmt.Errorf("%s cannot be empty", field)
			}
		}
	}

	if raw, ok := params["confidence_level"]; ok {
		level, ok := toFloat(raw)
		if !ok {
			return fmt.Errorf("confidence_level must be a number")
		}
		if level <= 0.5 || level >= 1 {
			return fmt.Errorf("confidence_level must be between 0.5 and 1, got %v", level)
		}
	}

	return nil
}

// validateFilterOutliersParams validates parameters for the outlier filter
// step: the optional column must be a non-empty string and the optional
// threshold enumeration must be a non-empty list of positive numbers.
func validateFilterOutliersParams(params map[string]any) error {
	if raw, ok := params["column"]; ok {
		name, ok := raw.(string)
		if !ok {
			return fmt.Errorf("column must be a string")
		}
		if name == "" {
			return fmt.Errorf("column cannot be empty")
		}
	}

	if raw, ok := params["thresholds"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("thresholds must be a list of numbers")
		}
		if len(list) == 0 {
			return fmt.Errorf("thresholds cannot be empty")
		}
		for i, item := range list {
			v, ok := toFloat(item)
			if !ok {
				return fmt.Errorf("thresholds[%d] must be a number", i)
			}
			if v <= 0 {
				return fmt.Errorf("thresholds[%d] must be positive, got %v", i, v)
			}
		}
	}

	return nil
}

// validateTransformOutcomeParams validates parameters for the outcome
// transformation step: the optional transform enumeration must be a
// non-empty subset of the supported transform names.
func validateTransformOutcomeParams(params map[string]any) error {
	if raw, ok := params["column"]; ok {
		name, ok := raw.(string)
		if !ok {
			return fmt.Errorf("column must be a string")
		}
		if name == "" {
			return fmt.Errorf("column cannot be empty")
		}
	}

	if raw, ok := params["transforms"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("transforms must be a list of strings")
		}
		if len(list) == 0 {
			return fmt.Errorf("transforms cannot be empty")
		}
		supported := []string{"none", "log", "standardize"}
		for i, item := range list {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("transforms[%d] must be a string", i)
			}
			if !slices.Contains(supported, name) {
				return fmt.Errorf("unsupported transform: %s", name)
			}
		}
	}

	return nil
}

// toFloat coerces YAML-decoded numbers, which may arrive as int or
// float64 depending on how they were written.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// registerDesignValidators registers custom validation functions with the
// validator instance used for design configuration validation.
func registerDesignValidators(v *validator.Validate) error {
	// stepparams is referenced from struct tags for documentation purposes;
	// semantic parameter validation runs in ValidateStepParameters during
	// design compilation.
	if err := v.RegisterValidation("stepparams", func(fl validator.FieldLevel) bool {
		return true
	}); err != nil {
		return fmt.Errorf("failed to register stepparams validator: %w", err)
	}
	return nil
}
