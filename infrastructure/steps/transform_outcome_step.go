package steps

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

var (
	_ ports.Step            = (*TransformOutcomeStep)(nil)
	_ ports.FixtureProvider = (*TransformOutcomeStep)(nil)
)

// ChoiceTransform is the name of the degree of freedom the transformation
// step declares: which transformation is applied to the outcome column.
const ChoiceTransform = "transform"

// Supported transform names.
const (
	TransformNone        = "none"
	TransformLog         = "log"
	TransformStandardize = "standardize"
)

// TransformOutcomeStep applies a chosen transformation to one dataset
// column before downstream estimation. Outcome transformation is a
// researcher degree of freedom — log versus raw scale can flip a
// conclusion — so the decision is declared as an enumerable categorical
// choice rather than fixed in configuration.
//
// The log transform faults on non-positive values instead of silently
// dropping or shifting them; inside a batch that fault becomes an
// inspectable failure row for exactly the protocols it affects.
type TransformOutcomeStep struct {
	// name is the unique identifier for this step instance.
	name string
	// config contains the validated configuration parameters.
	config TransformOutcomeConfig
}

// TransformOutcomeConfig controls which column is transformed and which
// transform names form the choice domain.
type TransformOutcomeConfig struct {
	// Column is the dataset column the transformation applies to.
	Column string `yaml:"column" json:"column" validate:"required,min=1"`

	// Transforms is the explicit enumeration of transform names offered as
	// the choice domain, each one of none, log, or standardize.
	Transforms []string `yaml:"transforms" json:"transforms" validate:"required,min=1,dive,oneof=none log standardize"`
}

// NewTransformOutcomeStep creates a transformation step with validated
// configuration. Returns ErrEmptyStepName if name is empty, or a
// configuration validation error if constraints are violated.
func NewTransformOutcomeStep(name string, config TransformOutcomeConfig) (*TransformOutcomeStep, error) {
	if name == "" {
		return nil, ErrEmptyStepName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &TransformOutcomeStep{name: name, config: config}, nil
}

// Name returns the unique identifier for this step instance.
func (s *TransformOutcomeStep) Name() string { return s.name }

// Describe returns the step's schema surface: the transform choice
// specification with its configured domain.
func (s *TransformOutcomeStep) Describe() domain.Metadata {
	return domain.Metadata{
		StepDescription: []string{
			fmt.Sprintf("Applies a chosen transformation to the %s column.", s.config.Column),
		},
		ChoiceDescription: []string{
			fmt.Sprintf("%s: which transformation to apply.", ChoiceTransform),
		},
		Specs: []domain.ChoiceSpec{
			{
				Name:        ChoiceTransform,
				Kind:        domain.KindCategorical,
				Domain:      domain.CategoricalDomain(s.config.Transforms...),
				Description: fmt.Sprintf("transformation applied to %s before estimation", s.config.Column),
			},
		},
	}
}

// Execute validates the choice binding and returns a new state whose
// dataset carries the transformed column. The none transform returns the
// input unchanged.
func (s *TransformOutcomeStep) Execute(input domain.State, choices []domain.Choice) (domain.State, error) {
	if err := domain.ValidateChoices(s.name, choices, s.Describe().Specs); err != nil {
		return input, err
	}
	transform := choices[0].Value.Text()

	if transform == TransformNone {
		return input, nil
	}

	ds, ok := domain.Get(input, domain.KeyDataset)
	if !ok {
		return input, ErrMissingDataset
	}

	col, err := ds.Column(s.config.Column)
	if err != nil {
		return input, err
	}

	switch transform {
	case TransformLog:
		for i, v := range col {
			if v <= 0 {
				return input, fmt.Errorf("log transform undefined for non-positive value %g at row %d of %s",
					v, i, s.config.Column)
			}
			col[i] = math.Log(v)
		}
	case TransformStandardize:
		mean, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			return input, fmt.Errorf("%w: %s", ErrZeroVariance, s.config.Column)
		}
		for i, v := range col {
			col[i] = (v - mean) / sd
		}
	default:
		// Unreachable once the choice validated against the declared domain.
		return input, fmt.Errorf("unsupported transform: %s", transform)
	}

	transformed, err := ds.WithColumn(s.config.Column, col)
	if err != nil {
		return input, err
	}
	return domain.With(input, domain.KeyDataset, transformed), nil
}

// Fixtures returns the step's embedded test cases for the harness.
func (s *TransformOutcomeStep) Fixtures() []ports.StepFixture {
	positive := []float64{1, math.E, math.E * math.E}
	withNegative := []float64{1, -1, 2}

	makeInput := func(values []float64) domain.State {
		ds := domain.NewDataset(len(values))
		ds.Columns[s.config.Column] = values
		return domain.With(domain.NewState(), domain.KeyDataset, ds)
	}

	return []ports.StepFixture{
		{
			Name:    "log transform maps e to one",
			Input:   makeInput(positive),
			Choices: []domain.Choice{{Name: ChoiceTransform, Value: domain.Categorical(TransformLog)}},
			Check: func(output domain.State) error {
				ds, ok := domain.Get(output, domain.KeyDataset)
				if !ok {
					return fmt.Errorf("dataset missing from output")
				}
				col, err := ds.Column(s.config.Column)
				if err != nil {
					return err
				}
				if math.Abs(col[1]-1) > 1e-12 {
					return fmt.Errorf("log(e) = %v, want 1", col[1])
				}
				return nil
			},
		},
		{
			Name:    "log transform faults on non-positive values",
			Input:   makeInput(withNegative),
			Choices: []domain.Choice{{Name: ChoiceTransform, Value: domain.Categorical(TransformLog)}},
			WantErr: true,
		},
		{
			Name:    "none leaves the dataset untouched",
			Input:   makeInput(positive),
			Choices: []domain.Choice{{Name: ChoiceTransform, Value: domain.Categorical(TransformNone)}},
			Check: func(output domain.State) error {
				ds, ok := domain.Get(output, domain.KeyDataset)
				if !ok {
					return fmt.Errorf("dataset missing from output")
				}
				col, err := ds.Column(s.config.Column)
				if err != nil {
					return err
				}
				if col[1] != positive[1] {
					return fmt.Errorf("column changed under none transform")
				}
				return nil
			},
		},
	}
}

// DefaultTransformOutcomeConfig returns a TransformOutcomeConfig covering
// the conventional outcome column with all supported transforms.
func DefaultTransformOutcomeConfig() TransformOutcomeConfig {
	return TransformOutcomeConfig{
		Column:     "y",
		Transforms: []string{TransformNone, TransformLog, TransformStandardize},
	}
}

// NewTransformOutcomeFromConfig creates a TransformOutcomeStep from a
// configuration map. This is the boundary adapter for YAML configuration.
func NewTransformOutcomeFromConfig(id string, config map[string]any) (ports.Step, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	// Start with defaults, then overlay user config.
	cfg := DefaultTransformOutcomeConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewTransformOutcomeStep(id, cfg)
}
