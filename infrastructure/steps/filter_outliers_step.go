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
	_ ports.Step            = (*FilterOutliersStep)(nil)
	_ ports.FixtureProvider = (*FilterOutliersStep)(nil)
)

// Choice names declared by the outlier filter.
const (
	// ChoiceExcludeOutliers toggles whether filtering happens at all.
	ChoiceExcludeOutliers = "exclude_outliers"

	// ChoiceSDThreshold selects how many standard deviations from the mean
	// an observation may lie before it is excluded.
	ChoiceSDThreshold = "sd_threshold"
)

// FilterOutliersStep excludes observations whose value in the configured
// column lies further than a chosen number of standard deviations from
// the column mean. It declares two degrees of freedom: whether to exclude
// outliers at all (boolean) and, when excluding, which threshold to apply
// (numeric, over an explicit enumerated set). Exclusion criteria are a
// classic researcher degree of freedom, which is why both decisions are
// surfaced rather than hard-coded.
type FilterOutliersStep struct {
	// name is the unique identifier for this step instance.
	name string
	// config contains the validated configuration parameters.
	config FilterOutliersConfig
}

// FilterOutliersConfig controls which column is screened and which
// thresholds are offered as the numeric choice domain.
type FilterOutliersConfig struct {
	// Column is the dataset column screened for outliers.
	Column string `yaml:"column" json:"column" validate:"required,min=1"`

	// Thresholds is the explicit finite enumeration of standard-deviation
	// multiples offered as the sd_threshold domain. Continuous ranges are
	// not supported; the design author must enumerate the candidates.
	Thresholds []float64 `yaml:"thresholds" json:"thresholds" validate:"required,min=1,dive,gt=0"`
}

// NewFilterOutliersStep creates an outlier filter with validated
// configuration. Returns ErrEmptyStepName if name is empty, or a
// configuration validation error if constraints are violated.
func NewFilterOutliersStep(name string, config FilterOutliersConfig) (*FilterOutliersStep, error) {
	if name == "" {
		return nil, ErrEmptyStepName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &FilterOutliersStep{name: name, config: config}, nil
}

// Name returns the unique identifier for this step instance.
func (s *FilterOutliersStep) Name() string { return s.name }

// Describe returns the step's schema surface: both choice specifications
// with their enumerated domains.
func (s *FilterOutliersStep) Describe() domain.Metadata {
	return domain.Metadata{
		StepDescription: []string{
			fmt.Sprintf("Optionally excludes observations of %s further than a chosen", s.config.Column),
			"number of standard deviations from the column mean.",
		},
		ChoiceDescription: []string{
			fmt.Sprintf("%s: whether any exclusion happens.", ChoiceExcludeOutliers),
			fmt.Sprintf("%s: the exclusion threshold in standard deviations.", ChoiceSDThreshold),
		},
		Specs: []domain.ChoiceSpec{
			{
				Name:        ChoiceExcludeOutliers,
				Kind:        domain.KindBoolean,
				Domain:      domain.BooleanDomain(),
				Description: "exclude outlying observations before estimation",
			},
			{
				Name:        ChoiceSDThreshold,
				Kind:        domain.KindNumeric,
				Domain:      domain.NumericDomain(s.config.Thresholds...),
				Description: "standard-deviation multiple beyond which observations are excluded",
			},
		},
	}
}

// Execute validates the choice binding and returns a new state whose
// dataset excludes the outlying rows, or the input state untouched when
// exclusion is switched off. The threshold choice is validated either
// way: every enumerated protocol carries both choices.
func (s *FilterOutliersStep) Execute(input domain.State, choices []domain.Choice) (domain.State, error) {
	if err := domain.ValidateChoices(s.name, choices, s.Describe().Specs); err != nil {
		return input, err
	}
	exclude := choices[0].Value.Bool()
	threshold := choices[1].Value.Number()

	if !exclude {
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

	mean, sd := stat.MeanStdDev(col, nil)
	if sd == 0 || math.IsNaN(sd) {
		// No spread means nothing can be an outlier.
		return input, nil
	}

	filtered := ds.Filter(func(row int) bool {
		return math.Abs(col[row]-mean) <= threshold*sd
	})
	if filtered.N == 0 {
		return input, fmt.Errorf("%w: column=%s, threshold=%g", ErrAllFiltered, s.config.Column, threshold)
	}

	return domain.With(input, domain.KeyDataset, filtered), nil
}

// Fixtures returns the step's embedded test cases for the harness.
func (s *FilterOutliersStep) Fixtures() []ports.StepFixture {
	values := []float64{1, 2, 1, 2, 1, 2, 1, 2, 100}
	ds := domain.NewDataset(len(values))
	ds.Columns[s.config.Column] = values
	input := domain.With(domain.NewState(), domain.KeyDataset, ds)

	threshold := s.config.Thresholds[0]

	return []ports.StepFixture{
		{
			Name:  "excludes the extreme observation",
			Input: input,
			Choices: []domain.Choice{
				{Name: ChoiceExcludeOutliers, Value: domain.Boolean(true)},
				{Name: ChoiceSDThreshold, Value: domain.Numeric(threshold)},
			},
			Check: func(output domain.State) error {
				out, ok := domain.Get(output, domain.KeyDataset)
				if !ok {
					return fmt.Errorf("dataset missing from output")
				}
				if out.N != len(values)-1 {
					return fmt.Errorf("kept %d observations, want %d", out.N, len(values)-1)
				}
				return nil
			},
		},
		{
			Name:  "passes data through when disabled",
			Input: input,
			Choices: []domain.Choice{
				{Name: ChoiceExcludeOutliers, Value: domain.Boolean(false)},
				{Name: ChoiceSDThreshold, Value: domain.Numeric(threshold)},
			},
			Check: func(output domain.State) error {
				out, ok := domain.Get(output, domain.KeyDataset)
				if !ok {
					return fmt.Errorf("dataset missing from output")
				}
				if out.N != len(values) {
					return fmt.Errorf("kept %d observations, want %d", out.N, len(values))
				}
				return nil
			},
		},
		{
			Name:  "rejects an unenumerated threshold",
			Input: input,
			Choices: []domain.Choice{
				{Name: ChoiceExcludeOutliers, Value: domain.Boolean(true)},
				{Name: ChoiceSDThreshold, Value: domain.Numeric(threshold + 0.125)},
			},
			WantErr: true,
		},
	}
}

// DefaultFilterOutliersConfig returns a FilterOutliersConfig screening the
// conventional outcome column with the customary threshold enumeration.
func DefaultFilterOutliersConfig() FilterOutliersConfig {
	return FilterOutliersConfig{
		Column:     "y",
		Thresholds: []float64{2, 2.5, 3},
	}
}

// NewFilterOutliersFromConfig creates a FilterOutliersStep from a
// configuration map. This is the boundary adapter for YAML configuration.
func NewFilterOutliersFromConfig(id string, config map[string]any) (ports.Step, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	// Start with defaults, then overlay user config.
	cfg := DefaultFilterOutliersConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewFilterOutliersStep(id, cfg)
}
