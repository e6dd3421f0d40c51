package steps

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

var (
	_ ports.Step            = (*EstimateModelStep)(nil)
	_ ports.FixtureProvider = (*EstimateModelStep)(nil)
)

// ChoiceControlForConfounder is the name of the degree of freedom the
// estimation step declares: whether the confounder enters the model.
const ChoiceControlForConfounder = "control_for_z"

// EstimateModelStep fits an ordinary least squares model of the outcome on
// the predictor and reports the predictor's point estimate with interval
// bounds and a two-sided p-value. Its one degree of freedom is whether the
// configured confounder is included as a covariate — the canonical
// example of a methodological decision that moves results.
//
// The step is a pure function of its input dataset and choice: the same
// (input, choice) pair always produces the same estimate, which the
// enumeration and parallel batch machinery rely on.
type EstimateModelStep struct {
	// name is the unique identifier for this step instance.
	name string
	// config contains the validated configuration parameters.
	config EstimateModelConfig
}

// EstimateModelConfig binds the estimation step to dataset columns and
// fixes the confidence level of the reported interval. Configuration is
// immutable after step creation.
type EstimateModelConfig struct {
	// Outcome is the dataset column holding the dependent variable.
	Outcome string `yaml:"outcome" json:"outcome" validate:"required,min=1"`

	// Predictor is the dataset column whose effect on the outcome is
	// estimated.
	Predictor string `yaml:"predictor" json:"predictor" validate:"required,min=1"`

	// Confounder is the dataset column optionally included as a covariate,
	// governed by the control_for_z choice.
	Confounder string `yaml:"confounder" json:"confounder" validate:"required,min=1"`

	// ConfidenceLevel is the coverage of the reported interval, strictly
	// between 0.5 and 1.
	ConfidenceLevel float64 `yaml:"confidence_level" json:"confidence_level" validate:"gt=0.5,lt=1"`
}

// NewEstimateModelStep creates an estimation step with validated
// configuration. Returns ErrEmptyStepName if name is empty, or a
// configuration validation error if constraints are violated.
func NewEstimateModelStep(name string, config EstimateModelConfig) (*EstimateModelStep, error) {
	if name == "" {
		return nil, ErrEmptyStepName
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &EstimateModelStep{name: name, config: config}, nil
}

// Name returns the unique identifier for this step instance.
func (s *EstimateModelStep) Name() string { return s.name }

// Describe returns the step's schema surface: its documentation lines and
// the control_for_z choice specification. It touches no data.
func (s *EstimateModelStep) Describe() domain.Metadata {
	return domain.Metadata{
		StepDescription: []string{
			fmt.Sprintf("Fits an OLS model of %s on %s and reports the %s coefficient",
				s.config.Outcome, s.config.Predictor, s.config.Predictor),
			fmt.Sprintf("with %.0f%% interval bounds and a two-sided p-value.", s.config.ConfidenceLevel*100),
		},
		ChoiceDescription: []string{
			fmt.Sprintf("%s: whether %s enters the model as a covariate.",
				ChoiceControlForConfounder, s.config.Confounder),
		},
		Specs: []domain.ChoiceSpec{
			{
				Name:        ChoiceControlForConfounder,
				Kind:        domain.KindCategorical,
				Domain:      domain.CategoricalDomain("yes", "no"),
				Description: fmt.Sprintf("include %s as a covariate", s.config.Confounder),
			},
		},
	}
}

// Execute validates the choice binding, fits the model, and returns a new
// state carrying the estimate, its standard error, interval bounds,
// p-value, and the observation count. The input state is not modified.
func (s *EstimateModelStep) Execute(input domain.State, choices []domain.Choice) (domain.State, error) {
	if err := domain.ValidateChoices(s.name, choices, s.Describe().Specs); err != nil {
		return input, err
	}
	controlled := choices[0].Value.Text() == "yes"

	ds, ok := domain.Get(input, domain.KeyDataset)
	if !ok {
		return input, ErrMissingDataset
	}

	y, err := ds.Column(s.config.Outcome)
	if err != nil {
		return input, err
	}
	x, err := ds.Column(s.config.Predictor)
	if err != nil {
		return input, err
	}

	regressors := [][]float64{x}
	if controlled {
		z, err := ds.Column(s.config.Confounder)
		if err != nil {
			return input, err
		}
		regressors = append(regressors, z)
	}

	fit, err := fitOLS(y, regressors, s.config.ConfidenceLevel)
	if err != nil {
		return input, err
	}

	out := domain.With(input, domain.KeyEstimate, fit.estimate)
	out = domain.With(out, domain.KeyStdError, fit.stdError)
	out = domain.With(out, domain.KeyCILower, fit.ciLower)
	out = domain.With(out, domain.KeyCIUpper, fit.ciUpper)
	out = domain.With(out, domain.KeyPValue, fit.pValue)
	out = domain.With(out, domain.KeyNObs, ds.N)
	return out, nil
}

// Fixtures returns the step's embedded test cases for the harness: an
// exact fit on noiseless data, and rejection of out-of-domain choices.
func (s *EstimateModelStep) Fixtures() []ports.StepFixture {
	n := 20
	x := make([]float64, n)
	z := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		z[i] = float64(i % 5)
		// Exact linear relation so the fit recovers the slope precisely.
		y[i] = 2*x[i] + 3
	}

	ds := domain.NewDataset(n)
	ds.Columns[s.config.Predictor] = x
	ds.Columns[s.config.Confounder] = z
	ds.Columns[s.config.Outcome] = y
	input := domain.With(domain.NewState(), domain.KeyDataset, ds)

	return []ports.StepFixture{
		{
			Name:    "recovers exact slope without control",
			Input:   input,
			Choices: []domain.Choice{{Name: ChoiceControlForConfounder, Value: domain.Categorical("no")}},
			Check: func(output domain.State) error {
				est, ok := domain.Get(output, domain.KeyEstimate)
				if !ok {
					return fmt.Errorf("estimate missing from output")
				}
				if math.Abs(est-2) > 1e-8 {
					return fmt.Errorf("estimate = %v, want 2", est)
				}
				return nil
			},
		},
		{
			Name:    "rejects out-of-domain choice",
			Input:   input,
			Choices: []domain.Choice{{Name: ChoiceControlForConfounder, Value: domain.Categorical("maybe")}},
			WantErr: true,
		},
		{
			Name:    "fails without a dataset",
			Input:   domain.NewState(),
			Choices: []domain.Choice{{Name: ChoiceControlForConfounder, Value: domain.Categorical("yes")}},
			WantErr: true,
		},
	}
}

// olsFit holds the inference outputs for one fitted coefficient.
type olsFit struct {
	estimate float64
	stdError float64
	ciLower  float64
	ciUpper  float64
	pValue   float64
}

// fitOLS regresses y on an intercept plus the given regressor columns and
// returns inference for the first regressor's coefficient. Interval bounds
// and the p-value use the normal approximation, which is adequate at the
// sample sizes this engine targets.
func fitOLS(y []float64, regressors [][]float64, level float64) (olsFit, error) {
	n := len(y)
	p := len(regressors) + 1
	if n <= p {
		return olsFit{}, fmt.Errorf("%w: n=%d, parameters=%d", ErrNotEnoughObservations, n, p)
	}
	for _, col := range regressors {
		if len(col) != n {
			return olsFit{}, fmt.Errorf("regressor length %d does not match n=%d", len(col), n)
		}
	}

	X := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range regressors {
			X.Set(i, j+1, col[i])
		}
	}
	yVec := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(X)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yVec); err != nil {
		return olsFit{}, fmt.Errorf("design matrix is singular: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	sigma2 := rss / float64(n-p)

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return olsFit{}, fmt.Errorf("normal equations are singular: %w", err)
	}

	estimate := beta.AtVec(1)
	se := math.Sqrt(sigma2 * inv.At(1, 1))

	std := distuv.Normal{Mu: 0, Sigma: 1}
	q := std.Quantile(0.5 + level/2)

	fit := olsFit{
		estimate: estimate,
		stdError: se,
		ciLower:  estimate - q*se,
		ciUpper:  estimate + q*se,
	}
	if se > 0 {
		fit.pValue = 2 * std.CDF(-math.Abs(estimate/se))
	}
	return fit, nil
}

// DefaultEstimateModelConfig returns an EstimateModelConfig with the
// conventional column names and a 95% interval.
func DefaultEstimateModelConfig() EstimateModelConfig {
	return EstimateModelConfig{
		Outcome:         "y",
		Predictor:       "x",
		Confounder:      "z",
		ConfidenceLevel: 0.95,
	}
}

// NewEstimateModelFromConfig creates an EstimateModelStep from a
// configuration map. This is the boundary adapter for YAML configuration.
func NewEstimateModelFromConfig(id string, config map[string]any) (ports.Step, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	// Start with defaults, then overlay user config.
	cfg := DefaultEstimateModelConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return NewEstimateModelStep(id, cfg)
}
